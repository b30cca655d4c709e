package repository

import (
	"context"

	"github.com/m-mizutani/orgintel/pkg/model"
)

// DefaultTopRelationships is the number of edges TopRelationships returns
// when limit is not positive.
const DefaultTopRelationships = 20

// Graph is a property graph of people (nodes keyed by email address) and
// aggregated COMMUNICATED_WITH edges between them.
type Graph interface {
	// MergePerson creates the person node unless it exists
	MergePerson(ctx context.Context, email string) error

	// MergeCommunication adds edge to the sender to receiver relationship,
	// creating the relationship and both people when missing
	MergeCommunication(ctx context.Context, edge *model.CommunicationEdge) error

	// Clear removes every person and relationship
	Clear(ctx context.Context) error

	// TopRelationships returns relationships ordered by count, descending
	TopRelationships(ctx context.Context, limit int) ([]*model.CommunicationEdge, error)

	Close(ctx context.Context) error
}
