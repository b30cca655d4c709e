package repository

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionPersons        = "persons"
	collectionCommunications = "communications"
)

// email addresses may contain characters not allowed in document IDs
var docIDNamespace = uuid.MustParse("6f1d3c52-8a4e-4c3b-9f0e-2d7b5a9c1e44")

type firestorePerson struct {
	Email string `firestore:"email"`
}

type firestoreEdge struct {
	Sender    string   `firestore:"sender"`
	Receiver  string   `firestore:"receiver"`
	Count     int64    `firestore:"count"`
	Subjects  []string `firestore:"subjects"`
	FirstDate string   `firestore:"first_date"`
	LastDate  string   `firestore:"last_date"`
}

func (e *firestoreEdge) toModel() *model.CommunicationEdge {
	return &model.CommunicationEdge{
		Sender:    e.Sender,
		Receiver:  e.Receiver,
		Count:     int(e.Count),
		Subjects:  e.Subjects,
		FirstDate: e.FirstDate,
		LastDate:  e.LastDate,
	}
}

func fromModel(edge *model.CommunicationEdge) *firestoreEdge {
	subjects := edge.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	return &firestoreEdge{
		Sender:    edge.Sender,
		Receiver:  edge.Receiver,
		Count:     int64(edge.Count),
		Subjects:  subjects,
		FirstDate: edge.FirstDate,
		LastDate:  edge.LastDate,
	}
}

// Firestore stores the communication graph as two Firestore collections:
// persons and communications (one document per sender and receiver pair).
type Firestore struct {
	client *firestore.Client
}

// NewFirestore creates a graph store on databaseID of projectID
func NewFirestore(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID))
	}
	return &Firestore{client: client}, nil
}

func personDocID(email string) string {
	return uuid.NewSHA1(docIDNamespace, []byte(email)).String()
}

func edgeDocID(sender, receiver string) string {
	return uuid.NewSHA1(docIDNamespace, []byte(sender+"\x00"+receiver)).String()
}

func (f *Firestore) MergePerson(ctx context.Context, email string) error {
	ref := f.client.Collection(collectionPersons).Doc(personDocID(email))
	if _, err := ref.Set(ctx, &firestorePerson{Email: email}); err != nil {
		return goerr.Wrap(err, "failed to merge person", goerr.V("email", email))
	}
	return nil
}

func (f *Firestore) MergeCommunication(ctx context.Context, edge *model.CommunicationEdge) error {
	for _, email := range []string{edge.Sender, edge.Receiver} {
		if err := f.MergePerson(ctx, email); err != nil {
			return err
		}
	}

	ref := f.client.Collection(collectionCommunications).Doc(edgeDocID(edge.Sender, edge.Receiver))
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return goerr.Wrap(err, "failed to get communication")
			}
			return tx.Set(ref, fromModel(edge))
		}

		var current firestoreEdge
		if err := doc.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to decode communication", goerr.V("doc_id", ref.ID))
		}
		merged := current.toModel()
		merged.Merge(edge)
		return tx.Set(ref, fromModel(merged))
	})
	if err != nil {
		return goerr.Wrap(err, "failed to merge communication",
			goerr.V("sender", edge.Sender),
			goerr.V("receiver", edge.Receiver))
	}
	return nil
}

func (f *Firestore) Clear(ctx context.Context) error {
	writer := f.client.BulkWriter(ctx)
	for _, name := range []string{collectionCommunications, collectionPersons} {
		iter := f.client.Collection(name).DocumentRefs(ctx)
		for {
			ref, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				writer.End()
				return goerr.Wrap(err, "failed to list documents", goerr.V("collection", name))
			}
			if _, err := writer.Delete(ref); err != nil {
				writer.End()
				return goerr.Wrap(err, "failed to enqueue delete", goerr.V("doc_id", ref.ID))
			}
		}
	}
	writer.End()
	return nil
}

func (f *Firestore) TopRelationships(ctx context.Context, limit int) ([]*model.CommunicationEdge, error) {
	if limit <= 0 {
		limit = DefaultTopRelationships
	}

	iter := f.client.Collection(collectionCommunications).
		OrderBy("count", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var edges []*model.CommunicationEdge
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to query top relationships")
		}

		var edge firestoreEdge
		if err := doc.DataTo(&edge); err != nil {
			return nil, goerr.Wrap(err, "failed to decode communication", goerr.V("doc_id", doc.Ref.ID))
		}
		edges = append(edges, edge.toModel())
	}
	return edges, nil
}

func (f *Firestore) Close(ctx context.Context) error {
	if err := f.client.Close(); err != nil {
		return goerr.Wrap(err, "failed to close firestore client")
	}
	return nil
}
