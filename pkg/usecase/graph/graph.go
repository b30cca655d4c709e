package graph

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/repository"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds simultaneous writes to the graph store
const DefaultConcurrency = 8

// UseCase loads records into a communication graph store
type UseCase struct {
	store       *record.Store
	graph       repository.Graph
	concurrency int
	clear       bool
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithConcurrency sets the number of concurrent graph writes
func WithConcurrency(n int) Option {
	return func(uc *UseCase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

// WithClear removes every existing person and relationship before loading
func WithClear(clear bool) Option {
	return func(uc *UseCase) {
		uc.clear = clear
	}
}

// New creates a graph loader
func New(store *record.Store, graph repository.Graph, opts ...Option) *UseCase {
	uc := &UseCase{
		store:       store,
		graph:       graph,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Aggregate folds records into one edge per sender and receiver pair and
// the list of every edge endpoint. Addresses are trimmed; records without a
// sender and blank receivers are skipped. Edges and persons keep first seen
// order.
func Aggregate(records []*model.Record) ([]string, []*model.CommunicationEdge) {
	var persons []string
	seenPerson := make(map[string]struct{})
	addPerson := func(email string) {
		if _, ok := seenPerson[email]; !ok {
			seenPerson[email] = struct{}{}
			persons = append(persons, email)
		}
	}
	var edges []*model.CommunicationEdge
	index := make(map[[2]string]*model.CommunicationEdge)

	for _, r := range records {
		sender := strings.TrimSpace(r.Sender)
		if sender == "" {
			continue
		}
		addPerson(sender)

		for _, receiver := range r.Receivers {
			receiver = strings.TrimSpace(receiver)
			if receiver == "" {
				continue
			}
			addPerson(receiver)

			key := [2]string{sender, receiver}
			edge, ok := index[key]
			if !ok {
				edge = &model.CommunicationEdge{
					Sender:    sender,
					Receiver:  receiver,
					Subjects:  []string{},
					FirstDate: r.Timestamp,
				}
				index[key] = edge
				edges = append(edges, edge)
			}
			edge.Count++
			edge.AddSubject(r.Subject)
			edge.LastDate = r.Timestamp
		}
	}

	return persons, edges
}

// Load writes every record of the store into the graph. All persons are
// merged before any edge so that concurrent edge writes only match nodes.
func (u *UseCase) Load(ctx context.Context) (*model.GraphLoadResult, error) {
	logger := logging.From(ctx)

	records, err := u.store.Load(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load records")
	}

	if u.clear {
		if err := u.graph.Clear(ctx); err != nil {
			return nil, goerr.Wrap(err, "failed to clear graph")
		}
		logger.Info("graph cleared")
	}

	persons, edges := Aggregate(records)
	logger.Info("loading graph", "records", len(records), "persons", len(persons), "edges", len(edges))

	if err := u.each(ctx, len(persons), func(ctx context.Context, i int) error {
		return u.graph.MergePerson(ctx, persons[i])
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to write persons")
	}

	if err := u.each(ctx, len(edges), func(ctx context.Context, i int) error {
		return u.graph.MergeCommunication(ctx, edges[i])
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to write edges")
	}

	return &model.GraphLoadResult{
		Records: len(records),
		Persons: len(persons),
		Edges:   len(edges),
	}, nil
}

// TopRelationships reads the strongest relationships back from the graph
func (u *UseCase) TopRelationships(ctx context.Context, limit int) ([]*model.CommunicationEdge, error) {
	edges, err := u.graph.TopRelationships(ctx, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get top relationships", goerr.V("limit", limit))
	}
	return edges, nil
}

func (u *UseCase) each(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(u.concurrency)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			return fn(egctx, i)
		})
	}
	return eg.Wait()
}
