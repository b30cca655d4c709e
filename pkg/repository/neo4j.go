package repository

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	cypherPersonConstraint = `CREATE CONSTRAINT person_email IF NOT EXISTS
FOR (p:Person) REQUIRE p.email IS UNIQUE`

	cypherMergePerson = `MERGE (p:Person {email: $email})
ON CREATE SET p.name = $email
SET p.updated = datetime()`

	cypherMergeCommunication = `MERGE (s:Person {email: $sender})
MERGE (r:Person {email: $receiver})
MERGE (s)-[c:COMMUNICATED_WITH]->(r)
ON CREATE SET c.count = $count, c.subjects = $subjects, c.first_date = $first_date, c.last_date = $last_date
ON MATCH SET c.count = c.count + $count,
  c.subjects = c.subjects + [x IN $subjects WHERE NOT x IN c.subjects],
  c.last_date = $last_date`

	cypherClear = `MATCH (n) DETACH DELETE n`

	cypherTopRelationships = `MATCH (s:Person)-[c:COMMUNICATED_WITH]->(r:Person)
RETURN s.email AS sender, r.email AS receiver, c.count AS count,
       c.subjects AS subjects, c.first_date AS first_date, c.last_date AS last_date
ORDER BY c.count DESC
LIMIT $limit`
)

// Neo4j stores the communication graph in a Neo4j database
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
}

type Neo4jOption func(*Neo4j)

// WithNeo4jDatabase selects a database other than the server default
func WithNeo4jDatabase(name string) Neo4jOption {
	return func(n *Neo4j) {
		n.database = name
	}
}

// NewNeo4j connects to uri with basic auth, verifies connectivity and
// ensures Person.email is unique
func NewNeo4j(ctx context.Context, uri, user, password string, opts ...Neo4jOption) (*Neo4j, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create neo4j driver", goerr.V("uri", uri))
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, goerr.Wrap(err, "failed to connect to neo4j", goerr.V("uri", uri))
	}

	n := &Neo4j{driver: driver}
	for _, opt := range opts {
		opt(n)
	}

	if err := n.write(ctx, cypherPersonConstraint, nil); err != nil {
		_ = driver.Close(ctx)
		return nil, goerr.Wrap(err, "failed to create person constraint")
	}
	return n, nil
}

func (n *Neo4j) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return n.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: n.database})
}

func (n *Neo4j) write(ctx context.Context, query string, params map[string]any) error {
	session := n.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return err
}

func (n *Neo4j) MergePerson(ctx context.Context, email string) error {
	if err := n.write(ctx, cypherMergePerson, map[string]any{"email": email}); err != nil {
		return goerr.Wrap(err, "failed to merge person", goerr.V("email", email))
	}
	return nil
}

func (n *Neo4j) MergeCommunication(ctx context.Context, edge *model.CommunicationEdge) error {
	subjects := make([]any, 0, len(edge.Subjects))
	for _, s := range edge.Subjects {
		subjects = append(subjects, s)
	}

	params := map[string]any{
		"sender":     edge.Sender,
		"receiver":   edge.Receiver,
		"count":      int64(edge.Count),
		"subjects":   subjects,
		"first_date": edge.FirstDate,
		"last_date":  edge.LastDate,
	}
	if err := n.write(ctx, cypherMergeCommunication, params); err != nil {
		return goerr.Wrap(err, "failed to merge communication",
			goerr.V("sender", edge.Sender),
			goerr.V("receiver", edge.Receiver))
	}
	return nil
}

func (n *Neo4j) Clear(ctx context.Context) error {
	if err := n.write(ctx, cypherClear, nil); err != nil {
		return goerr.Wrap(err, "failed to clear graph")
	}
	return nil
}

func (n *Neo4j) TopRelationships(ctx context.Context, limit int) ([]*model.CommunicationEdge, error) {
	if limit <= 0 {
		limit = DefaultTopRelationships
	}

	session := n.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, cypherTopRelationships, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query top relationships")
	}

	var edges []*model.CommunicationEdge
	for result.Next(ctx) {
		record := result.Record()
		edges = append(edges, &model.CommunicationEdge{
			Sender:    getString(record, "sender"),
			Receiver:  getString(record, "receiver"),
			Count:     int(getInt(record, "count")),
			Subjects:  getStrings(record, "subjects"),
			FirstDate: getString(record, "first_date"),
			LastDate:  getString(record, "last_date"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read top relationships")
	}
	return edges, nil
}

func (n *Neo4j) Close(ctx context.Context) error {
	if err := n.driver.Close(ctx); err != nil {
		return goerr.Wrap(err, "failed to close neo4j driver")
	}
	return nil
}

func getString(record *neo4j.Record, key string) string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func getInt(record *neo4j.Record, key string) int64 {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return 0
	}
	i, _ := v.(int64)
	return i
}

func getStrings(record *neo4j.Record, key string) []string {
	v, ok := record.Get(key)
	if !ok || v == nil {
		return nil
	}
	items, _ := v.([]any)
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
