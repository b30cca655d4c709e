package model

import (
	"fmt"
	"time"
)

// InitialKnowledgeVersion is the version of an empty knowledge memory. It
// never has a snapshot of its own; the first update produces version 2.
const InitialKnowledgeVersion = 1

// TopCommunicatorLimit is the number of communicators kept per snapshot.
const TopCommunicatorLimit = 20

// KnowledgeSnapshot is one immutable, versioned summary of the record set.
type KnowledgeSnapshot struct {
	Version          int            `json:"version,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
	TotalEmails      int            `json:"total_emails"`
	NetworkSize      int            `json:"network_size"`
	TopCommunicators []RankedEntity `json:"top_communicators"`
	TopicCount       int            `json:"topic_count"`
}

// CommunicationCount returns the score of person in the snapshot's top
// communicators, or zero when absent.
func (s *KnowledgeSnapshot) CommunicationCount(person string) int {
	if s == nil {
		return 0
	}
	for _, c := range s.TopCommunicators {
		if c.ID == person {
			return c.Score
		}
	}
	return 0
}

// SnapshotKey returns the knowledge base key of version, e.g. "v3".
func SnapshotKey(version int) string {
	return fmt.Sprintf("v%d", version)
}

// CommunicationPatternView is the denormalized, overwritten-on-update view
// of the latest network.
type CommunicationPatternView struct {
	Network          map[string]map[string]int `json:"network,omitempty"`
	TopCommunicators []RankedEntity            `json:"top_communicators,omitempty"`
}

// KnowledgeDocument is the single persisted knowledge memory document.
type KnowledgeDocument struct {
	Version               int                           `json:"version"`
	LastUpdated           *time.Time                    `json:"last_updated"`
	KnowledgeBase         map[string]*KnowledgeSnapshot `json:"knowledge_base"`
	CommunicationPatterns CommunicationPatternView      `json:"communication_patterns"`
	Topics                map[string]int                `json:"topics"`
	Relationships         map[string]any                `json:"relationships"`
}

// NewKnowledgeDocument returns the empty state: version 1, no history.
func NewKnowledgeDocument() *KnowledgeDocument {
	return &KnowledgeDocument{
		Version:       InitialKnowledgeVersion,
		KnowledgeBase: make(map[string]*KnowledgeSnapshot),
		Topics:        make(map[string]int),
		Relationships: make(map[string]any),
	}
}

// Snapshot returns the snapshot stored for version, or nil.
func (d *KnowledgeDocument) Snapshot(version int) *KnowledgeSnapshot {
	return d.KnowledgeBase[SnapshotKey(version)]
}

// Clone returns a copy whose maps can be modified without touching d.
// Snapshots themselves are shared since they are never mutated.
func (d *KnowledgeDocument) Clone() *KnowledgeDocument {
	clone := *d
	clone.KnowledgeBase = make(map[string]*KnowledgeSnapshot, len(d.KnowledgeBase)+1)
	for k, v := range d.KnowledgeBase {
		clone.KnowledgeBase[k] = v
	}
	return &clone
}

// KnowledgeUpdate is returned by a knowledge update.
type KnowledgeUpdate struct {
	Version int       `json:"version"`
	Updated time.Time `json:"updated"`
	Summary string    `json:"summary"`
}

type ChangeType string

const (
	ChangeEmailCount           ChangeType = "email_count"
	ChangeCommunicatorActivity ChangeType = "communicator_activity"
)

// Change is one detected difference between two consecutive snapshots.
type Change struct {
	Type     ChangeType `json:"type"`
	Person   string     `json:"person,omitempty"`
	Previous int        `json:"previous"`
	Current  int        `json:"current"`
	Delta    int        `json:"delta"`
}

// ChangeReport lists what changed between the two latest versions. When
// there is not enough history only Message is set.
type ChangeReport struct {
	Message   string     `json:"message,omitempty"`
	Version   int        `json:"version,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Changes   []*Change  `json:"changes,omitzero"`
}

// Insufficient reports whether the report carries no comparison.
func (r *ChangeReport) Insufficient() bool {
	return r.Message != ""
}
