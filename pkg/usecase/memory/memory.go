package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

// DefaultKey is the storage key of the knowledge memory document.
const DefaultKey = "knowledge_memory.json"

const (
	msgInsufficientHistory = "Insufficient history. Need at least 2 versions to detect changes."
	msgCurrentNotFound     = "Current version not found in knowledge base."
)

// UseCase keeps a versioned history of analytics snapshots in one document.
// It is not safe for concurrent use; callers serialize access.
type UseCase struct {
	engine  *analytics.Engine
	storage adapter.Storage
	key     string
	now     func() time.Time
	doc     *model.KnowledgeDocument
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithKey sets the storage key of the document
func WithKey(key string) Option {
	return func(uc *UseCase) {
		uc.key = key
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New loads the knowledge memory document. A missing document starts at
// version 1; an unreadable one is logged and also starts at version 1.
func New(ctx context.Context, engine *analytics.Engine, storage adapter.Storage, opts ...Option) *UseCase {
	uc := &UseCase{
		engine:  engine,
		storage: storage,
		key:     DefaultKey,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	doc, err := loadDocument(ctx, storage, uc.key)
	if err != nil {
		if errors.Is(err, model.ErrPersistenceCorrupt) {
			logging.From(ctx).Warn("reset knowledge memory", "error", err)
		} else {
			logging.From(ctx).Debug("start new knowledge memory", "key", uc.key)
		}
		doc = model.NewKnowledgeDocument()
	}
	uc.doc = doc

	return uc
}

func loadDocument(ctx context.Context, storage adapter.Storage, key string) (*model.KnowledgeDocument, error) {
	data, err := adapter.ReadAll(ctx, storage, key)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return nil, err
		}
		return nil, goerr.Wrap(model.ErrPersistenceCorrupt, err.Error(), goerr.V("key", key))
	}

	var doc model.KnowledgeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, goerr.Wrap(model.ErrPersistenceCorrupt, err.Error(), goerr.V("key", key))
	}

	if doc.Version < model.InitialKnowledgeVersion {
		doc.Version = model.InitialKnowledgeVersion
	}
	if doc.KnowledgeBase == nil {
		doc.KnowledgeBase = make(map[string]*model.KnowledgeSnapshot)
	}
	if doc.Topics == nil {
		doc.Topics = make(map[string]int)
	}
	if doc.Relationships == nil {
		doc.Relationships = make(map[string]any)
	}

	return &doc, nil
}

// KnowledgeVersion returns the current version. It is 1 until the first update.
func (u *UseCase) KnowledgeVersion() int {
	return u.doc.Version
}

// Document returns the in-memory knowledge document. Callers must not modify it.
func (u *UseCase) Document() *model.KnowledgeDocument {
	return u.doc
}

// UpdateKnowledge snapshots the current analytics as the next version and
// persists the whole document. On failure neither the stored nor the
// in-memory document changes.
func (u *UseCase) UpdateKnowledge(ctx context.Context) (*model.KnowledgeUpdate, error) {
	network := u.engine.CommunicationNetwork()
	top := u.engine.TopCommunicators(model.TopCommunicatorLimit)
	topics := u.engine.TopicClusters(analytics.DefaultMinClusterSize)
	now := u.now()

	next := u.doc.Clone()
	next.Version++
	next.LastUpdated = &now
	next.KnowledgeBase[model.SnapshotKey(next.Version)] = &model.KnowledgeSnapshot{
		Version:          next.Version,
		Timestamp:        now,
		TotalEmails:      len(u.engine.Store().Records()),
		NetworkSize:      network.Len(),
		TopCommunicators: top,
		TopicCount:       len(topics),
	}
	next.CommunicationPatterns = model.CommunicationPatternView{
		Network:          network.Edges,
		TopCommunicators: top,
	}
	next.Topics = topics.Sizes()

	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal knowledge memory")
	}
	if err := adapter.WriteAll(ctx, u.storage, u.key, data); err != nil {
		return nil, goerr.Wrap(err, "failed to save knowledge memory", goerr.V("version", next.Version))
	}

	u.doc = next
	logging.From(ctx).Info("knowledge updated", "version", next.Version)

	return &model.KnowledgeUpdate{
		Version: next.Version,
		Updated: now,
		Summary: fmt.Sprintf("Updated to version %d", next.Version),
	}, nil
}

// WhatChanged compares the current snapshot with the previous version. A
// missing previous snapshot counts as all zeros. Only communicators in the
// current top list are compared, so people who dropped out are not reported.
// days is not used: the comparison is always between the two latest versions.
func (u *UseCase) WhatChanged(days int) *model.ChangeReport {
	version := u.doc.Version
	if version < 2 {
		return &model.ChangeReport{Message: msgInsufficientHistory}
	}

	current := u.doc.Snapshot(version)
	if current == nil {
		return &model.ChangeReport{Message: msgCurrentNotFound}
	}
	previous := u.doc.Snapshot(version - 1)

	var prevEmails int
	if previous != nil {
		prevEmails = previous.TotalEmails
	}

	timestamp := current.Timestamp
	report := &model.ChangeReport{
		Version:   version,
		Timestamp: &timestamp,
		Changes:   []*model.Change{},
	}

	if current.TotalEmails != prevEmails {
		report.Changes = append(report.Changes, &model.Change{
			Type:     model.ChangeEmailCount,
			Previous: prevEmails,
			Current:  current.TotalEmails,
			Delta:    current.TotalEmails - prevEmails,
		})
	}

	seen := make(map[string]struct{}, len(current.TopCommunicators))
	for _, c := range current.TopCommunicators {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}

		prevCount := previous.CommunicationCount(c.ID)
		if c.Score != prevCount {
			report.Changes = append(report.Changes, &model.Change{
				Type:     model.ChangeCommunicatorActivity,
				Person:   c.ID,
				Previous: prevCount,
				Current:  c.Score,
				Delta:    c.Score - prevCount,
			})
		}
	}

	return report
}
