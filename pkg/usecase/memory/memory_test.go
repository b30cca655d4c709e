package memory_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/usecase/memory"
)

// growingSource serves the first n generated records; n can be changed
// between reloads.
type growingSource struct {
	n int
}

func (s *growingSource) Fetch(ctx context.Context) ([]*model.Record, error) {
	records := make([]*model.Record, 0, s.n)
	for i := 0; i < s.n; i++ {
		records = append(records, &model.Record{
			Sender:    fmt.Sprintf("user%d@x.com", i%3),
			Receivers: []string{"boss@x.com"},
			Subject:   "weekly status",
		})
	}
	return records, nil
}

func setup(t *testing.T, n int) (*growingSource, *record.Store, *analytics.Engine) {
	t.Helper()
	src := &growingSource{n: n}
	store := record.New(src)
	engine, err := analytics.New(context.Background(), store)
	gt.NoError(t, err)
	return src, store, engine
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		ts = ts.Add(time.Minute)
		return ts
	}
}

func TestInitialState(t *testing.T) {
	ctx := context.Background()
	_, _, engine := setup(t, 3)
	uc := memory.New(ctx, engine, adapter.NewFileStorage(t.TempDir()))

	gt.Equal(t, uc.KnowledgeVersion(), 1)

	report := uc.WhatChanged(1)
	gt.True(t, report.Insufficient())
	gt.S(t, report.Message).Contains("Insufficient history")
}

func TestUpdateKnowledgeVersions(t *testing.T) {
	ctx := context.Background()
	_, _, engine := setup(t, 10)
	storage := adapter.NewFileStorage(t.TempDir())
	uc := memory.New(ctx, engine, storage, memory.WithClock(fixedClock()))

	const k = 4
	for i := 0; i < k; i++ {
		update, err := uc.UpdateKnowledge(ctx)
		gt.NoError(t, err)
		gt.Equal(t, update.Version, i+2)
		gt.Equal(t, update.Summary, fmt.Sprintf("Updated to version %d", i+2))
	}
	gt.Equal(t, uc.KnowledgeVersion(), k+1)

	doc := uc.Document()
	gt.Equal(t, len(doc.KnowledgeBase), k)
	for v := 2; v <= k+1; v++ {
		gt.NotNil(t, doc.Snapshot(v))
	}
	gt.True(t, doc.Snapshot(1) == nil)
	gt.Equal(t, doc.Topics, map[string]int{"weekly": 10, "status": 10})
	gt.Equal(t, doc.CommunicationPatterns.Network["user0@x.com"]["boss@x.com"], 4)

	// a new instance reads the persisted document back
	reloaded := memory.New(ctx, engine, storage)
	gt.Equal(t, reloaded.KnowledgeVersion(), k+1)
	gt.Equal(t, reloaded.Document().Snapshot(k+1).TotalEmails, 10)
	gt.Equal(t, reloaded.Document().Snapshot(k+1).TopCommunicators[0], model.RankedEntity{ID: "boss@x.com", Score: 10})
}

func TestWhatChangedEmailCount(t *testing.T) {
	ctx := context.Background()
	src, store, engine := setup(t, 100)
	uc := memory.New(ctx, engine, adapter.NewFileStorage(t.TempDir()), memory.WithClock(fixedClock()))

	_, err := uc.UpdateKnowledge(ctx)
	gt.NoError(t, err)

	src.n = 105
	_, err = store.Reload(ctx)
	gt.NoError(t, err)
	_, err = uc.UpdateKnowledge(ctx)
	gt.NoError(t, err)

	report := uc.WhatChanged(1)
	gt.False(t, report.Insufficient())
	gt.Equal(t, report.Version, 3)
	gt.True(t, len(report.Changes) > 0)
	gt.Equal(t, *report.Changes[0], model.Change{
		Type:     model.ChangeEmailCount,
		Previous: 100,
		Current:  105,
		Delta:    5,
	})

	// 105 records: boss 100 to 105, user0..2 each gain one or two
	byPerson := map[string]*model.Change{}
	for _, c := range report.Changes[1:] {
		gt.Equal(t, c.Type, model.ChangeCommunicatorActivity)
		byPerson[c.Person] = c
	}
	gt.Equal(t, byPerson["boss@x.com"].Delta, 5)
	gt.Equal(t, byPerson["user0@x.com"].Delta, 1)
	gt.Equal(t, byPerson["user1@x.com"].Delta, 2)
}

// The first snapshot is compared against an all-zero previous version and the
// days argument has no effect.
func TestWhatChangedFirstSnapshotQuirks(t *testing.T) {
	ctx := context.Background()
	_, _, engine := setup(t, 3)
	uc := memory.New(ctx, engine, adapter.NewFileStorage(t.TempDir()))

	_, err := uc.UpdateKnowledge(ctx)
	gt.NoError(t, err)

	report := uc.WhatChanged(1)
	gt.Equal(t, report.Changes[0].Previous, 0)
	gt.Equal(t, report.Changes[0].Delta, 3)

	other := uc.WhatChanged(30)
	gt.Equal(t, len(other.Changes), len(report.Changes))
}

// Communicators who drop out of the top list are not reported.
func TestWhatChangedIgnoresDroppedCommunicators(t *testing.T) {
	ctx := context.Background()
	records := []*model.Record{{Sender: "gone@x.com", Receivers: []string{"b@x.com"}}}
	store := record.New(record.SourceFunc(func(ctx context.Context) ([]*model.Record, error) {
		return records, nil
	}))
	engine, err := analytics.New(ctx, store)
	gt.NoError(t, err)
	uc := memory.New(ctx, engine, adapter.NewFileStorage(t.TempDir()))

	_, err = uc.UpdateKnowledge(ctx)
	gt.NoError(t, err)

	records = []*model.Record{{Sender: "new@x.com", Receivers: []string{"b@x.com"}}}
	_, err = store.Reload(ctx)
	gt.NoError(t, err)
	_, err = uc.UpdateKnowledge(ctx)
	gt.NoError(t, err)

	report := uc.WhatChanged(1)
	gt.A(t, report.Changes).Length(1)
	gt.Equal(t, report.Changes[0].Person, "new@x.com")
}

func TestWhatChangedNoChangesKeepsEmptyList(t *testing.T) {
	ctx := context.Background()
	_, _, engine := setup(t, 3)
	uc := memory.New(ctx, engine, adapter.NewFileStorage(t.TempDir()))

	data, err := json.Marshal(uc.WhatChanged(1))
	gt.NoError(t, err)
	var insufficient map[string]any
	gt.NoError(t, json.Unmarshal(data, &insufficient))
	_, ok := insufficient["changes"]
	gt.False(t, ok)

	for range 2 {
		_, err := uc.UpdateKnowledge(ctx)
		gt.NoError(t, err)
	}

	data, err = json.Marshal(uc.WhatChanged(1))
	gt.NoError(t, err)
	var raw map[string]any
	gt.NoError(t, json.Unmarshal(data, &raw))
	gt.Equal(t, raw["changes"], any([]any{}))
}

func TestWhatChangedCurrentSnapshotMissing(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, adapter.WriteAll(ctx, storage, memory.DefaultKey, []byte(`{"version": 3, "knowledge_base": {}}`)))
	_, _, engine := setup(t, 1)

	uc := memory.New(ctx, engine, storage)
	gt.Equal(t, uc.KnowledgeVersion(), 3)
	gt.S(t, uc.WhatChanged(1).Message).Contains("Current version not found")
}

func TestCorruptDocumentResets(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, adapter.WriteAll(ctx, storage, memory.DefaultKey, []byte(`{"version": 7, `)))
	_, _, engine := setup(t, 1)

	uc := memory.New(ctx, engine, storage)
	gt.Equal(t, uc.KnowledgeVersion(), 1)

	update, err := uc.UpdateKnowledge(ctx)
	gt.NoError(t, err)
	gt.Equal(t, update.Version, 2)
}

type failingStorage struct {
	adapter.Storage
}

func (s *failingStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, goerr.Wrap(adapter.ErrObjectNotFound, "empty")
}

func (s *failingStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	return nil, goerr.New("disk full")
}

func TestUpdateKnowledgeFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	_, _, engine := setup(t, 5)
	uc := memory.New(ctx, engine, &failingStorage{})

	_, err := uc.UpdateKnowledge(ctx)
	gt.Error(t, err)
	gt.Equal(t, uc.KnowledgeVersion(), 1)
	gt.Equal(t, len(uc.Document().KnowledgeBase), 0)
}

func TestDocumentFormat(t *testing.T) {
	ctx := context.Background()
	_, _, engine := setup(t, 2)
	storage := adapter.NewFileStorage(t.TempDir())
	uc := memory.New(ctx, engine, storage)

	_, err := uc.UpdateKnowledge(ctx)
	gt.NoError(t, err)

	data, err := adapter.ReadAll(ctx, storage, memory.DefaultKey)
	gt.NoError(t, err)

	var raw map[string]any
	gt.NoError(t, json.Unmarshal(data, &raw))
	gt.Equal(t, raw["version"], any(float64(2)))

	snapshot := raw["knowledge_base"].(map[string]any)["v2"].(map[string]any)
	top := snapshot["top_communicators"].([]any)
	gt.Equal(t, top[0], any([]any{"boss@x.com", float64(2)}))
}
