package agentlog_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/usecase/agentlog"
)

func TestAppend(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewFileStorage(t.TempDir())
	logger := agentlog.New(storage)

	entries, err := logger.Entries(ctx)
	gt.NoError(t, err)
	gt.A(t, entries).Length(0)

	first, err := logger.Append(ctx, "MemoryAgent", map[string]any{"version": 2})
	gt.NoError(t, err)
	gt.NotEqual(t, first.ID, "")

	_, err = logger.Append(ctx, "CriticAgent", map[string]any{"summary": "none"})
	gt.NoError(t, err)

	entries, err = logger.Entries(ctx)
	gt.NoError(t, err)
	gt.A(t, entries).Length(2)
	gt.Equal(t, entries[0].ID, first.ID)
	gt.Equal(t, entries[0].Agent, "MemoryAgent")
	gt.Equal(t, entries[0].Output, any(map[string]any{"version": float64(2)}))
	gt.Equal(t, entries[1].Agent, "CriticAgent")
}

func TestAppendKeepsLatest(t *testing.T) {
	ctx := context.Background()
	logger := agentlog.New(adapter.NewFileStorage(t.TempDir()), agentlog.WithLimit(3))

	for i := 0; i < 5; i++ {
		_, err := logger.Append(ctx, "WhatChanged", i)
		gt.NoError(t, err)
	}

	entries, err := logger.Entries(ctx)
	gt.NoError(t, err)
	gt.A(t, entries).Length(3)
	gt.Equal(t, entries[0].Output, any(float64(2)))
	gt.Equal(t, entries[2].Output, any(float64(4)))
}

func TestAppendReplacesUnreadableLog(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewFileStorage(t.TempDir())
	gt.NoError(t, adapter.WriteAll(ctx, storage, agentlog.DefaultKey, []byte("not json")))

	logger := agentlog.New(storage)
	_, err := logger.Entries(ctx)
	gt.Error(t, err)

	_, err = logger.Append(ctx, "CoordinatorAgent", "ok")
	gt.NoError(t, err)

	entries, err := logger.Entries(ctx)
	gt.NoError(t, err)
	gt.A(t, entries).Length(1)
}
