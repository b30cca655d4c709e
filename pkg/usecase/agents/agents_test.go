package agents_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/usecase/agentlog"
	"github.com/m-mizutani/orgintel/pkg/usecase/agents"
	"github.com/m-mizutani/orgintel/pkg/usecase/coordinator"
	"github.com/m-mizutani/orgintel/pkg/usecase/critic"
	"github.com/m-mizutani/orgintel/pkg/usecase/memory"
)

type failingRecorder struct{}

func (failingRecorder) Append(ctx context.Context, agent string, output any) (*model.AgentLogEntry, error) {
	return nil, errors.New("disk full")
}

func newRunner(t *testing.T, opts ...agents.Option) *agents.Runner {
	t.Helper()
	ctx := context.Background()
	records := []*model.Record{
		{Sender: "a@x.com", Receivers: []string{"b@x.com"}, Subject: "Budget review"},
		{Sender: "b@x.com", Receivers: []string{"a@x.com"}, Subject: "Re: Budget review"},
	}
	engine, err := analytics.New(ctx, record.New(record.Static(records)))
	gt.NoError(t, err)

	return agents.New(
		memory.New(ctx, engine, adapter.NewFileStorage(t.TempDir())),
		critic.New(engine),
		coordinator.New(engine),
		opts...,
	)
}

func TestRunnerRecordsOutputs(t *testing.T) {
	ctx := context.Background()
	log := agentlog.New(adapter.NewFileStorage(t.TempDir()))
	runner := newRunner(t, agents.WithRecorder(log))

	update, err := runner.Memory(ctx)
	gt.NoError(t, err)
	gt.Equal(t, update.Version, 2)

	report, err := runner.Critic(ctx)
	gt.NoError(t, err)
	gt.Equal(t, report.Summary, "Found 0 potential conflicts and 0 topic clusters")

	changes := runner.WhatChanged(ctx, 1)
	gt.True(t, changes.Insufficient())

	relevance, ok := runner.Coordinator(ctx, "budget", "").(*model.RelevanceReport)
	gt.True(t, ok)
	gt.Equal(t, relevance.Topic, "budget")

	stakeholders, ok := runner.Coordinator(ctx, "", "a@x.com").(*model.StakeholderReport)
	gt.True(t, ok)
	gt.Equal(t, stakeholders.Person, "a@x.com")

	all, ok := runner.Coordinator(ctx, "", "").(*model.StakeholderReport)
	gt.True(t, ok)
	gt.Equal(t, all.Type, coordinator.StakeholderTypeAll)

	entries, err := log.Entries(ctx)
	gt.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Agent)
	}
	gt.Equal(t, names, []string{
		agents.AgentMemory,
		agents.AgentCritic,
		agents.AgentWhatChanged,
		agents.AgentCoordinator,
		agents.AgentCoordinator,
		agents.AgentCoordinator,
	})
}

func TestRunnerIgnoresRecorderFailure(t *testing.T) {
	runner := newRunner(t, agents.WithRecorder(failingRecorder{}))
	update, err := runner.Memory(context.Background())
	gt.NoError(t, err)
	gt.Equal(t, update.Version, 2)
}
