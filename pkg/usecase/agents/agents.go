package agents

import (
	"context"

	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/usecase/coordinator"
	"github.com/m-mizutani/orgintel/pkg/usecase/critic"
	"github.com/m-mizutani/orgintel/pkg/usecase/memory"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

// Agent names written to the agent log
const (
	AgentMemory      = "MemoryAgent"
	AgentCritic      = "CriticAgent"
	AgentCoordinator = "CoordinatorAgent"
	AgentWhatChanged = "WhatChanged"
)

// Recorder stores agent outputs. agentlog.Logger implements it.
type Recorder interface {
	Append(ctx context.Context, agent string, output any) (*model.AgentLogEntry, error)
}

// Runner runs the reasoning agents and records each output
type Runner struct {
	memory      *memory.UseCase
	critic      *critic.UseCase
	coordinator *coordinator.UseCase
	recorder    Recorder
}

// Option is a functional option for Runner
type Option func(*Runner)

// WithRecorder records every agent output to recorder
func WithRecorder(recorder Recorder) Option {
	return func(r *Runner) {
		r.recorder = recorder
	}
}

func New(memory *memory.UseCase, critic *critic.UseCase, coordinator *coordinator.UseCase, opts ...Option) *Runner {
	r := &Runner{
		memory:      memory,
		critic:      critic,
		coordinator: coordinator,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Memory takes a new knowledge snapshot
func (r *Runner) Memory(ctx context.Context) (*model.KnowledgeUpdate, error) {
	result, err := r.memory.UpdateKnowledge(ctx)
	if err != nil {
		return nil, err
	}
	r.record(ctx, AgentMemory, result)
	return result, nil
}

// WhatChanged compares the two latest knowledge snapshots
func (r *Runner) WhatChanged(ctx context.Context, days int) *model.ChangeReport {
	result := r.memory.WhatChanged(days)
	r.record(ctx, AgentWhatChanged, result)
	return result
}

// Critic detects conflicts and duplicated topics
func (r *Runner) Critic(ctx context.Context) (*model.CriticReport, error) {
	result, err := r.critic.Review(ctx)
	if err != nil {
		return nil, err
	}
	r.record(ctx, AgentCritic, result)
	return result, nil
}

// Coordinator returns stakeholder relevance when topic is set, otherwise the
// stakeholders of person, otherwise the most involved people overall.
func (r *Runner) Coordinator(ctx context.Context, topic, person string) any {
	var result any
	switch {
	case topic != "":
		result = r.coordinator.GetStakeholderRelevance(topic)
	case person != "":
		result = r.coordinator.GetStakeholders("", person)
	default:
		result = r.coordinator.GetStakeholders("", "")
	}
	r.record(ctx, AgentCoordinator, result)
	return result
}

// record failures are logged; the agent result is still returned
func (r *Runner) record(ctx context.Context, agent string, output any) {
	if r.recorder == nil {
		return
	}
	if _, err := r.recorder.Append(ctx, agent, output); err != nil {
		logging.From(ctx).Warn("failed to record agent output", "agent", agent, "error", err)
	}
}
