package org_test

import (
	"context"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/tool"
	"github.com/m-mizutani/orgintel/pkg/tool/org"
	"google.golang.org/genai"
)

func newRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	ctx := context.Background()
	records := []*model.Record{
		{Sender: "a@x.com", Receivers: []string{"b@x.com"}, Subject: "Budget plan", Body: strings.Repeat("x", 400)},
		{Sender: "b@x.com", Receivers: []string{"a@x.com"}, Subject: "Re: Budget plan", Body: "ok"},
		{Sender: "a@x.com", Receivers: []string{"c@x.com"}, Subject: "Lunch", Body: "budget friendly place"},
	}
	engine, err := analytics.New(ctx, record.New(record.Static(records)))
	gt.NoError(t, err)

	registry := tool.New(org.New())
	gt.NoError(t, registry.Init(ctx, &tool.Client{Engine: engine}))
	return registry
}

func TestSpec(t *testing.T) {
	spec := org.New().Spec()
	gt.NotNil(t, spec)
	gt.A(t, spec.FunctionDeclarations).Length(4)

	names := []string{}
	for _, fd := range spec.FunctionDeclarations {
		names = append(names, fd.Name)
		gt.NotEqual(t, fd.Description, "")
	}
	gt.Equal(t, names, []string{
		org.FuncSearchRecords,
		org.FuncGetStakeholders,
		org.FuncGetCommunicationPatterns,
		org.FuncGetInsights,
	})
}

func TestDisabledWithoutEngine(t *testing.T) {
	registry := tool.New(org.New())
	gt.NoError(t, registry.Init(context.Background(), &tool.Client{}))
	gt.A(t, registry.Specs()).Length(0)

	_, err := registry.Execute(context.Background(), genai.FunctionCall{Name: org.FuncGetInsights})
	gt.Error(t, err)
}

func TestSearchRecords(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)

	resp, err := registry.Execute(ctx, genai.FunctionCall{
		Name: org.FuncSearchRecords,
		Args: map[string]any{"keyword": "BUDGET"},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Name, org.FuncSearchRecords)
	gt.Equal(t, resp.Response["total"], any(3))

	resp, err = registry.Execute(ctx, genai.FunctionCall{
		Name: org.FuncSearchRecords,
		Args: map[string]any{"keyword": "budget", "fields": []any{"subject"}},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response["total"], any(2))

	resp, err = registry.Execute(ctx, genai.FunctionCall{
		Name: org.FuncSearchRecords,
		Args: map[string]any{"keyword": "budget", "fields": []any{"cc"}},
	})
	gt.NoError(t, err)
	gt.NotNil(t, resp.Response["error"])

	resp, err = registry.Execute(ctx, genai.FunctionCall{
		Name: org.FuncSearchRecords,
		Args: map[string]any{"keyword": "  "},
	})
	gt.NoError(t, err)
	gt.NotNil(t, resp.Response["error"])
}

func TestGetStakeholders(t *testing.T) {
	resp, err := newRegistry(t).Execute(context.Background(), genai.FunctionCall{
		Name: org.FuncGetStakeholders,
		Args: map[string]any{"topic": "budget"},
	})
	gt.NoError(t, err)

	report, ok := resp.Response["result"].(*model.StakeholderReport)
	gt.True(t, ok)
	gt.Equal(t, report.TotalEmails, 3)
	gt.Equal(t, report.Stakeholders[0].Email, "a@x.com")
}

func TestGetCommunicationPatterns(t *testing.T) {
	ctx := context.Background()
	registry := newRegistry(t)

	resp, err := registry.Execute(ctx, genai.FunctionCall{
		Name: org.FuncGetCommunicationPatterns,
		Args: map[string]any{"email": "a@x.com"},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response["sent_count"], any(2))
	gt.Equal(t, resp.Response["received_count"], any(1))

	resp, err = registry.Execute(ctx, genai.FunctionCall{Name: org.FuncGetCommunicationPatterns})
	gt.NoError(t, err)
	gt.NotNil(t, resp.Response["error"])
}

func TestGetInsights(t *testing.T) {
	resp, err := newRegistry(t).Execute(context.Background(), genai.FunctionCall{Name: org.FuncGetInsights})
	gt.NoError(t, err)

	insights, ok := resp.Response["result"].(*model.Insights)
	gt.True(t, ok)
	gt.Equal(t, insights.TotalEmails, 3)
}

func TestUnknownFunction(t *testing.T) {
	_, err := newRegistry(t).Execute(context.Background(), genai.FunctionCall{Name: "delete_everything"})
	gt.Error(t, err)
}

func TestPrompt(t *testing.T) {
	registry := newRegistry(t)
	gt.S(t, registry.Prompts(context.Background())).Contains("3 email records")
}
