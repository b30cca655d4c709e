package org

import (
	"context"
	"strings"

	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"google.golang.org/genai"
)

type recordView struct {
	Sender    string   `json:"sender"`
	Receivers []string `json:"receivers"`
	Subject   string   `json:"subject"`
	Timestamp string   `json:"timestamp"`
	Body      string   `json:"body"`
}

func (t *Tool) executeSearchRecords(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var in struct {
		Keyword string   `json:"keyword"`
		Fields  []string `json:"fields"`
	}
	if err := parseArgs(fc, &in); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Keyword) == "" {
		return errorResponse(fc.Name, "keyword is required"), nil
	}

	fields := make([]model.SearchField, 0, len(in.Fields))
	for _, f := range in.Fields {
		field := model.SearchField(f)
		if _, ok := (&model.Record{}).Field(field); !ok {
			return errorResponse(fc.Name, "unsupported field: %s", f), nil
		}
		fields = append(fields, field)
	}

	matches := record.FilterByKeyword(t.engine.Store().Records(), in.Keyword, fields...)
	limit := int(t.recordLimit)
	shown := matches
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	views := make([]recordView, 0, len(shown))
	for _, r := range shown {
		views = append(views, recordView{
			Sender:    r.Sender,
			Receivers: r.Receivers,
			Subject:   r.Subject,
			Timestamp: r.Timestamp,
			Body:      truncate(r.Body, int(t.bodyPreview)),
		})
	}

	return &genai.FunctionResponse{
		Name: fc.Name,
		Response: map[string]any{
			"total":   len(matches),
			"records": views,
		},
	}, nil
}

func (t *Tool) executeGetStakeholders(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var in struct {
		Topic  string `json:"topic"`
		Person string `json:"person"`
	}
	if err := parseArgs(fc, &in); err != nil {
		return nil, err
	}

	report := t.coordinator.GetStakeholders(in.Topic, in.Person)
	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": report},
	}, nil
}

func (t *Tool) executeGetCommunicationPatterns(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var in struct {
		Email string `json:"email"`
	}
	if err := parseArgs(fc, &in); err != nil {
		return nil, err
	}
	if in.Email == "" {
		return errorResponse(fc.Name, "email is required"), nil
	}

	patterns := t.engine.CommunicationPatterns(in.Email)
	return &genai.FunctionResponse{
		Name: fc.Name,
		Response: map[string]any{
			"sent_count":           patterns.SentCount,
			"received_count":       patterns.ReceivedCount,
			"total_communications": patterns.TotalCommunications,
			"top_correspondents":   patterns.TopCorrespondents,
		},
	}, nil
}

func (t *Tool) executeGetInsights(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": t.engine.OrganizationalInsights()},
	}, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
