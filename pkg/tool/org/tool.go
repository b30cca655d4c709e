package org

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/tool"
	"github.com/m-mizutani/orgintel/pkg/usecase/coordinator"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const (
	FuncSearchRecords            = "search_records"
	FuncGetStakeholders          = "get_stakeholders"
	FuncGetCommunicationPatterns = "get_communication_patterns"
	FuncGetInsights              = "get_insights"
)

// Tool exposes the organizational analytics to the LLM
type Tool struct {
	recordLimit int64
	bodyPreview int64

	engine      *analytics.Engine
	coordinator *coordinator.UseCase
}

// New creates a new org tool
func New() *Tool {
	return &Tool{
		recordLimit: 10,
		bodyPreview: 300,
	}
}

var _ tool.Tool = (*Tool)(nil)
var _ tool.Initializer = (*Tool)(nil)

// Flags returns CLI flags for the org tool
func (t *Tool) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "tool-record-limit",
			Usage:       "Maximum number of records returned by search_records",
			Value:       10,
			Sources:     cli.EnvVars("ORGINTEL_TOOL_RECORD_LIMIT"),
			Destination: &t.recordLimit,
		},
		&cli.IntFlag{
			Name:        "tool-body-preview",
			Usage:       "Number of body characters returned per record by search_records",
			Value:       300,
			Sources:     cli.EnvVars("ORGINTEL_TOOL_BODY_PREVIEW"),
			Destination: &t.bodyPreview,
		},
	}
}

// Init binds the tool to the analytics engine. It is disabled without one.
func (t *Tool) Init(ctx context.Context, client *tool.Client) (bool, error) {
	if client == nil || client.Engine == nil {
		return false, nil
	}
	t.engine = client.Engine
	t.coordinator = client.Coordinator
	if t.coordinator == nil {
		t.coordinator = coordinator.New(client.Engine)
	}
	return true, nil
}

// Prompt returns additional information to be added to the system prompt
func (t *Tool) Prompt(ctx context.Context) string {
	if t.engine == nil {
		return ""
	}
	records := t.engine.Store().Records()
	return fmt.Sprintf("### Organization data\n\n%d email records are available through the %s, %s, %s and %s functions.",
		len(records), FuncSearchRecords, FuncGetStakeholders, FuncGetCommunicationPatterns, FuncGetInsights)
}

// Spec returns the tool specification for Gemini function calling
func (t *Tool) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        FuncSearchRecords,
				Description: fmt.Sprintf("Search email records whose subject or body contains a keyword (case-insensitive). Returns at most %d records.", t.recordLimit),
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"keyword": {
							Type:        genai.TypeString,
							Description: "Keyword to search for",
						},
						"fields": {
							Type:        genai.TypeArray,
							Description: "Fields to search (default: subject and body)",
							Items: &genai.Schema{
								Type: genai.TypeString,
								Enum: []string{"sender", "subject", "body"},
							},
						},
					},
					Required: []string{"keyword"},
				},
			},
			{
				Name:        FuncGetStakeholders,
				Description: "Rank stakeholders for a topic, or the correspondents of a person, or the top communicators of the organization when neither is given",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"topic": {
							Type:        genai.TypeString,
							Description: "Topic keyword",
						},
						"person": {
							Type:        genai.TypeString,
							Description: "Email address of a person",
						},
					},
				},
			},
			{
				Name:        FuncGetCommunicationPatterns,
				Description: "Get sent and received counts and top correspondents of a person",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"email": {
							Type:        genai.TypeString,
							Description: "Email address of the person",
						},
					},
					Required: []string{"email"},
				},
			},
			{
				Name:        FuncGetInsights,
				Description: "Get organization wide statistics: totals, date range and top communicators",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{},
				},
			},
		},
	}
}

// Execute runs the tool with the given function call
func (t *Tool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	if t.engine == nil {
		return nil, goerr.New("org tool is not initialized")
	}

	switch fc.Name {
	case FuncSearchRecords:
		return t.executeSearchRecords(ctx, fc)
	case FuncGetStakeholders:
		return t.executeGetStakeholders(ctx, fc)
	case FuncGetCommunicationPatterns:
		return t.executeGetCommunicationPatterns(ctx, fc)
	case FuncGetInsights:
		return t.executeGetInsights(ctx, fc)
	default:
		return nil, goerr.New("unknown function", goerr.V("name", fc.Name))
	}
}

func parseArgs(fc genai.FunctionCall, v any) error {
	paramsJSON, err := json.Marshal(fc.Args)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal function arguments")
	}
	if err := json.Unmarshal(paramsJSON, v); err != nil {
		return goerr.Wrap(err, "failed to parse input parameters")
	}
	return nil
}

func errorResponse(name, format string, args ...any) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		Name: name,
		Response: map[string]any{
			"error": fmt.Sprintf(format, args...),
		},
	}
}
