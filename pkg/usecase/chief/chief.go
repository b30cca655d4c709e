package chief

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/analytics"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/record"
	"github.com/m-mizutani/orgintel/pkg/tool"
	"google.golang.org/genai"
)

//go:embed prompt/system.md
var systemPromptRaw string

//go:embed prompt/context.md
var contextPromptRaw string

//go:embed prompt/query.md
var queryPromptRaw string

var (
	systemPromptTmpl  = template.Must(template.New("system").Parse(systemPromptRaw))
	contextPromptTmpl = template.Must(template.New("context").Parse(contextPromptRaw))
	queryPromptTmpl   = template.Must(template.New("query").Parse(queryPromptRaw))
)

const (
	relevantRecordLimit = 5
	contextTopLimit     = 5
	bodyPreviewLength   = 500
	minKeywordLength    = 3

	defaultMaxRounds   = 8
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

// UseCase answers free text questions about the organization with Gemini.
type UseCase struct {
	engine      *analytics.Engine
	gemini      adapter.Gemini
	registry    *tool.Registry
	maxRounds   int
	temperature float32
	maxTokens   int32
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithRegistry lets the model call the tools of registry
func WithRegistry(registry *tool.Registry) Option {
	return func(uc *UseCase) {
		uc.registry = registry
	}
}

// WithMaxRounds bounds the number of generate calls per question
func WithMaxRounds(n int) Option {
	return func(uc *UseCase) {
		uc.maxRounds = n
	}
}

// New creates a chief UseCase. gemini is required.
func New(engine *analytics.Engine, gemini adapter.Gemini, opts ...Option) (*UseCase, error) {
	if gemini == nil {
		return nil, goerr.Wrap(model.ErrConfigurationMissing, "LLM client is required")
	}

	uc := &UseCase{
		engine:      engine,
		gemini:      gemini,
		maxRounds:   defaultMaxRounds,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc, nil
}

// Query answers question. When includeRecords is true, up to five records
// matching words of the question are added to the prompt.
func (u *UseCase) Query(ctx context.Context, question string, includeRecords bool) (*model.Answer, error) {
	var records []*model.Record
	if includeRecords {
		records = u.RelevantRecords(question, relevantRecordLimit)
	}

	prompt, err := u.queryPrompt(question, records)
	if err != nil {
		return nil, err
	}

	config, err := u.config(ctx)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	response, _, err := u.generate(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to answer query", goerr.V("query", question))
	}

	return &model.Answer{
		Query:               question,
		Response:            response,
		RelevantRecordCount: len(records),
		Model:               u.gemini.Model(),
	}, nil
}

// AnalyzePerson returns the communication patterns of email with an LLM
// analysis of the person's role.
func (u *UseCase) AnalyzePerson(ctx context.Context, email string) (*model.PersonAnalysis, error) {
	patterns := u.engine.CommunicationPatterns(email)

	question := fmt.Sprintf("Analyze the communication patterns and role of %s in the organization.", email)
	answer, err := u.Query(ctx, question, false)
	if err != nil {
		return nil, err
	}

	return &model.PersonAnalysis{
		Email:      email,
		Patterns:   patterns,
		AIAnalysis: answer.Response,
	}, nil
}

// RelevantRecords searches subject and body for every word of question
// longer than three characters and returns up to limit distinct records in
// the order found.
func (u *UseCase) RelevantRecords(question string, limit int) []*model.Record {
	records := u.engine.Store().Records()
	seen := make(map[model.RecordKey]struct{})
	var result []*model.Record

	for _, keyword := range strings.Fields(strings.ToLower(question)) {
		if utf8.RuneCountInString(keyword) <= minKeywordLength {
			continue
		}
		for _, r := range record.FilterByKeyword(records, keyword) {
			key := r.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			result = append(result, r)
			if len(result) >= limit {
				return result
			}
		}
	}
	return result
}

// OrganizationContext renders the organization summary given to the model.
func (u *UseCase) OrganizationContext() (string, error) {
	insights := u.engine.OrganizationalInsights()
	top := insights.TopCommunicators
	if len(top) > contextTopLimit {
		top = top[:contextTopLimit]
	}

	var buf bytes.Buffer
	if err := contextPromptTmpl.Execute(&buf, map[string]any{
		"Insights": insights,
		"Earliest": orUnknown(insights.DateRange.Earliest),
		"Latest":   orUnknown(insights.DateRange.Latest),
		"Top":      top,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute context prompt template")
	}
	return buf.String(), nil
}

type promptRecord struct {
	Index   int
	From    string
	To      string
	Subject string
	Date    string
	Body    string
}

func (u *UseCase) queryPrompt(question string, records []*model.Record) (string, error) {
	orgContext, err := u.OrganizationContext()
	if err != nil {
		return "", err
	}

	views := make([]promptRecord, 0, len(records))
	for i, r := range records {
		views = append(views, promptRecord{
			Index:   i + 1,
			From:    withDefault(r.Sender, "Unknown"),
			To:      strings.Join(r.Receivers, ", "),
			Subject: withDefault(r.Subject, "No subject"),
			Date:    withDefault(r.Timestamp, "Unknown"),
			Body:    preview(r.Body, bodyPreviewLength),
		})
	}

	var buf bytes.Buffer
	if err := queryPromptTmpl.Execute(&buf, map[string]any{
		"Context": orgContext,
		"Records": views,
		"Query":   question,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute query prompt template")
	}
	return buf.String(), nil
}

func (u *UseCase) systemPrompt(ctx context.Context) (string, error) {
	var toolPrompts string
	if u.registry != nil {
		toolPrompts = u.registry.Prompts(ctx)
	}

	var buf bytes.Buffer
	if err := systemPromptTmpl.Execute(&buf, map[string]any{
		"ToolPrompts": toolPrompts,
	}); err != nil {
		return "", goerr.Wrap(err, "failed to execute system prompt template")
	}
	return buf.String(), nil
}

func (u *UseCase) config(ctx context.Context) (*genai.GenerateContentConfig, error) {
	system, err := u.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, ""),
		Temperature:       genai.Ptr(u.temperature),
		MaxOutputTokens:   u.maxTokens,
	}
	if u.registry != nil {
		config.Tools = u.registry.Specs()
	}
	return config, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func withDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orUnknown(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}
