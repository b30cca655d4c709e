package warehouse

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/tool"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const (
	FuncQuery      = "warehouse_query"
	FuncResult     = "warehouse_result"
	FuncSavedQuery = "warehouse_saved_query"

	defaultPageRows = 100
)

// Tool lets the LLM run SQL against the mail warehouse in BigQuery. Rows of
// each query are kept in memory by job ID and read back page by page.
type Tool struct {
	project       string
	location      string
	table         string
	savedQueryDir string
	scanLimitMB   int64
	pageLimitRows int64

	bq      adapter.BigQuery
	saved   map[string]*savedQuery
	results map[string][]map[string]any
}

// Option is a functional option for Tool
type Option func(*Tool)

// WithBigQuery uses bq instead of connecting to the configured project
func WithBigQuery(bq adapter.BigQuery) Option {
	return func(t *Tool) {
		t.bq = bq
	}
}

// WithSavedQueryDir loads saved queries from dir on Init
func WithSavedQueryDir(dir string) Option {
	return func(t *Tool) {
		t.savedQueryDir = dir
	}
}

// New creates a warehouse tool
func New(opts ...Option) *Tool {
	t := &Tool{
		scanLimitMB:   1024,
		pageLimitRows: 1000,
		results:       make(map[string][]map[string]any),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ tool.Tool = (*Tool)(nil)
var _ tool.Initializer = (*Tool)(nil)

// Flags returns CLI flags for the warehouse tool
func (t *Tool) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "warehouse-project",
			Usage:       "Google Cloud project ID running warehouse queries; the tool is disabled when empty",
			Sources:     cli.EnvVars("ORGINTEL_WAREHOUSE_PROJECT"),
			Destination: &t.project,
		},
		&cli.StringFlag{
			Name:        "warehouse-location",
			Usage:       "BigQuery location of the warehouse",
			Sources:     cli.EnvVars("ORGINTEL_WAREHOUSE_LOCATION"),
			Destination: &t.location,
		},
		&cli.StringFlag{
			Name:        "warehouse-table",
			Usage:       "Fully qualified mail table (project.dataset.table) described to the model",
			Sources:     cli.EnvVars("ORGINTEL_WAREHOUSE_TABLE"),
			Destination: &t.table,
		},
		&cli.StringFlag{
			Name:        "warehouse-saved-query-dir",
			Usage:       "Directory of .sql files offered to the model as saved queries",
			Sources:     cli.EnvVars("ORGINTEL_WAREHOUSE_SAVED_QUERY_DIR"),
			Destination: &t.savedQueryDir,
		},
		&cli.IntFlag{
			Name:        "warehouse-scan-limit-mb",
			Usage:       "Maximum MB a query may scan, checked by dry run",
			Value:       1024,
			Sources:     cli.EnvVars("ORGINTEL_WAREHOUSE_SCAN_LIMIT_MB"),
			Destination: &t.scanLimitMB,
		},
		&cli.IntFlag{
			Name:        "warehouse-page-limit-rows",
			Usage:       "Maximum rows returned by one warehouse_result call",
			Value:       1000,
			Sources:     cli.EnvVars("ORGINTEL_WAREHOUSE_PAGE_LIMIT_ROWS"),
			Destination: &t.pageLimitRows,
		},
	}
}

// Init connects to BigQuery. The tool is disabled when neither a project
// nor a client is given.
func (t *Tool) Init(ctx context.Context, client *tool.Client) (bool, error) {
	if t.bq == nil {
		if t.project == "" {
			return false, nil
		}

		var opts []adapter.BigQueryOption
		if t.location != "" {
			opts = append(opts, adapter.WithLocation(t.location))
		}
		bq, err := adapter.NewBigQuery(ctx, t.project, opts...)
		if err != nil {
			return false, goerr.Wrap(err, "failed to create BigQuery client")
		}
		t.bq = bq
	}

	if t.savedQueryDir != "" {
		saved, err := loadSavedQueries(t.savedQueryDir)
		if err != nil {
			return false, err
		}
		t.saved = saved
	}

	return true, nil
}

// Prompt describes the mail table and the saved queries
func (t *Tool) Prompt(ctx context.Context) string {
	var lines []string

	if t.table != "" {
		lines = append(lines,
			"### Mail warehouse",
			"",
			fmt.Sprintf("Table `%s` holds one row per email with columns sender, receiver, subject, timestamp and body.", t.table),
			"Use "+FuncQuery+" for questions the loaded records cannot answer, such as long time ranges.",
		)
	}

	if len(t.saved) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "### Saved queries", "")
		for _, id := range t.savedIDs() {
			q := t.saved[id]
			line := fmt.Sprintf("- `%s`", q.ID)
			if q.Title != "" {
				line += ": " + q.Title
			}
			if q.Description != "" {
				line += " (" + q.Description + ")"
			}
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

func (t *Tool) savedIDs() []string {
	ids := make([]string, 0, len(t.saved))
	for id := range t.saved {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Spec returns the tool specification for Gemini function calling
func (t *Tool) Spec() *genai.Tool {
	declarations := []*genai.FunctionDeclaration{
		{
			Name:        FuncQuery,
			Description: fmt.Sprintf("Run a BigQuery SQL query over the mail warehouse. The query is dry run first and rejected when it would scan more than %d MB. Returns a job ID for "+FuncResult+".", t.scanLimitMB),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query": {
						Type:        genai.TypeString,
						Description: "SQL query to run",
					},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        FuncResult,
			Description: "Read rows of a finished " + FuncQuery + " job page by page",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"job_id": {
						Type:        genai.TypeString,
						Description: "Job ID returned by " + FuncQuery,
					},
					"limit": {
						Type:        genai.TypeInteger,
						Description: fmt.Sprintf("Rows to return (default %d, max %d)", defaultPageRows, t.pageLimitRows),
					},
					"offset": {
						Type:        genai.TypeInteger,
						Description: "Rows to skip (default 0)",
					},
				},
				Required: []string{"job_id"},
			},
		},
	}

	if len(t.saved) > 0 {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        FuncSavedQuery,
			Description: "Get the SQL of a saved query by ID",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"id": {
						Type:        genai.TypeString,
						Description: "Saved query ID",
					},
				},
				Required: []string{"id"},
			},
		})
	}

	return &genai.Tool{FunctionDeclarations: declarations}
}

// Execute runs the tool with the given function call
func (t *Tool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	switch fc.Name {
	case FuncQuery:
		return t.runQuery(ctx, fc)
	case FuncResult:
		return t.readResult(ctx, fc)
	case FuncSavedQuery:
		return t.getSavedQuery(ctx, fc)
	default:
		return nil, goerr.Wrap(tool.ErrToolNotFound, "unknown function", goerr.V("name", fc.Name))
	}
}

func failure(name, format string, args ...any) *genai.FunctionResponse {
	return &genai.FunctionResponse{
		Name:     name,
		Response: map[string]any{"error": fmt.Sprintf(format, args...)},
	}
}
