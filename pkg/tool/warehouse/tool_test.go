package warehouse_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/tool"
	"github.com/m-mizutani/orgintel/pkg/tool/warehouse"
	"google.golang.org/genai"
)

type mockBigQuery struct {
	adapter.BigQuery
	scanned int64
	rows    []map[string]any
	queries []string
}

func (m *mockBigQuery) DryRun(ctx context.Context, query string) (int64, error) {
	return m.scanned, nil
}

func (m *mockBigQuery) Query(ctx context.Context, query string) (string, error) {
	m.queries = append(m.queries, query)
	return "job-1", nil
}

func (m *mockBigQuery) GetQueryResult(ctx context.Context, jobID string) ([]map[string]any, error) {
	return m.rows, nil
}

func newRegistry(t *testing.T, bq adapter.BigQuery, opts ...warehouse.Option) *tool.Registry {
	t.Helper()
	opts = append(opts, warehouse.WithBigQuery(bq))
	registry := tool.New(warehouse.New(opts...))
	gt.NoError(t, registry.Init(context.Background(), &tool.Client{}))
	return registry
}

func TestDisabledWithoutProject(t *testing.T) {
	registry := tool.New(warehouse.New())
	gt.NoError(t, registry.Init(context.Background(), &tool.Client{}))
	gt.A(t, registry.Specs()).Length(0)
}

func TestQueryAndResult(t *testing.T) {
	ctx := context.Background()
	bq := &mockBigQuery{
		scanned: 1024,
		rows: []map[string]any{
			{"sender": "a@x.com", "n": 3},
			{"sender": "b@x.com", "n": 2},
			{"sender": "c@x.com", "n": 1},
		},
	}
	registry := newRegistry(t, bq)
	gt.Equal(t, registry.Names(), []string{warehouse.FuncQuery, warehouse.FuncResult})

	resp, err := registry.Execute(ctx, genai.FunctionCall{
		Name: warehouse.FuncQuery,
		Args: map[string]any{"query": "SELECT sender, COUNT(*) n FROM mail GROUP BY sender"},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response["job_id"], any("job-1"))
	gt.Equal(t, resp.Response["rows"], any(3))
	gt.A(t, bq.queries).Length(1)

	t.Run("first page", func(t *testing.T) {
		resp, err := registry.Execute(ctx, genai.FunctionCall{
			Name: warehouse.FuncResult,
			Args: map[string]any{"job_id": "job-1", "limit": 2},
		})
		gt.NoError(t, err)
		gt.Equal(t, resp.Response["returned"], any(2))
		gt.Equal(t, resp.Response["has_more"], any(true))

		var rows []map[string]any
		gt.NoError(t, json.Unmarshal([]byte(resp.Response["rows"].(string)), &rows))
		gt.Equal(t, rows[0]["sender"], any("a@x.com"))
	})

	t.Run("offset past the end", func(t *testing.T) {
		resp, err := registry.Execute(ctx, genai.FunctionCall{
			Name: warehouse.FuncResult,
			Args: map[string]any{"job_id": "job-1", "offset": 10},
		})
		gt.NoError(t, err)
		gt.Equal(t, resp.Response["returned"], any(0))
		gt.Equal(t, resp.Response["has_more"], any(false))
	})

	t.Run("unknown job", func(t *testing.T) {
		resp, err := registry.Execute(ctx, genai.FunctionCall{
			Name: warehouse.FuncResult,
			Args: map[string]any{"job_id": "nope"},
		})
		gt.NoError(t, err)
		gt.NotEqual(t, resp.Response["error"], nil)
	})
}

func TestQueryOverScanLimit(t *testing.T) {
	bq := &mockBigQuery{scanned: 2 * 1024 * 1024 * 1024}
	registry := newRegistry(t, bq)

	resp, err := registry.Execute(context.Background(), genai.FunctionCall{
		Name: warehouse.FuncQuery,
		Args: map[string]any{"query": "SELECT * FROM mail"},
	})
	gt.NoError(t, err)
	gt.NotEqual(t, resp.Response["error"], nil)
	gt.A(t, bq.queries).Length(0)
}

func TestQueryRequired(t *testing.T) {
	registry := newRegistry(t, &mockBigQuery{})
	_, err := registry.Execute(context.Background(), genai.FunctionCall{
		Name: warehouse.FuncQuery,
		Args: map[string]any{},
	})
	gt.Error(t, err)
}

func TestSavedQueries(t *testing.T) {
	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "weekly.sql"), []byte(
		"-- title: Weekly volume\n-- description: emails per week\nSELECT 1\n-- trailing\n"), 0o600))
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	ctx := context.Background()
	registry := newRegistry(t, &mockBigQuery{}, warehouse.WithSavedQueryDir(dir))
	gt.A(t, registry.Names()).Length(3)
	gt.True(t, len(registry.Prompts(ctx)) > 0)

	resp, err := registry.Execute(ctx, genai.FunctionCall{
		Name: warehouse.FuncSavedQuery,
		Args: map[string]any{"id": "weekly"},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response["title"], any("Weekly volume"))
	gt.Equal(t, resp.Response["description"], any("emails per week"))
	gt.Equal(t, resp.Response["sql"], any("SELECT 1\n-- trailing"))

	resp, err = registry.Execute(ctx, genai.FunctionCall{
		Name: warehouse.FuncSavedQuery,
		Args: map[string]any{"id": "missing"},
	})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response["available"].([]string), []string{"weekly"})
}

func TestSavedQueryDirMissing(t *testing.T) {
	registry := tool.New(warehouse.New(
		warehouse.WithBigQuery(&mockBigQuery{}),
		warehouse.WithSavedQueryDir(filepath.Join(t.TempDir(), "none")),
	))
	gt.Error(t, registry.Init(context.Background(), &tool.Client{}))
}
