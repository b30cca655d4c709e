package warehouse

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

type savedQuery struct {
	ID          string
	Title       string
	Description string
	SQL         string
}

// loadSavedQueries reads every .sql file in dir. The ID is the file name
// without extension; leading "-- title:" and "-- description:" comments
// become metadata.
func loadSavedQueries(dir string) (map[string]*savedQuery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read saved query directory", goerr.V("dir", dir))
	}

	saved := make(map[string]*savedQuery)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read saved query", goerr.V("file", path))
		}

		q := parseSavedQuery(string(data))
		q.ID = strings.TrimSuffix(entry.Name(), ".sql")
		saved[q.ID] = q
	}
	return saved, nil
}

func parseSavedQuery(content string) *savedQuery {
	q := &savedQuery{}
	var body []string
	header := true

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if header && strings.HasPrefix(trimmed, "--") {
			comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "--"))
			switch {
			case strings.HasPrefix(comment, "title:"):
				q.Title = strings.TrimSpace(strings.TrimPrefix(comment, "title:"))
			case strings.HasPrefix(comment, "description:"):
				q.Description = strings.TrimSpace(strings.TrimPrefix(comment, "description:"))
			}
			continue
		}
		if trimmed != "" {
			header = false
		}
		body = append(body, line)
	}

	q.SQL = strings.TrimSpace(strings.Join(body, "\n"))
	return q
}

func (t *Tool) getSavedQuery(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var in struct {
		ID string `json:"id"`
	}
	if err := parseArgs(fc, &in); err != nil {
		return nil, err
	}

	q, ok := t.saved[in.ID]
	if !ok {
		resp := failure(fc.Name, "saved query %q not found", in.ID)
		resp.Response["available"] = t.savedIDs()
		return resp, nil
	}

	return &genai.FunctionResponse{
		Name: fc.Name,
		Response: map[string]any{
			"id":          q.ID,
			"title":       q.Title,
			"description": q.Description,
			"sql":         q.SQL,
		},
	}, nil
}
