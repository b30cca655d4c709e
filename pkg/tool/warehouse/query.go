package warehouse

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
	"google.golang.org/genai"
)

func parseArgs(fc genai.FunctionCall, v any) error {
	raw, err := json.Marshal(fc.Args)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal function arguments")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return goerr.Wrap(err, "failed to parse function arguments", goerr.V("name", fc.Name))
	}
	return nil
}

func (t *Tool) runQuery(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := parseArgs(fc, &in); err != nil {
		return nil, err
	}
	if in.Query == "" {
		return nil, goerr.New("query is required")
	}

	// Query failures go back to the model so it can fix the SQL.
	scanned, err := t.bq.DryRun(ctx, in.Query)
	if err != nil {
		return failure(fc.Name, "query validation failed: %v", err), nil
	}

	limit := t.scanLimitMB * 1024 * 1024
	if scanned > limit {
		return failure(fc.Name,
			"query would scan %.2f MB, over the limit of %d MB; narrow the date range or select fewer columns",
			float64(scanned)/1024/1024, t.scanLimitMB), nil
	}

	jobID, err := t.bq.Query(ctx, in.Query)
	if err != nil {
		return failure(fc.Name, "query failed: %v", err), nil
	}

	rows, err := t.bq.GetQueryResult(ctx, jobID)
	if err != nil {
		return failure(fc.Name, "failed to read query result: %v", err), nil
	}
	t.results[jobID] = rows

	logging.From(ctx).Debug("warehouse query done", "job_id", jobID, "rows", len(rows), "scanned", scanned)

	return &genai.FunctionResponse{
		Name: fc.Name,
		Response: map[string]any{
			"job_id": jobID,
			"rows":   len(rows),
		},
	}, nil
}

func (t *Tool) readResult(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	var in struct {
		JobID  string `json:"job_id"`
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
	}
	if err := parseArgs(fc, &in); err != nil {
		return nil, err
	}
	if in.JobID == "" {
		return nil, goerr.New("job_id is required")
	}

	if in.Limit <= 0 {
		in.Limit = defaultPageRows
	}
	in.Limit = min(in.Limit, int(t.pageLimitRows))
	in.Offset = max(in.Offset, 0)

	rows, ok := t.results[in.JobID]
	if !ok {
		return failure(fc.Name, "job %q not found", in.JobID), nil
	}

	start := min(in.Offset, len(rows))
	end := min(start+in.Limit, len(rows))
	page := rows[start:end]

	data, err := json.Marshal(page)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to format rows", goerr.V("job_id", in.JobID))
	}

	return &genai.FunctionResponse{
		Name: fc.Name,
		Response: map[string]any{
			"total":    len(rows),
			"returned": len(page),
			"offset":   in.Offset,
			"limit":    in.Limit,
			"rows":     string(data),
			"has_more": end < len(rows),
		},
	}, nil
}
