package record

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/orgintel/pkg/adapter"
	"github.com/m-mizutani/orgintel/pkg/model"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

type bigQuerySource struct {
	client    adapter.BigQuery
	query     string
	scanLimit int64
}

// BigQueryOption configures a BigQuery record source.
type BigQueryOption func(*bigQuerySource)

// WithScanLimit rejects queries whose dry run reports more than limit bytes.
// Zero disables the check.
func WithScanLimit(limit int64) BigQueryOption {
	return func(s *bigQuerySource) {
		s.scanLimit = limit
	}
}

// NewBigQuerySource reads records from the rows of query. The query must
// return the columns sender, receiver, subject, timestamp and body; receiver
// may be a repeated or a comma separated string column.
func NewBigQuerySource(client adapter.BigQuery, query string, opts ...BigQueryOption) Source {
	s := &bigQuerySource{client: client, query: query}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bigQuerySource) Fetch(ctx context.Context) ([]*model.Record, error) {
	logger := logging.From(ctx)

	if s.scanLimit > 0 {
		bytes, err := s.client.DryRun(ctx, s.query)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to dry run record query")
		}
		if bytes > s.scanLimit {
			return nil, goerr.New("record query exceeds scan limit",
				goerr.V("bytes", bytes),
				goerr.V("limit", s.scanLimit))
		}
		logger.Debug("record query dry run", "bytes", bytes)
	}

	jobID, err := s.client.Query(ctx, s.query)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run record query")
	}

	rows, err := s.client.GetQueryResult(ctx, jobID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get record query result", goerr.V("job_id", jobID))
	}

	records := make([]*model.Record, 0, len(rows))
	for i, row := range rows {
		record, err := rowToRecord(row)
		if err != nil {
			logger.Warn("skip record", "index", i, "error", goerr.Wrap(model.ErrParseSkipped, err.Error(), goerr.V("job_id", jobID)))
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

func rowToRecord(row map[string]any) (*model.Record, error) {
	sender, err := stringColumn(row, "sender")
	if err != nil {
		return nil, err
	}
	subject, err := stringColumn(row, "subject")
	if err != nil {
		return nil, err
	}
	body, err := stringColumn(row, "body")
	if err != nil {
		return nil, err
	}

	var timestamp string
	var parsed *time.Time
	switch v := row["timestamp"].(type) {
	case nil:
	case time.Time:
		timestamp = v.Format(time.RFC3339)
		parsed = &v
	case string:
		timestamp = v
		parsed = ParseTimestamp(v)
	default:
		return nil, goerr.New("unexpected timestamp column type", goerr.V("type", fmt.Sprintf("%T", v)))
	}

	receivers := []string{}
	switch v := row["receiver"].(type) {
	case nil:
	case string:
		receivers = splitAddresses(v)
	case []bigquery.Value:
		for _, item := range v {
			if s, ok := item.(string); ok {
				receivers = append(receivers, s)
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				receivers = append(receivers, s)
			}
		}
	default:
		return nil, goerr.New("unexpected receiver column type", goerr.V("type", fmt.Sprintf("%T", v)))
	}

	return &model.Record{
		Sender:     sender,
		Receivers:  receivers,
		Subject:    subject,
		Timestamp:  timestamp,
		Body:       body,
		ParsedTime: parsed,
	}, nil
}

func stringColumn(row map[string]any, name string) (string, error) {
	switch v := row[name].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", goerr.New("unexpected column type", goerr.V("column", name), goerr.V("type", fmt.Sprintf("%T", v)))
	}
}
