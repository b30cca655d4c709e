package adapter

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

// BigQuery is an interface for BigQuery operations used to pull records
type BigQuery interface {
	// DryRun executes a query in dry-run mode and returns the number of bytes that will be scanned
	DryRun(ctx context.Context, query string) (int64, error)

	// Query executes a query and returns the job ID
	Query(ctx context.Context, query string) (string, error)

	// GetQueryResult retrieves the result of a query job
	GetQueryResult(ctx context.Context, jobID string) ([]map[string]any, error)
}

type bigqueryClient struct {
	client   *bigquery.Client
	location string
}

// BigQueryOption is a functional option for BigQuery client
type BigQueryOption func(*bigqueryClient)

// WithLocation sets the location where query jobs run and are looked up
func WithLocation(location string) BigQueryOption {
	return func(bq *bigqueryClient) {
		bq.location = location
	}
}

// NewBigQuery creates a new BigQuery client
func NewBigQuery(ctx context.Context, projectID string, opts ...BigQueryOption) (BigQuery, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client")
	}

	bq := &bigqueryClient{
		client: client,
	}

	for _, opt := range opts {
		opt(bq)
	}

	return bq, nil
}

// DryRun executes a query in dry-run mode and returns the number of bytes that will be scanned
func (bq *bigqueryClient) DryRun(ctx context.Context, query string) (int64, error) {
	q := bq.client.Query(query)
	q.DryRun = true
	q.Location = bq.location

	job, err := q.Run(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to run dry-run query")
	}

	status := job.LastStatus()
	if status == nil || status.Statistics == nil {
		return 0, goerr.New("no statistics available from dry-run")
	}

	return status.Statistics.TotalBytesProcessed, nil
}

// Query executes a query and returns the job ID
func (bq *bigqueryClient) Query(ctx context.Context, query string) (string, error) {
	q := bq.client.Query(query)
	q.Location = bq.location

	job, err := q.Run(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to run query")
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to wait for query completion")
	}

	if status.Err() != nil {
		return "", goerr.Wrap(status.Err(), "query execution failed")
	}

	return job.ID(), nil
}

// GetQueryResult retrieves the result of a query job
func (bq *bigqueryClient) GetQueryResult(ctx context.Context, jobID string) ([]map[string]any, error) {
	var (
		job *bigquery.Job
		err error
	)
	if bq.location != "" {
		job, err = bq.client.JobFromIDLocation(ctx, jobID, bq.location)
	} else {
		job, err = bq.client.JobFromID(ctx, jobID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get job from ID",
			goerr.V("job_id", jobID), goerr.V("location", bq.location))
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read query result")
	}

	var results []map[string]any
	for {
		var row map[string]bigquery.Value
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate query result")
		}

		rowMap := make(map[string]any, len(row))
		for k, v := range row {
			rowMap[k] = v
		}
		results = append(results, rowMap)
	}

	return results, nil
}
