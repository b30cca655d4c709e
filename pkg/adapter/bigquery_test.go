package adapter_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/adapter"
)

func TestBigQuery(t *testing.T) {
	projectID := os.Getenv("TEST_BIGQUERY_PROJECT")
	if projectID == "" {
		t.Skip("TEST_BIGQUERY_PROJECT is not set")
	}

	// expected to select sender, receiver, subject, timestamp, body
	query := os.Getenv("TEST_BIGQUERY_QUERY")
	if query == "" {
		t.Skip("TEST_BIGQUERY_QUERY is not set")
	}

	ctx := context.Background()
	client, err := adapter.NewBigQuery(ctx, projectID)
	gt.NoError(t, err)

	t.Run("DryRun", func(t *testing.T) {
		bytes, err := client.DryRun(ctx, query)
		gt.NoError(t, err)
		gt.True(t, bytes > 0)
		t.Logf("Bytes scanned: %d", bytes)
	})

	t.Run("Query", func(t *testing.T) {
		jobID, err := client.Query(ctx, query)
		gt.NoError(t, err)
		gt.NotEqual(t, "", jobID)

		results, err := client.GetQueryResult(ctx, jobID)
		gt.NoError(t, err)
		gt.NotNil(t, results)
		t.Logf("Result count: %d", len(results))
	})
}
