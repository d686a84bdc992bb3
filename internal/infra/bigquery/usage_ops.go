package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
)

// InsertUsageSessions inserts a batch of usage session rows.
func InsertUsageSessions(ctx context.Context, rows []*bq.UsageSessionRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertUsageSessions: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertUsageSessionsWithClient(ctx, client, rows)
}

// InsertUsageSessionsWithClient inserts a batch of usage session rows using
// the provided BigQuery client.
func InsertUsageSessionsWithClient(ctx context.Context, client *bigquery.Client, rows []*bq.UsageSessionRow) error {
	if len(rows) == 0 {
		return nil
	}
	for _, r := range rows {
		if r.CreatedTS.IsZero() {
			r.CreatedTS = time.Now()
		}
	}

	inserter := client.DatasetInProject(projectID, datasetID).Table(usageSessionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertUsageSessions: inserting rows: %w", err)
	}
	return nil
}

// ListUsageSessionsBetween retrieves sessions overlapping [from, to].
func ListUsageSessionsBetween(ctx context.Context, from, to time.Time) ([]*bq.UsageSessionRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListUsageSessionsBetween: bigquery client: %w", err)
	}
	defer client.Close()

	return ListUsageSessionsBetweenWithClient(ctx, client, from, to)
}

// ListUsageSessionsBetweenWithClient retrieves sessions overlapping [from, to]
// using the provided BigQuery client. A session still open at `to` qualifies.
func ListUsageSessionsBetweenWithClient(ctx context.Context, client *bigquery.Client, from, to time.Time) ([]*bq.UsageSessionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			session_id,
			app_id,
			start_ts,
			end_ts,
			duration_seconds,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE end_ts >= @from_ts
		  AND start_ts <= @to_ts
		ORDER BY end_ts
	`, projectID, datasetID, usageSessionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "from_ts", Value: from},
		{Name: "to_ts", Value: to},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListUsageSessionsBetween: query read: %w", err)
	}

	var rows []*bq.UsageSessionRow
	for {
		var r bq.UsageSessionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUsageSessionsBetween: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
