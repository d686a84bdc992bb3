package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
)

// InsertNotification inserts a single raw notification row.
func InsertNotification(ctx context.Context, row *bq.NotificationRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertNotification: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertNotificationWithClient(ctx, client, row)
}

// InsertNotificationWithClient inserts a single raw notification row using
// the provided BigQuery client.
func InsertNotificationWithClient(ctx context.Context, client *bigquery.Client, row *bq.NotificationRow) error {
	if row.CreatedTS.IsZero() {
		row.CreatedTS = time.Now()
	}

	inserter := client.DatasetInProject(projectID, datasetID).Table(notificationsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertNotification: inserting row: %w", err)
	}
	return nil
}

// ListNotificationsSince retrieves notifications posted at or after the
// given time, oldest first.
func ListNotificationsSince(ctx context.Context, since time.Time) ([]*bq.NotificationRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListNotificationsSince: bigquery client: %w", err)
	}
	defer client.Close()

	return ListNotificationsSinceWithClient(ctx, client, since)
}

// ListNotificationsSinceWithClient retrieves notifications using the
// provided BigQuery client.
func ListNotificationsSinceWithClient(ctx context.Context, client *bigquery.Client, since time.Time) ([]*bq.NotificationRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			notification_id,
			source_app,
			title,
			text,
			posted_ts,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE posted_ts >= @since
		ORDER BY posted_ts
	`, projectID, datasetID, notificationsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "since", Value: since},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListNotificationsSince: query read: %w", err)
	}

	var rows []*bq.NotificationRow
	for {
		var r bq.NotificationRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListNotificationsSince: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}
