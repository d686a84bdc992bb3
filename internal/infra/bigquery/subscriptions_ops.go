package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
)

// UpsertSubscription inserts the subscription or refreshes an existing one
// keyed by normalized_name.
func UpsertSubscription(ctx context.Context, row *bq.SubscriptionRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("UpsertSubscription: bigquery client: %w", err)
	}
	defer client.Close()

	return UpsertSubscriptionWithClient(ctx, client, row)
}

// UpsertSubscriptionWithClient upserts a subscription using the provided
// BigQuery client.
func UpsertSubscriptionWithClient(ctx context.Context, client *bigquery.Client, row *bq.SubscriptionRow) error {
	if row.NormalizedName == "" {
		return fmt.Errorf("UpsertSubscriptionWithClient: normalized_name cannot be empty")
	}

	amount, _ := row.Amount.Float64()
	q := client.Query(fmt.Sprintf(`
		MERGE `+"`%s.%s.%s`"+` t
		USING (SELECT @normalized_name AS normalized_name) s
		ON t.normalized_name = s.normalized_name
		WHEN MATCHED THEN UPDATE SET
			merchant_name = @merchant_name,
			amount = @amount,
			frequency = @frequency,
			confidence = @confidence,
			last_charged_ts = @last_charged_ts,
			next_expected_ts = @next_expected_ts,
			times_detected = @times_detected,
			is_active = TRUE,
			updated_ts = @updated_ts
		WHEN NOT MATCHED THEN INSERT (
			merchant_name, normalized_name, amount, frequency, confidence,
			last_charged_ts, next_expected_ts, times_detected, is_active, updated_ts
		) VALUES (
			@merchant_name, @normalized_name, @amount, @frequency, @confidence,
			@last_charged_ts, @next_expected_ts, @times_detected, TRUE, @updated_ts
		)
	`, projectID, datasetID, subscriptionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "merchant_name", Value: row.MerchantName},
		{Name: "normalized_name", Value: row.NormalizedName},
		{Name: "amount", Value: amount},
		{Name: "frequency", Value: row.Frequency},
		{Name: "confidence", Value: row.Confidence},
		{Name: "last_charged_ts", Value: row.LastChargedTS},
		{Name: "next_expected_ts", Value: row.NextExpectedTS},
		{Name: "times_detected", Value: row.TimesDetected},
		{Name: "updated_ts", Value: time.Now()},
	}

	return runDML(ctx, q, "UpsertSubscription")
}

// ListActiveSubscriptions retrieves active subscriptions sorted by
// times_detected descending.
func ListActiveSubscriptions(ctx context.Context) ([]*bq.SubscriptionRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("ListActiveSubscriptions: bigquery client: %w", err)
	}
	defer client.Close()

	return ListActiveSubscriptionsWithClient(ctx, client)
}

// ListActiveSubscriptionsWithClient retrieves active subscriptions using
// the provided BigQuery client.
func ListActiveSubscriptionsWithClient(ctx context.Context, client *bigquery.Client) ([]*bq.SubscriptionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			merchant_name,
			normalized_name,
			amount,
			frequency,
			confidence,
			last_charged_ts,
			next_expected_ts,
			times_detected,
			is_active,
			updated_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE is_active
		ORDER BY times_detected DESC
	`, projectID, datasetID, subscriptionsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListActiveSubscriptions: query read: %w", err)
	}

	var rows []*bq.SubscriptionRow
	for {
		var r bq.SubscriptionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListActiveSubscriptions: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// DeactivateSubscriptionsNotIn marks subscriptions whose normalized_name is
// absent from keep as inactive. An empty keep deactivates everything.
func DeactivateSubscriptionsNotIn(ctx context.Context, keep []string) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("DeactivateSubscriptionsNotIn: bigquery client: %w", err)
	}
	defer client.Close()

	return DeactivateSubscriptionsNotInWithClient(ctx, client, keep)
}

// DeactivateSubscriptionsNotInWithClient deactivates stale subscriptions
// using the provided BigQuery client.
func DeactivateSubscriptionsNotInWithClient(ctx context.Context, client *bigquery.Client, keep []string) error {
	if keep == nil {
		keep = []string{}
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE `+"`%s.%s.%s`"+`
		SET is_active = FALSE,
		    updated_ts = @now
		WHERE is_active
		  AND normalized_name NOT IN UNNEST(@keep)
	`, projectID, datasetID, subscriptionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "now", Value: time.Now()},
		{Name: "keep", Value: keep},
	}

	return runDML(ctx, q, "DeactivateSubscriptionsNotIn")
}
