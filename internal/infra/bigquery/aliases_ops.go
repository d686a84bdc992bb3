package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
)

// FindAlias retrieves an alias by normalized merchant name. Returns nil
// when the merchant has never been tagged.
func FindAlias(ctx context.Context, normalizedName string) (*bq.MerchantAliasRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("FindAlias: bigquery client: %w", err)
	}
	defer client.Close()

	return FindAliasWithClient(ctx, client, normalizedName)
}

// FindAliasWithClient retrieves an alias using the provided BigQuery client.
func FindAliasWithClient(ctx context.Context, client *bigquery.Client, normalizedName string) (*bq.MerchantAliasRow, error) {
	if normalizedName == "" {
		return nil, fmt.Errorf("FindAliasWithClient: normalized_name cannot be empty")
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			merchant_name,
			normalized_name,
			category,
			subcategory,
			user_note,
			times_used,
			last_used_ts,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE normalized_name = @normalized_name
		LIMIT 1
	`, projectID, datasetID, aliasesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "normalized_name", Value: normalizedName},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindAlias: query read: %w", err)
	}

	var row bq.MerchantAliasRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindAlias: iter next: %w", err)
	}
	return &row, nil
}

// UpsertAlias inserts the alias or updates the category, subcategory and
// note of an existing one, keyed by normalized_name.
func UpsertAlias(ctx context.Context, row *bq.MerchantAliasRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("UpsertAlias: bigquery client: %w", err)
	}
	defer client.Close()

	return UpsertAliasWithClient(ctx, client, row)
}

// UpsertAliasWithClient upserts an alias using the provided BigQuery client.
func UpsertAliasWithClient(ctx context.Context, client *bigquery.Client, row *bq.MerchantAliasRow) error {
	if row.NormalizedName == "" {
		return fmt.Errorf("UpsertAliasWithClient: normalized_name cannot be empty")
	}

	q := client.Query(fmt.Sprintf(`
		MERGE `+"`%s.%s.%s`"+` t
		USING (SELECT @normalized_name AS normalized_name) s
		ON t.normalized_name = s.normalized_name
		WHEN MATCHED THEN UPDATE SET
			merchant_name = @merchant_name,
			category = @category,
			subcategory = @subcategory,
			user_note = @user_note
		WHEN NOT MATCHED THEN INSERT (
			merchant_name, normalized_name, category, subcategory, user_note,
			times_used, last_used_ts, created_ts
		) VALUES (
			@merchant_name, @normalized_name, @category, @subcategory, @user_note,
			0, NULL, @created_ts
		)
	`, projectID, datasetID, aliasesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "merchant_name", Value: row.MerchantName},
		{Name: "normalized_name", Value: row.NormalizedName},
		{Name: "category", Value: row.Category},
		{Name: "subcategory", Value: row.Subcategory.StringVal},
		{Name: "user_note", Value: row.UserNote.StringVal},
		{Name: "created_ts", Value: time.Now()},
	}

	return runDML(ctx, q, "UpsertAlias")
}

// TouchAlias increments times_used and refreshes last_used_ts.
func TouchAlias(ctx context.Context, normalizedName string) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("TouchAlias: bigquery client: %w", err)
	}
	defer client.Close()

	return TouchAliasWithClient(ctx, client, normalizedName)
}

// TouchAliasWithClient increments usage using the provided BigQuery client.
func TouchAliasWithClient(ctx context.Context, client *bigquery.Client, normalizedName string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE `+"`%s.%s.%s`"+`
		SET times_used = times_used + 1,
		    last_used_ts = @now
		WHERE normalized_name = @normalized_name
	`, projectID, datasetID, aliasesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "now", Value: time.Now()},
		{Name: "normalized_name", Value: normalizedName},
	}

	return runDML(ctx, q, "TouchAlias")
}

func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
