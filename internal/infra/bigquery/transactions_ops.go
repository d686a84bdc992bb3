package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
)

// InsertTransactions inserts a batch of TransactionRow.
func InsertTransactions(ctx context.Context, rows []*bq.TransactionRow) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return fmt.Errorf("InsertTransactions: bigquery client: %w", err)
	}
	defer client.Close()

	return InsertTransactionsWithClient(ctx, client, rows)
}

// InsertTransactionsWithClient inserts a batch of TransactionRow using the
// provided BigQuery client.
func InsertTransactionsWithClient(ctx context.Context, client *bigquery.Client, rows []*bq.TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}

	inserter := client.DatasetInProject(projectID, datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertTransactions: inserting rows: %w", err)
	}
	return nil
}

// QueryTransactionsByDateRange queries transactions within the date range.
func QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]*bq.TransactionRow, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: bigquery client: %w", err)
	}
	defer client.Close()

	return QueryTransactionsByDateRangeWithClient(ctx, client, start, end)
}

// QueryTransactionsByDateRangeWithClient queries transactions within the
// date range using the provided BigQuery client, oldest first.
func QueryTransactionsByDateRangeWithClient(ctx context.Context, client *bigquery.Client, start, end time.Time) ([]*bq.TransactionRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			source_app,
			title,
			raw_text,
			posted_ts,
			posted_date,
			amount,
			amount_value,
			merchant,
			channel,
			category,
			subcategory,
			correlated_app,
			confidence,
			insight,
			necessity,
			created_ts
		FROM `+"`%s.%s.%s`"+`
		WHERE posted_ts >= @start_ts
		  AND posted_ts <= @end_ts
		ORDER BY posted_ts
	`, projectID, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_ts", Value: start},
		{Name: "end_ts", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryTransactionsByDateRange: query read: %w", err)
	}

	var rows []*bq.TransactionRow
	for {
		var r bq.TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryTransactionsByDateRange: iter next: %w", err)
		}
		rows = append(rows, &r)
	}
	return rows, nil
}

// HasTransactionWithAmount reports whether any transaction with the given
// raw amount string was posted in [from, to).
func HasTransactionWithAmount(ctx context.Context, amount string, from, to time.Time) (bool, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("HasTransactionWithAmount: bigquery client: %w", err)
	}
	defer client.Close()

	return HasTransactionWithAmountWithClient(ctx, client, amount, from, to)
}

// HasTransactionWithAmountWithClient reports whether any transaction with
// the given raw amount string was posted in [from, to), using the provided
// BigQuery client.
func HasTransactionWithAmountWithClient(ctx context.Context, client *bigquery.Client, amount string, from, to time.Time) (bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM `+"`%s.%s.%s`"+`
		WHERE amount = @amount
		  AND posted_ts >= @from_ts
		  AND posted_ts < @to_ts
	`, projectID, datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "amount", Value: amount},
		{Name: "from_ts", Value: from},
		{Name: "to_ts", Value: to},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("HasTransactionWithAmount: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return false, fmt.Errorf("HasTransactionWithAmount: iter next: %w", err)
	}
	return row.N > 0, nil
}
