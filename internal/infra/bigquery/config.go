// Package bigquery implements the warehouse repositories on Google
// BigQuery. Each operation comes in two forms: a convenience variant that
// opens its own client, and a WithClient variant for callers that hold a
// shared client.
package bigquery

import "os"

var (
	projectID = envOr("BQ_PROJECT_ID", "expense-intel-prod")
	datasetID = envOr("BQ_DATASET_ID", "expense")
)

const (
	notificationsTable = "notifications"
	transactionsTable  = "transactions"
	usageSessionsTable = "app_usage_sessions"
	aliasesTable       = "merchant_aliases"
	subscriptionsTable = "subscriptions"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
