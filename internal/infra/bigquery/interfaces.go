package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
)

// Re-export interfaces from the shared package.
type NotificationRepository = bq.NotificationRepository
type TransactionRepository = bq.TransactionRepository
type UsageRepository = bq.UsageRepository
type AliasRepository = bq.AliasRepository
type SubscriptionRepository = bq.SubscriptionRepository

// Warehouse implements all repository interfaces over a single shared
// BigQuery client to avoid opening a new connection per operation.
type Warehouse struct {
	client *bigquery.Client
}

// NewWarehouse creates a Warehouse with a shared BigQuery client.
func NewWarehouse(ctx context.Context) (*Warehouse, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewWarehouse: creating client: %w", err)
	}
	return &Warehouse{client: client}, nil
}

// Close closes the BigQuery client connection.
func (w *Warehouse) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// InsertNotification delegates to InsertNotificationWithClient.
func (w *Warehouse) InsertNotification(ctx context.Context, row *bq.NotificationRow) error {
	return InsertNotificationWithClient(ctx, w.client, row)
}

// ListNotificationsSince delegates to ListNotificationsSinceWithClient.
func (w *Warehouse) ListNotificationsSince(ctx context.Context, since time.Time) ([]*bq.NotificationRow, error) {
	return ListNotificationsSinceWithClient(ctx, w.client, since)
}

// InsertTransactions delegates to InsertTransactionsWithClient.
func (w *Warehouse) InsertTransactions(ctx context.Context, rows []*bq.TransactionRow) error {
	return InsertTransactionsWithClient(ctx, w.client, rows)
}

// QueryTransactionsByDateRange delegates to QueryTransactionsByDateRangeWithClient.
func (w *Warehouse) QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]*bq.TransactionRow, error) {
	return QueryTransactionsByDateRangeWithClient(ctx, w.client, start, end)
}

// HasTransactionWithAmount delegates to HasTransactionWithAmountWithClient.
func (w *Warehouse) HasTransactionWithAmount(ctx context.Context, amount string, from, to time.Time) (bool, error) {
	return HasTransactionWithAmountWithClient(ctx, w.client, amount, from, to)
}

// InsertUsageSessions delegates to InsertUsageSessionsWithClient.
func (w *Warehouse) InsertUsageSessions(ctx context.Context, rows []*bq.UsageSessionRow) error {
	return InsertUsageSessionsWithClient(ctx, w.client, rows)
}

// ListUsageSessionsBetween delegates to ListUsageSessionsBetweenWithClient.
func (w *Warehouse) ListUsageSessionsBetween(ctx context.Context, from, to time.Time) ([]*bq.UsageSessionRow, error) {
	return ListUsageSessionsBetweenWithClient(ctx, w.client, from, to)
}

// FindAlias delegates to FindAliasWithClient.
func (w *Warehouse) FindAlias(ctx context.Context, normalizedName string) (*bq.MerchantAliasRow, error) {
	return FindAliasWithClient(ctx, w.client, normalizedName)
}

// UpsertAlias delegates to UpsertAliasWithClient.
func (w *Warehouse) UpsertAlias(ctx context.Context, row *bq.MerchantAliasRow) error {
	return UpsertAliasWithClient(ctx, w.client, row)
}

// TouchAlias delegates to TouchAliasWithClient.
func (w *Warehouse) TouchAlias(ctx context.Context, normalizedName string) error {
	return TouchAliasWithClient(ctx, w.client, normalizedName)
}

// UpsertSubscription delegates to UpsertSubscriptionWithClient.
func (w *Warehouse) UpsertSubscription(ctx context.Context, row *bq.SubscriptionRow) error {
	return UpsertSubscriptionWithClient(ctx, w.client, row)
}

// ListActiveSubscriptions delegates to ListActiveSubscriptionsWithClient.
func (w *Warehouse) ListActiveSubscriptions(ctx context.Context) ([]*bq.SubscriptionRow, error) {
	return ListActiveSubscriptionsWithClient(ctx, w.client)
}

// DeactivateSubscriptionsNotIn delegates to DeactivateSubscriptionsNotInWithClient.
func (w *Warehouse) DeactivateSubscriptionsNotIn(ctx context.Context, keep []string) error {
	return DeactivateSubscriptionsNotInWithClient(ctx, w.client, keep)
}

var (
	_ NotificationRepository = (*Warehouse)(nil)
	_ TransactionRepository  = (*Warehouse)(nil)
	_ UsageRepository        = (*Warehouse)(nil)
	_ AliasRepository        = (*Warehouse)(nil)
	_ SubscriptionRepository = (*Warehouse)(nil)
)
