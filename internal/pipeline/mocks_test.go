package pipeline_test

import (
	"context"
	"time"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/domain"
	"github.com/dvloznov/expense-intel/internal/insight"
)

// MockNotificationRepository is a mock implementation of NotificationRepository.
type MockNotificationRepository struct {
	InsertNotificationFunc     func(ctx context.Context, row *bq.NotificationRow) error
	ListNotificationsSinceFunc func(ctx context.Context, since time.Time) ([]*bq.NotificationRow, error)

	Inserted []*bq.NotificationRow
}

func (m *MockNotificationRepository) InsertNotification(ctx context.Context, row *bq.NotificationRow) error {
	m.Inserted = append(m.Inserted, row)
	if m.InsertNotificationFunc != nil {
		return m.InsertNotificationFunc(ctx, row)
	}
	return nil
}

func (m *MockNotificationRepository) ListNotificationsSince(ctx context.Context, since time.Time) ([]*bq.NotificationRow, error) {
	if m.ListNotificationsSinceFunc != nil {
		return m.ListNotificationsSinceFunc(ctx, since)
	}
	return nil, nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	InsertTransactionsFunc           func(ctx context.Context, rows []*bq.TransactionRow) error
	QueryTransactionsByDateRangeFunc func(ctx context.Context, start, end time.Time) ([]*bq.TransactionRow, error)
	HasTransactionWithAmountFunc     func(ctx context.Context, amount string, from, to time.Time) (bool, error)

	Inserted []*bq.TransactionRow
}

func (m *MockTransactionRepository) InsertTransactions(ctx context.Context, rows []*bq.TransactionRow) error {
	m.Inserted = append(m.Inserted, rows...)
	if m.InsertTransactionsFunc != nil {
		return m.InsertTransactionsFunc(ctx, rows)
	}
	return nil
}

func (m *MockTransactionRepository) QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]*bq.TransactionRow, error) {
	if m.QueryTransactionsByDateRangeFunc != nil {
		return m.QueryTransactionsByDateRangeFunc(ctx, start, end)
	}
	return nil, nil
}

func (m *MockTransactionRepository) HasTransactionWithAmount(ctx context.Context, amount string, from, to time.Time) (bool, error) {
	if m.HasTransactionWithAmountFunc != nil {
		return m.HasTransactionWithAmountFunc(ctx, amount, from, to)
	}
	return false, nil
}

// MockUsageRepository is a mock implementation of UsageRepository.
type MockUsageRepository struct {
	InsertUsageSessionsFunc     func(ctx context.Context, rows []*bq.UsageSessionRow) error
	ListUsageSessionsBetweenFunc func(ctx context.Context, from, to time.Time) ([]*bq.UsageSessionRow, error)
}

func (m *MockUsageRepository) InsertUsageSessions(ctx context.Context, rows []*bq.UsageSessionRow) error {
	if m.InsertUsageSessionsFunc != nil {
		return m.InsertUsageSessionsFunc(ctx, rows)
	}
	return nil
}

func (m *MockUsageRepository) ListUsageSessionsBetween(ctx context.Context, from, to time.Time) ([]*bq.UsageSessionRow, error) {
	if m.ListUsageSessionsBetweenFunc != nil {
		return m.ListUsageSessionsBetweenFunc(ctx, from, to)
	}
	return nil, nil
}

// MockAliasRepository is a mock implementation of AliasRepository.
type MockAliasRepository struct {
	FindAliasFunc   func(ctx context.Context, normalizedName string) (*bq.MerchantAliasRow, error)
	UpsertAliasFunc func(ctx context.Context, row *bq.MerchantAliasRow) error
	TouchAliasFunc  func(ctx context.Context, normalizedName string) error

	Touched []string
}

func (m *MockAliasRepository) FindAlias(ctx context.Context, normalizedName string) (*bq.MerchantAliasRow, error) {
	if m.FindAliasFunc != nil {
		return m.FindAliasFunc(ctx, normalizedName)
	}
	return nil, nil
}

func (m *MockAliasRepository) UpsertAlias(ctx context.Context, row *bq.MerchantAliasRow) error {
	if m.UpsertAliasFunc != nil {
		return m.UpsertAliasFunc(ctx, row)
	}
	return nil
}

func (m *MockAliasRepository) TouchAlias(ctx context.Context, normalizedName string) error {
	m.Touched = append(m.Touched, normalizedName)
	if m.TouchAliasFunc != nil {
		return m.TouchAliasFunc(ctx, normalizedName)
	}
	return nil
}

// MockEnricher is a mock implementation of Enricher.
type MockEnricher struct {
	GenerateInsightFunc func(ctx context.Context, txn domain.Transaction, corr domain.CorrelationResult) (insight.Insight, error)
}

func (m *MockEnricher) GenerateInsight(ctx context.Context, txn domain.Transaction, corr domain.CorrelationResult) (insight.Insight, error) {
	if m.GenerateInsightFunc != nil {
		return m.GenerateInsightFunc(ctx, txn, corr)
	}
	return insight.Insight{}, nil
}

// MockVerifier is a mock implementation of PaymentVerifier.
type MockVerifier struct {
	VerifyPaymentFunc func(ctx context.Context, text string) bool
}

func (m *MockVerifier) VerifyPayment(ctx context.Context, text string) bool {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, text)
	}
	return false
}
