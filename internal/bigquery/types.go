// Package bigquery defines the warehouse row types and repository
// interfaces shared by the ingestion pipeline, the API and the batch
// commands. Concrete implementations live in internal/infra/bigquery.
package bigquery

import (
	"context"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/expense-intel/internal/domain"
)

// NotificationRepository stores raw notification events before parsing.
type NotificationRepository interface {
	// InsertNotification inserts a single raw notification row.
	InsertNotification(ctx context.Context, row *NotificationRow) error

	// ListNotificationsSince retrieves notifications posted at or after the
	// given time, oldest first.
	ListNotificationsSince(ctx context.Context, since time.Time) ([]*NotificationRow, error)
}

// TransactionRepository stores parsed, enriched transactions.
type TransactionRepository interface {
	// InsertTransactions inserts a batch of TransactionRow.
	InsertTransactions(ctx context.Context, rows []*TransactionRow) error

	// QueryTransactionsByDateRange queries transactions within the date range,
	// oldest first.
	QueryTransactionsByDateRange(ctx context.Context, start, end time.Time) ([]*TransactionRow, error)

	// HasTransactionWithAmount reports whether any transaction with the given
	// raw amount string was posted in [from, to).
	HasTransactionWithAmount(ctx context.Context, amount string, from, to time.Time) (bool, error)
}

// UsageRepository stores app usage sessions used for correlation.
type UsageRepository interface {
	// InsertUsageSessions inserts a batch of usage session rows.
	InsertUsageSessions(ctx context.Context, rows []*UsageSessionRow) error

	// ListUsageSessionsBetween retrieves sessions overlapping [from, to],
	// including sessions still open at `to`.
	ListUsageSessionsBetween(ctx context.Context, from, to time.Time) ([]*UsageSessionRow, error)
}

// AliasRepository stores user-taught merchant categorizations.
type AliasRepository interface {
	// FindAlias retrieves an alias by normalized merchant name, or nil when
	// the merchant has never been tagged.
	FindAlias(ctx context.Context, normalizedName string) (*MerchantAliasRow, error)

	// UpsertAlias inserts the alias or updates the category, subcategory and
	// note of an existing one.
	UpsertAlias(ctx context.Context, row *MerchantAliasRow) error

	// TouchAlias increments times_used and refreshes last_used_ts.
	TouchAlias(ctx context.Context, normalizedName string) error
}

// SubscriptionRepository stores detected recurring charges.
type SubscriptionRepository interface {
	// UpsertSubscription inserts the subscription or refreshes an existing
	// one keyed by normalized_name.
	UpsertSubscription(ctx context.Context, row *SubscriptionRow) error

	// ListActiveSubscriptions retrieves active subscriptions sorted by
	// times_detected descending.
	ListActiveSubscriptions(ctx context.Context) ([]*SubscriptionRow, error)

	// DeactivateSubscriptionsNotIn marks subscriptions whose normalized_name
	// is absent from keep as inactive. An empty keep deactivates everything.
	DeactivateSubscriptionsNotIn(ctx context.Context, keep []string) error
}

// NotificationRow represents a raw notification record in BigQuery.
type NotificationRow struct {
	NotificationID string    `bigquery:"notification_id"`
	SourceApp      string    `bigquery:"source_app"`
	Title          string    `bigquery:"title"`
	Text           string    `bigquery:"text"`
	PostedTS       time.Time `bigquery:"posted_ts"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// Event converts the row back to the domain event.
func (r *NotificationRow) Event() domain.NotificationEvent {
	return domain.NotificationEvent{
		SourceApp: r.SourceApp,
		Title:     r.Title,
		Text:      r.Text,
		PostedAt:  r.PostedTS,
	}
}

// TransactionRow represents an enriched transaction record in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id" json:"transaction_id"`

	SourceApp string `bigquery:"source_app" json:"source_app"`
	Title     string `bigquery:"title" json:"title"`
	RawText   string `bigquery:"raw_text" json:"raw_text"`

	PostedTS   time.Time  `bigquery:"posted_ts" json:"posted_ts"`
	PostedDate civil.Date `bigquery:"posted_date" json:"posted_date"`

	// Amount keeps the string exactly as it appeared in the notification;
	// AmountValue is the parsed NUMERIC used for aggregation.
	Amount      string   `bigquery:"amount" json:"amount"`
	AmountValue *big.Rat `bigquery:"amount_value" json:"-"`

	Merchant string `bigquery:"merchant" json:"merchant"`
	Channel  string `bigquery:"channel" json:"channel"`

	Category      bigquery.NullString `bigquery:"category" json:"category,omitempty"`
	Subcategory   bigquery.NullString `bigquery:"subcategory" json:"subcategory,omitempty"`
	CorrelatedApp bigquery.NullString `bigquery:"correlated_app" json:"correlated_app,omitempty"`
	Confidence    string              `bigquery:"confidence" json:"confidence"`
	Insight       bigquery.NullString `bigquery:"insight" json:"insight,omitempty"`
	Necessity     bigquery.NullString `bigquery:"necessity" json:"necessity,omitempty"`

	CreatedTS time.Time `bigquery:"created_ts" json:"created_ts"`
}

// Transaction converts the row back to the domain type.
func (r *TransactionRow) Transaction() domain.Transaction {
	return domain.Transaction{
		ID:            r.TransactionID,
		SourceApp:     r.SourceApp,
		Title:         r.Title,
		Text:          r.RawText,
		PostedAt:      r.PostedTS,
		Amount:        r.Amount,
		Merchant:      r.Merchant,
		Channel:       r.Channel,
		Category:      r.Category.StringVal,
		CorrelatedApp: r.CorrelatedApp.StringVal,
		Confidence:    domain.Confidence(r.Confidence),
		Insight:       r.Insight.StringVal,
	}
}

// NewTransactionRow builds a row from a domain transaction.
func NewTransactionRow(t domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID: t.ID,
		SourceApp:     t.SourceApp,
		Title:         t.Title,
		RawText:       t.Text,
		PostedTS:      t.PostedAt,
		PostedDate:    civil.DateOf(t.PostedAt),
		Amount:        t.Amount,
		Merchant:      t.Merchant,
		Channel:       t.Channel,
		Category:      nullString(t.Category),
		CorrelatedApp: nullString(t.CorrelatedApp),
		Confidence:    string(t.Confidence),
		Insight:       nullString(t.Insight),
		CreatedTS:     time.Now(),
	}
	if v := domain.AmountValue(t.Amount); v != 0 {
		row.AmountValue = new(big.Rat).SetFloat64(v)
	}
	return row
}

// UsageSessionRow represents one app usage session record in BigQuery.
type UsageSessionRow struct {
	SessionID       string    `bigquery:"session_id"`
	AppID           string    `bigquery:"app_id"`
	StartTS         time.Time `bigquery:"start_ts"`
	EndTS           time.Time `bigquery:"end_ts"`
	DurationSeconds int64     `bigquery:"duration_seconds"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// Session converts the row back to the domain type.
func (r *UsageSessionRow) Session() domain.AppUsageSession {
	return domain.AppUsageSession{
		AppID:    r.AppID,
		Start:    r.StartTS,
		End:      r.EndTS,
		Duration: time.Duration(r.DurationSeconds) * time.Second,
	}
}

// MerchantAliasRow represents a learned merchant categorization in BigQuery.
type MerchantAliasRow struct {
	MerchantName   string `bigquery:"merchant_name"`
	NormalizedName string `bigquery:"normalized_name"`

	Category    string              `bigquery:"category"`
	Subcategory bigquery.NullString `bigquery:"subcategory"`
	UserNote    bigquery.NullString `bigquery:"user_note"`

	TimesUsed  int64                  `bigquery:"times_used"`
	LastUsedTS bigquery.NullTimestamp `bigquery:"last_used_ts"`
	CreatedTS  time.Time              `bigquery:"created_ts"`
}

// Alias converts the row back to the domain type.
func (r *MerchantAliasRow) Alias() domain.MerchantAlias {
	alias := domain.MerchantAlias{
		MerchantName:   r.MerchantName,
		NormalizedName: r.NormalizedName,
		Category:       r.Category,
		Subcategory:    r.Subcategory.StringVal,
		UserNote:       r.UserNote.StringVal,
		TimesUsed:      int(r.TimesUsed),
	}
	if r.LastUsedTS.Valid {
		alias.LastUsedAt = r.LastUsedTS.Timestamp
	}
	return alias
}

// SubscriptionRow represents a detected subscription record in BigQuery.
type SubscriptionRow struct {
	MerchantName   string `bigquery:"merchant_name"`
	NormalizedName string `bigquery:"normalized_name"`

	Amount    *big.Rat `bigquery:"amount"`
	Frequency string   `bigquery:"frequency"`

	Confidence string `bigquery:"confidence"`

	LastChargedTS  time.Time `bigquery:"last_charged_ts"`
	NextExpectedTS time.Time `bigquery:"next_expected_ts"`

	TimesDetected int64 `bigquery:"times_detected"`
	IsActive      bool  `bigquery:"is_active"`

	UpdatedTS time.Time `bigquery:"updated_ts"`
}

// NewSubscriptionRow builds a row from a detected subscription.
func NewSubscriptionRow(s domain.Subscription) *SubscriptionRow {
	return &SubscriptionRow{
		MerchantName:   s.MerchantName,
		NormalizedName: s.NormalizedName,
		Amount:         new(big.Rat).SetFloat64(s.Amount),
		Frequency:      string(s.Frequency),
		Confidence:     string(s.Confidence),
		LastChargedTS:  s.LastChargedAt,
		NextExpectedTS: s.NextExpectedAt,
		TimesDetected:  int64(s.TimesDetected),
		IsActive:       s.IsActive,
	}
}

// Subscription converts the row back to the domain type.
func (r *SubscriptionRow) Subscription() domain.Subscription {
	var amount float64
	if r.Amount != nil {
		amount, _ = r.Amount.Float64()
	}
	return domain.Subscription{
		MerchantName:   r.MerchantName,
		NormalizedName: r.NormalizedName,
		Amount:         amount,
		Frequency:      domain.Frequency(r.Frequency),
		Confidence:     domain.Confidence(r.Confidence),
		LastChargedAt:  r.LastChargedTS,
		NextExpectedAt: r.NextExpectedTS,
		TimesDetected:  int(r.TimesDetected),
		IsActive:       r.IsActive,
	}
}

func nullString(s string) bigquery.NullString {
	if s == "" {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: s, Valid: true}
}
