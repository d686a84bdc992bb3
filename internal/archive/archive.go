package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
)

// Exporter writes daily snapshots of processed data to cloud storage as
// newline-delimited JSON. Exports are append-only: one object per day,
// overwritten if the export is rerun for the same date.
type Exporter struct {
	store  ObjectStore
	bucket string
}

// NewExporter creates an exporter targeting the given bucket.
func NewExporter(store ObjectStore, bucket string) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("NewExporter: object store is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("NewExporter: bucket name is required")
	}
	return &Exporter{store: store, bucket: bucket}, nil
}

type transactionRecord struct {
	ID            string `json:"id"`
	SourceApp     string `json:"source_app"`
	Title         string `json:"title,omitempty"`
	Text          string `json:"text"`
	PostedAt      string `json:"posted_at"`
	Amount        string `json:"amount"`
	Merchant      string `json:"merchant,omitempty"`
	Channel       string `json:"channel,omitempty"`
	Category      string `json:"category,omitempty"`
	CorrelatedApp string `json:"correlated_app,omitempty"`
	Confidence    string `json:"confidence,omitempty"`
	Insight       string `json:"insight,omitempty"`
}

type subscriptionRecord struct {
	MerchantName   string  `json:"merchant_name"`
	NormalizedName string  `json:"normalized_name"`
	Amount         float64 `json:"amount"`
	Frequency      string  `json:"frequency"`
	Confidence     string  `json:"confidence"`
	LastChargedAt  string  `json:"last_charged_at"`
	NextExpectedAt string  `json:"next_expected_at"`
	TimesDetected  int     `json:"times_detected"`
	IsActive       bool    `json:"is_active"`
}

// ExportTransactions writes the given transactions as one NDJSON object named
// by day, e.g. exports/transactions/2026-09-01.ndjson. It returns the GCS URI
// of the written object.
func (e *Exporter) ExportTransactions(ctx context.Context, day time.Time, txns []domain.Transaction) (string, error) {
	records := make([]any, 0, len(txns))
	for _, t := range txns {
		records = append(records, transactionRecord{
			ID:            t.ID,
			SourceApp:     t.SourceApp,
			Title:         t.Title,
			Text:          t.Text,
			PostedAt:      t.PostedAt.Format(time.RFC3339),
			Amount:        t.Amount,
			Merchant:      t.Merchant,
			Channel:       t.Channel,
			Category:      t.Category,
			CorrelatedApp: t.CorrelatedApp,
			Confidence:    string(t.Confidence),
			Insight:       t.Insight,
		})
	}

	object := fmt.Sprintf("exports/transactions/%s.ndjson", day.Format("2006-01-02"))
	return e.put(ctx, object, records)
}

// ExportSubscriptions writes the current subscription set as one NDJSON
// object named by day, e.g. exports/subscriptions/2026-09-01.ndjson.
func (e *Exporter) ExportSubscriptions(ctx context.Context, day time.Time, subs []domain.Subscription) (string, error) {
	records := make([]any, 0, len(subs))
	for _, s := range subs {
		records = append(records, subscriptionRecord{
			MerchantName:   s.MerchantName,
			NormalizedName: s.NormalizedName,
			Amount:         s.Amount,
			Frequency:      string(s.Frequency),
			Confidence:     string(s.Confidence),
			LastChargedAt:  s.LastChargedAt.Format(time.RFC3339),
			NextExpectedAt: s.NextExpectedAt.Format(time.RFC3339),
			TimesDetected:  s.TimesDetected,
			IsActive:       s.IsActive,
		})
	}

	object := fmt.Sprintf("exports/subscriptions/%s.ndjson", day.Format("2006-01-02"))
	return e.put(ctx, object, records)
}

func (e *Exporter) put(ctx context.Context, object string, records []any) (string, error) {
	var buf []byte
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			return "", fmt.Errorf("marshal export record: %w", err)
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	if err := e.store.PutObject(ctx, e.bucket, object, buf); err != nil {
		return "", fmt.Errorf("write export object %s: %w", object, err)
	}

	return fmt.Sprintf("gs://%s/%s", e.bucket, object), nil
}
