package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
)

// MockObjectStore records writes for assertions.
type MockObjectStore struct {
	PutObjectFunc   func(ctx context.Context, bucketName, objectName string, data []byte) error
	FetchObjectFunc func(ctx context.Context, uri string) ([]byte, error)

	Bucket string
	Object string
	Data   []byte
}

func (m *MockObjectStore) PutObject(ctx context.Context, bucketName, objectName string, data []byte) error {
	m.Bucket = bucketName
	m.Object = objectName
	m.Data = data
	if m.PutObjectFunc != nil {
		return m.PutObjectFunc(ctx, bucketName, objectName, data)
	}
	return nil
}

func (m *MockObjectStore) FetchObject(ctx context.Context, uri string) ([]byte, error) {
	if m.FetchObjectFunc != nil {
		return m.FetchObjectFunc(ctx, uri)
	}
	return nil, nil
}

func (m *MockObjectStore) ExtractFilenameFromURI(uri string) string {
	return ExtractFilenameFromURI(uri)
}

func TestExportTransactionsWritesNDJSON(t *testing.T) {
	store := &MockObjectStore{}
	exp, err := NewExporter(store, "expense-intel-exports")
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		{
			ID:        "t1",
			SourceApp: "com.phonepe.app",
			Text:      "₹183 paid to Uber India using UPI",
			PostedAt:  day.Add(9 * time.Hour),
			Amount:    "183",
			Merchant:  "Uber India",
			Channel:   "UPI",
			Category:  "Transport",
		},
		{
			ID:        "t2",
			SourceApp: "net.one97.paytm",
			Text:      "Sent ₹500 to Amit Kumar",
			PostedAt:  day.Add(12 * time.Hour),
			Amount:    "500",
			Merchant:  "Amit Kumar",
		},
	}

	uri, err := exp.ExportTransactions(context.Background(), day, txns)
	if err != nil {
		t.Fatalf("ExportTransactions failed: %v", err)
	}

	if uri != "gs://expense-intel-exports/exports/transactions/2026-09-01.ndjson" {
		t.Errorf("unexpected URI: %s", uri)
	}
	if store.Object != "exports/transactions/2026-09-01.ndjson" {
		t.Errorf("unexpected object name: %s", store.Object)
	}

	lines := strings.Split(strings.TrimRight(string(store.Data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 NDJSON lines, got %d: %q", len(lines), string(store.Data))
	}
	if !strings.Contains(lines[0], `"merchant":"Uber India"`) {
		t.Errorf("first line missing merchant: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"amount":"500"`) {
		t.Errorf("second line missing amount: %s", lines[1])
	}
	if strings.Contains(lines[1], `"category"`) {
		t.Errorf("empty category should be omitted: %s", lines[1])
	}
}

func TestExportSubscriptionsObjectName(t *testing.T) {
	store := &MockObjectStore{}
	exp, err := NewExporter(store, "expense-intel-exports")
	if err != nil {
		t.Fatalf("NewExporter failed: %v", err)
	}

	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	subs := []domain.Subscription{
		{
			MerchantName:   "Netflix",
			NormalizedName: "netflix",
			Amount:         649,
			Frequency:      domain.FrequencyMonthly,
			Confidence:     domain.ConfidenceHigh,
			TimesDetected:  3,
			IsActive:       true,
		},
	}

	uri, err := exp.ExportSubscriptions(context.Background(), day, subs)
	if err != nil {
		t.Fatalf("ExportSubscriptions failed: %v", err)
	}
	if uri != "gs://expense-intel-exports/exports/subscriptions/2026-08-15.ndjson" {
		t.Errorf("unexpected URI: %s", uri)
	}
	if !strings.Contains(string(store.Data), `"normalized_name":"netflix"`) {
		t.Errorf("payload missing subscription: %s", string(store.Data))
	}
}

func TestNewExporterValidation(t *testing.T) {
	if _, err := NewExporter(nil, "bucket"); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewExporter(&MockObjectStore{}, ""); err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestExtractFilenameFromURI(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/exports/transactions/2026-09-01.ndjson", "2026-09-01.ndjson"},
		{"gs://bucket/file.ndjson", "file.ndjson"},
		{"gs://bucket-only", "bucket-only"},
	}

	for _, tt := range tests {
		if got := ExtractFilenameFromURI(tt.uri); got != tt.want {
			t.Errorf("ExtractFilenameFromURI(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
