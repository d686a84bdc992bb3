package pipeline_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/correlate"
	"github.com/dvloznov/expense-intel/internal/dedupe"
	"github.com/dvloznov/expense-intel/internal/domain"
	"github.com/dvloznov/expense-intel/internal/insight"
	"github.com/dvloznov/expense-intel/internal/pipeline"
)

var paidAt = time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)

func newDeps(txRepo *MockTransactionRepository) pipeline.Deps {
	engine, _ := correlate.NewEngine(correlate.DefaultWindow)
	return pipeline.Deps{
		Notifications: &MockNotificationRepository{},
		Transactions:  txRepo,
		Usage:         &MockUsageRepository{},
		Aliases:       &MockAliasRepository{},
		Deduper:       dedupe.New(nil),
		Correlator:    engine,
	}
}

func uberEvent() domain.NotificationEvent {
	return domain.NotificationEvent{
		SourceApp: "com.phonepe.app",
		Title:     "Payment successful",
		Text:      "₹183 paid to Uber India using UPI",
		PostedAt:  paidAt,
	}
}

func TestProcessNotificationStoresTransaction(t *testing.T) {
	txRepo := &MockTransactionRepository{}
	deps := newDeps(txRepo)
	deps.Usage = &MockUsageRepository{
		ListUsageSessionsBetweenFunc: func(ctx context.Context, from, to time.Time) ([]*bq.UsageSessionRow, error) {
			return []*bq.UsageSessionRow{
				{
					SessionID:       "s1",
					AppID:           "com.ubercab",
					StartTS:         paidAt.Add(-3 * time.Minute),
					EndTS:           paidAt.Add(-30 * time.Second),
					DurationSeconds: 150,
				},
			}, nil
		},
	}

	state, err := pipeline.ProcessNotification(context.Background(), deps, uberEvent())
	if err != nil {
		t.Fatal(err)
	}
	if state.Skipped {
		t.Fatalf("skipped: %s", state.SkipReason)
	}
	if len(txRepo.Inserted) != 1 {
		t.Fatalf("inserted %d rows, want 1", len(txRepo.Inserted))
	}

	row := txRepo.Inserted[0]
	if row.Amount != "183" {
		t.Errorf("Amount = %q, want 183", row.Amount)
	}
	if row.Merchant != "Uber India" {
		t.Errorf("Merchant = %q, want Uber India", row.Merchant)
	}
	if row.CorrelatedApp.StringVal != "Uber" {
		t.Errorf("CorrelatedApp = %q, want Uber", row.CorrelatedApp.StringVal)
	}
	if row.Category.StringVal != "Transport" {
		t.Errorf("Category = %q, want Transport", row.Category.StringVal)
	}
	if row.Confidence != string(domain.ConfidenceHigh) {
		t.Errorf("Confidence = %q, want high", row.Confidence)
	}
}

func TestProcessNotificationDropsDuplicates(t *testing.T) {
	txRepo := &MockTransactionRepository{}
	deps := newDeps(txRepo)

	first, err := pipeline.ProcessNotification(context.Background(), deps, uberEvent())
	if err != nil || first.Skipped {
		t.Fatalf("first event should process, err=%v skip=%q", err, first.SkipReason)
	}

	second, err := pipeline.ProcessNotification(context.Background(), deps, uberEvent())
	if err != nil {
		t.Fatal(err)
	}
	if !second.Skipped || second.SkipReason != "duplicate notification" {
		t.Errorf("second event: skipped=%v reason=%q, want duplicate skip", second.Skipped, second.SkipReason)
	}
	if len(txRepo.Inserted) != 1 {
		t.Errorf("inserted %d rows, want 1", len(txRepo.Inserted))
	}
}

func TestProcessNotificationDropsSystemApps(t *testing.T) {
	txRepo := &MockTransactionRepository{}
	deps := newDeps(txRepo)

	state, err := pipeline.ProcessNotification(context.Background(), deps, domain.NotificationEvent{
		SourceApp: "com.android.systemui",
		Text:      "₹183 paid to Uber India using UPI",
		PostedAt:  paidAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !state.Skipped || state.SkipReason != "irrelevant source app" {
		t.Errorf("skipped=%v reason=%q, want irrelevant skip", state.Skipped, state.SkipReason)
	}
}

func TestProcessNotificationDropsNonPayments(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{"no amount", "your order is on the way", "no amount found"},
		{"promo with amount", "Get ₹201 off on your next purchase", "no payment verb"},
		{"cashback promo", "Get ₹500 cashback on your next order", "promotional message"},
		{"reward promo", "You could win a ₹1000 reward voucher", "promotional message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txRepo := &MockTransactionRepository{}
			deps := newDeps(txRepo)
			state, err := pipeline.ProcessNotification(context.Background(), deps, domain.NotificationEvent{
				SourceApp: "com.phonepe.app",
				Text:      tt.text,
				PostedAt:  paidAt,
			})
			if err != nil {
				t.Fatal(err)
			}
			if !state.Skipped || state.SkipReason != tt.reason {
				t.Errorf("skipped=%v reason=%q, want %q", state.Skipped, state.SkipReason, tt.reason)
			}
			if len(txRepo.Inserted) != 0 {
				t.Errorf("inserted %d rows, want 0", len(txRepo.Inserted))
			}
		})
	}
}

func TestProcessNotificationVerifierRescuesUncertain(t *testing.T) {
	txRepo := &MockTransactionRepository{}
	deps := newDeps(txRepo)
	deps.Verifier = &MockVerifier{
		VerifyPaymentFunc: func(ctx context.Context, text string) bool { return true },
	}

	state, err := pipeline.ProcessNotification(context.Background(), deps, domain.NotificationEvent{
		SourceApp: "in.swiggy.android",
		Text:      "₹150 for your Swiggy order",
		PostedAt:  paidAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	if state.Skipped {
		t.Fatalf("verifier said yes, should not skip: %s", state.SkipReason)
	}
	if len(txRepo.Inserted) != 1 {
		t.Errorf("inserted %d rows, want 1", len(txRepo.Inserted))
	}
}

func TestProcessNotificationDropsBankEcho(t *testing.T) {
	appPaymentSeen := false
	txRepo := &MockTransactionRepository{}
	deduper := dedupe.New(func(amount string, from, to time.Time) (bool, error) {
		return appPaymentSeen && amount == "890.00", nil
	})
	deps := newDeps(txRepo)
	deps.Deduper = deduper

	// App confirmation first.
	appPaymentSeen = false
	first, err := pipeline.ProcessNotification(context.Background(), deps, domain.NotificationEvent{
		SourceApp: "com.phonepe.app",
		Text:      "₹890.00 paid to Swiggy using UPI",
		PostedAt:  paidAt,
	})
	if err != nil || first.Skipped {
		t.Fatalf("app payment should process, err=%v skip=%q", err, first.SkipReason)
	}

	// Bank alert for the same amount one minute later.
	appPaymentSeen = true
	echo, err := pipeline.ProcessNotification(context.Background(), deps, domain.NotificationEvent{
		SourceApp: "com.sbi.lotusintouch",
		Text:      "Rs 890.00 debited from A/c XX2341. Avl balance Rs 4,200",
		PostedAt:  paidAt.Add(time.Minute),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !echo.Skipped || echo.SkipReason != "bank debit echo" {
		t.Errorf("skipped=%v reason=%q, want bank debit echo", echo.Skipped, echo.SkipReason)
	}
	if len(txRepo.Inserted) != 1 {
		t.Errorf("inserted %d rows, want 1 (echo suppressed)", len(txRepo.Inserted))
	}
}

func TestProcessNotificationAppliesAlias(t *testing.T) {
	txRepo := &MockTransactionRepository{}
	aliases := &MockAliasRepository{
		FindAliasFunc: func(ctx context.Context, normalizedName string) (*bq.MerchantAliasRow, error) {
			if normalizedName != "uberindia" {
				return nil, nil
			}
			return &bq.MerchantAliasRow{
				MerchantName:   "Uber India",
				NormalizedName: "uberindia",
				Category:       "Office Commute",
				UserNote:       bigquery.NullString{StringVal: "daily ride to work", Valid: true},
				TimesUsed:      4,
			}, nil
		},
	}
	deps := newDeps(txRepo)
	deps.Aliases = aliases

	usageQueried := false
	deps.Usage = &MockUsageRepository{
		ListUsageSessionsBetweenFunc: func(ctx context.Context, from, to time.Time) ([]*bq.UsageSessionRow, error) {
			usageQueried = true
			return nil, nil
		},
	}

	state, err := pipeline.ProcessNotification(context.Background(), deps, uberEvent())
	if err != nil {
		t.Fatal(err)
	}
	if state.Skipped {
		t.Fatalf("skipped: %s", state.SkipReason)
	}

	row := txRepo.Inserted[0]
	if row.Category.StringVal != "Office Commute" {
		t.Errorf("Category = %q, want alias category", row.Category.StringVal)
	}
	if row.Confidence != string(domain.ConfidenceLearned) {
		t.Errorf("Confidence = %q, want learned", row.Confidence)
	}
	if row.Insight.StringVal != "daily ride to work" {
		t.Errorf("Insight = %q, want alias note", row.Insight.StringVal)
	}
	if row.CorrelatedApp.Valid {
		t.Errorf("CorrelatedApp = %q, want NULL on an alias hit", row.CorrelatedApp.StringVal)
	}
	if usageQueried {
		t.Error("alias hit must skip the usage session query")
	}
	if len(aliases.Touched) != 1 || aliases.Touched[0] != "uberindia" {
		t.Errorf("Touched = %v, want one touch of uberindia", aliases.Touched)
	}
}

func TestProcessNotificationEnriches(t *testing.T) {
	txRepo := &MockTransactionRepository{}
	deps := newDeps(txRepo)
	deps.Enricher = &MockEnricher{
		GenerateInsightFunc: func(ctx context.Context, txn domain.Transaction, corr domain.CorrelationResult) (insight.Insight, error) {
			return insight.Insight{Description: "Evening cab ride home", Necessity: "need"}, nil
		},
	}

	state, err := pipeline.ProcessNotification(context.Background(), deps, uberEvent())
	if err != nil || state.Skipped {
		t.Fatalf("err=%v skip=%q", err, state.SkipReason)
	}
	if txRepo.Inserted[0].Insight.StringVal != "Evening cab ride home" {
		t.Errorf("Insight = %q, want enriched description", txRepo.Inserted[0].Insight.StringVal)
	}
}

func TestProcessNotificationArchivesRawEvent(t *testing.T) {
	notifications := &MockNotificationRepository{}
	deps := newDeps(&MockTransactionRepository{})
	deps.Notifications = notifications

	// Even a skipped promo should be archived.
	_, err := pipeline.ProcessNotification(context.Background(), deps, domain.NotificationEvent{
		SourceApp: "com.phonepe.app",
		Text:      "Get ₹500 cashback on your next recharge",
		PostedAt:  paidAt,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(notifications.Inserted) != 1 {
		t.Errorf("archived %d notifications, want 1", len(notifications.Inserted))
	}
}
