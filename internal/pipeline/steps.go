package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	bq "github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/correlate"
	"github.com/dvloznov/expense-intel/internal/dedupe"
	"github.com/dvloznov/expense-intel/internal/domain"
	"github.com/dvloznov/expense-intel/internal/knowledge"
	"github.com/dvloznov/expense-intel/internal/logger"
	"github.com/dvloznov/expense-intel/internal/parser"
)

// Step 1: StoreNotificationStep archives the raw event before any
// filtering, so dropped notifications remain inspectable.
type StoreNotificationStep struct {
	Repo bq.NotificationRepository
}

func (s *StoreNotificationStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Repo == nil {
		return nil
	}
	return s.Repo.InsertNotification(ctx, &bq.NotificationRow{
		NotificationID: uuid.NewString(),
		SourceApp:      state.Event.SourceApp,
		Title:          state.Event.Title,
		Text:           state.Event.Text,
		PostedTS:       state.Event.PostedAt,
		CreatedTS:      time.Now(),
	})
}

// Step 2: DedupeStep drops events already processed.
type DedupeStep struct {
	Deduper *dedupe.Deduper
}

func (s *DedupeStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Deduper != nil && s.Deduper.Seen(state.Event) {
		state.Skipped = true
		state.SkipReason = "duplicate notification"
	}
	return nil
}

// Step 3: RelevanceStep drops events from system apps that never carry
// payments.
type RelevanceStep struct{}

func (s *RelevanceStep) Execute(ctx context.Context, state *PipelineState) error {
	if !knowledge.IsRelevant(state.Event.SourceApp) {
		state.Skipped = true
		state.SkipReason = "irrelevant source app"
	}
	return nil
}

// Step 4: ParseStep extracts amount, merchant and channel. No amount means
// no payment.
type ParseStep struct{}

func (s *ParseStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Parsed = parser.Parse(state.Event.Text)
	if !state.Parsed.IsPayment() {
		state.Skipped = true
		state.SkipReason = "no amount found"
	}
	return nil
}

// Step 5: VerifyPaymentStep separates real payments from offers. Texts with
// a payment verb pass directly. Without one, a promo marker drops the event
// outright; anything else is uncertain and goes to the verifier, defaulting
// to drop when none is configured or the verifier is unsure.
type VerifyPaymentStep struct {
	Verifier PaymentVerifier
}

func (s *VerifyPaymentStep) Execute(ctx context.Context, state *PipelineState) error {
	text := strings.ToLower(state.Event.Text)

	for _, verb := range paymentVerbs {
		if strings.Contains(text, verb) {
			return nil
		}
	}

	for _, marker := range promoMarkers {
		if strings.Contains(text, marker) {
			state.Skipped = true
			state.SkipReason = "promotional message"
			return nil
		}
	}

	if s.Verifier != nil && s.Verifier.VerifyPayment(ctx, state.Event.Text) {
		log := logger.FromContext(ctx)
		log.Debug().
			Str("source_app", state.Event.SourceApp).
			Msg("uncertain notification kept after verification")
		return nil
	}

	state.Skipped = true
	state.SkipReason = "no payment verb"
	return nil
}

// Step 6: BankEchoStep drops the bank's debit alert when a payment app
// already reported the same amount within the echo window.
type BankEchoStep struct {
	Deduper *dedupe.Deduper
}

func (s *BankEchoStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Deduper != nil && s.Deduper.IsBankEcho(state.Event, state.Parsed.Amount) {
		state.Skipped = true
		state.SkipReason = "bank debit echo"
	}
	return nil
}

// Step 7: AliasStep applies a user-taught merchant categorization. A hit
// supplies the whole correlation result with confidence learned and no
// attributed app, and the correlation step is skipped.
type AliasStep struct {
	Aliases bq.AliasRepository
}

func (s *AliasStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Aliases == nil || state.Parsed.Merchant == "" {
		return nil
	}

	key := parser.NormalizeMerchant(state.Parsed.Merchant)
	if key == "" {
		return nil
	}

	row, err := s.Aliases.FindAlias(ctx, key)
	if err != nil {
		return err
	}
	if row == nil {
		return nil
	}

	state.AliasApplied = true
	state.Correlation = domain.CorrelationResult{
		Category:   row.Category,
		Confidence: domain.ConfidenceLearned,
		Reason:     "learned merchant alias",
	}
	if row.UserNote.Valid && row.UserNote.StringVal != "" {
		state.Transaction.Insight = row.UserNote.StringVal
	}

	if err := s.Aliases.TouchAlias(ctx, key); err != nil {
		// Usage accounting must not fail the transaction.
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("alias", key).Msg("alias touch failed")
	}
	return nil
}

// Step 8: CorrelateStep attributes the payment to the app most plausibly
// responsible, from recent usage sessions. An applied alias already settled
// the category, so no sessions are fetched and no app is attributed.
type CorrelateStep struct {
	Usage      bq.UsageRepository
	Correlator *correlate.Engine
}

func (s *CorrelateStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.AliasApplied {
		return nil
	}

	if s.Correlator == nil {
		state.Correlation = correlate.CorrelateText(state.Event.Text)
		return nil
	}

	if s.Usage != nil && state.Sessions == nil {
		rows, err := s.Usage.ListUsageSessionsBetween(ctx,
			state.Event.PostedAt.Add(-correlate.DefaultWindow), state.Event.PostedAt)
		if err != nil {
			return err
		}
		for _, r := range rows {
			state.Sessions = append(state.Sessions, r.Session())
		}
	}

	state.Correlation = s.Correlator.Correlate(state.Event.PostedAt, state.Event.Text, state.Sessions)
	return nil
}

// Step 9: EnrichStep asks the model what the purchase was for. Enrichment
// failures are logged and the transaction proceeds without an insight.
type EnrichStep struct {
	Enricher Enricher
}

func (s *EnrichStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Transaction = buildTransaction(state)

	if s.Enricher == nil || state.AliasApplied && state.Transaction.Insight != "" {
		return nil
	}

	ins, err := s.Enricher.GenerateInsight(ctx, state.Transaction, state.Correlation)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("insight generation failed")
		return nil
	}
	state.Transaction.Insight = ins.Description
	return nil
}

// Step 10: StoreTransactionStep persists the enriched transaction.
type StoreTransactionStep struct {
	Repo bq.TransactionRepository
}

func (s *StoreTransactionStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Transaction.ID == "" {
		state.Transaction = buildTransaction(state)
	}
	if s.Repo == nil {
		return nil
	}
	return s.Repo.InsertTransactions(ctx, []*bq.TransactionRow{
		bq.NewTransactionRow(state.Transaction),
	})
}

func buildTransaction(state *PipelineState) domain.Transaction {
	t := state.Transaction
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.SourceApp = state.Event.SourceApp
	t.Title = state.Event.Title
	t.Text = state.Event.Text
	t.PostedAt = state.Event.PostedAt
	t.Amount = state.Parsed.Amount
	t.Merchant = state.Parsed.Merchant
	t.Channel = state.Parsed.Channel
	t.Category = state.Correlation.Category
	t.CorrelatedApp = state.Correlation.AppName
	t.Confidence = state.Correlation.Confidence
	return t
}
