// Package pipeline turns raw notification events into stored, categorized
// transactions. Processing is a fixed sequence of steps: store the raw
// event, drop duplicates and echoes, parse out payment fields, verify
// uncertain texts, apply learned merchant aliases, attribute the payment to
// an app, enrich with a model insight and persist the result.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/correlate"
	"github.com/dvloznov/expense-intel/internal/dedupe"
	"github.com/dvloznov/expense-intel/internal/domain"
)

// PipelineStep represents a single step in the notification pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Event  domain.NotificationEvent
	Parsed domain.ParsedTransaction

	Sessions    []domain.AppUsageSession
	Correlation domain.CorrelationResult

	// AliasApplied marks that a learned merchant alias supplied the
	// category. Correlation is skipped entirely: the user's own label
	// outranks any app attribution.
	AliasApplied bool

	Transaction domain.Transaction

	// Skipped marks the event as intentionally dropped (duplicate, promo,
	// bank echo). It stops the pipeline without an error.
	Skipped    bool
	SkipReason string
}

// Deps bundles everything the standard pipeline steps need.
type Deps struct {
	Notifications bigquery.NotificationRepository
	Transactions  bigquery.TransactionRepository
	Usage         bigquery.UsageRepository
	Aliases       bigquery.AliasRepository

	Deduper    *dedupe.Deduper
	Correlator *correlate.Engine

	// Verifier may be nil: uncertain notifications are then dropped.
	Verifier PaymentVerifier

	// Enricher may be nil: transactions are stored without model insights.
	Enricher Enricher
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially. A step marking the state skipped
// stops the run cleanly; a step error aborts it.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
		if state.Skipped {
			return nil
		}
	}
	return nil
}

// NewNotificationPipeline creates the standard processing pipeline for one
// notification event.
func NewNotificationPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&StoreNotificationStep{Repo: deps.Notifications},
		&DedupeStep{Deduper: deps.Deduper},
		&RelevanceStep{},
		&ParseStep{},
		&VerifyPaymentStep{Verifier: deps.Verifier},
		&BankEchoStep{Deduper: deps.Deduper},
		&AliasStep{Aliases: deps.Aliases},
		&CorrelateStep{Usage: deps.Usage, Correlator: deps.Correlator},
		&EnrichStep{Enricher: deps.Enricher},
		&StoreTransactionStep{Repo: deps.Transactions},
	)
}

// ProcessNotification runs one event through the standard pipeline and
// returns the final state.
func ProcessNotification(ctx context.Context, deps Deps, event domain.NotificationEvent) (*PipelineState, error) {
	state := &PipelineState{Event: event}
	if err := NewNotificationPipeline(deps).Execute(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}
