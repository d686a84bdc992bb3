package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/expense-intel/internal/correlate"
	"github.com/dvloznov/expense-intel/internal/dedupe"
	"github.com/dvloznov/expense-intel/internal/domain"
	infraBQ "github.com/dvloznov/expense-intel/internal/infra/bigquery"
	"github.com/dvloznov/expense-intel/internal/insight"
	"github.com/dvloznov/expense-intel/internal/jobs"
	"github.com/dvloznov/expense-intel/internal/jobs/inmemory"
	"github.com/dvloznov/expense-intel/internal/logger"
	"github.com/dvloznov/expense-intel/internal/pipeline"
)

func main() {
	// Initialize logger
	log := logger.NewService("worker")

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting worker service")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse client")
	}
	defer warehouse.Close()

	lookup := func(amount string, from, to time.Time) (bool, error) {
		return warehouse.HasTransactionWithAmount(ctx, amount, from, to)
	}

	correlator, err := correlate.NewEngine(correlate.DefaultWindow)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create correlation engine")
	}

	deps := pipeline.Deps{
		Notifications: warehouse,
		Transactions:  warehouse,
		Usage:         warehouse,
		Aliases:       warehouse,
		Deduper:       dedupe.New(lookup),
		Correlator:    correlator,
	}

	if engine, err := insight.NewEngine(ctx); err != nil {
		log.Warn().Err(err).Msg("AI engine unavailable, enrichment disabled")
	} else {
		deps.Verifier = engine
		deps.Enricher = engine
	}

	// Create job handler that runs notifications through the pipeline
	handler := func(ctx context.Context, job jobs.Job) error {
		notifJob, ok := job.(*jobs.ProcessNotificationJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", notifJob.JobID).
			Str("source_app", notifJob.SourceApp).
			Msg("Processing notification job")

		event := domain.NotificationEvent{
			SourceApp: notifJob.SourceApp,
			Title:     notifJob.Title,
			Text:      notifJob.Text,
			PostedAt:  notifJob.PostedAt,
		}

		state, err := pipeline.ProcessNotification(ctx, deps, event)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", notifJob.JobID).
				Msg("Pipeline execution failed")
			return err
		}

		if state.Skipped {
			notifJob.SkipReason = state.SkipReason
			log.Info().
				Str("job_id", notifJob.JobID).
				Str("reason", state.SkipReason).
				Msg("Notification dropped by pipeline")
		} else {
			log.Info().
				Str("job_id", notifJob.JobID).
				Str("merchant", state.Transaction.Merchant).
				Msg("Notification processed into transaction")
		}

		return nil
	}

	// Start consuming jobs
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Close the queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
