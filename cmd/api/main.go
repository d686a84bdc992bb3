package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-intel/internal/api/handlers"
	"github.com/dvloznov/expense-intel/internal/api/middleware"
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
	// Parse command-line flags
	var (
		port  = flag.String("port", "8080", "HTTP server port")
		token = flag.String("token", os.Getenv("API_TOKEN"), "Bearer token for API auth (or set API_TOKEN env; empty disables auth)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.NewService("api")

	// Initialize warehouse
	ctx := context.Background()

	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse client")
	}
	defer warehouse.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	deps := buildPipelineDeps(workerCtx, warehouse, log)

	// Create job handler that runs notifications through the pipeline
	jobHandler := func(ctx context.Context, job jobs.Job) error {
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
			return nil
		}

		log.Info().
			Str("job_id", notifJob.JobID).
			Str("merchant", state.Transaction.Merchant).
			Str("amount", state.Transaction.Amount).
			Msg("Notification processed into transaction")

		return nil
	}

	// Start job consumer in background
	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Initialize handlers
	notificationsHandler := handlers.NewNotificationsHandler(jobQueue, warehouse, log)
	transactionsHandler := handlers.NewTransactionsHandler(warehouse, log)
	subscriptionsHandler := handlers.NewSubscriptionsHandler(warehouse, log)
	suggestionsHandler := handlers.NewSuggestionsHandler(log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Ingestion endpoints
	mux.HandleFunc("/api/notifications", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			notificationsHandler.IngestNotification(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/usage", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			notificationsHandler.RecordUsage(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListTransactions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/summary/daily", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.DailySummary(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Subscriptions endpoints
	mux.HandleFunc("/api/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			subscriptionsHandler.ListSubscriptions(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/subscriptions/burn", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			subscriptionsHandler.MonthlyBurn(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Suggestions endpoint
	mux.HandleFunc("/api/suggestions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			suggestionsHandler.Suggest(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(
					middleware.Auth(*token)(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Cancel worker context
	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	// Close job queue
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}

// buildPipelineDeps assembles the ingestion pipeline dependencies around the
// warehouse. The AI engine is optional: when no API key is configured the
// pipeline falls back to keyword-only verification and skips enrichment.
func buildPipelineDeps(ctx context.Context, warehouse *infraBQ.Warehouse, log zerolog.Logger) pipeline.Deps {
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

	engine, err := insight.NewEngine(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("AI engine unavailable, enrichment disabled")
		return deps
	}
	deps.Verifier = engine
	deps.Enricher = engine

	return deps
}
