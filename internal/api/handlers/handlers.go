package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-intel/internal/api/middleware"
	"github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/domain"
	"github.com/dvloznov/expense-intel/internal/insight"
	"github.com/dvloznov/expense-intel/internal/jobs"
	"github.com/dvloznov/expense-intel/internal/subscribe"
)

// NotificationsHandler handles notification ingestion endpoints.
type NotificationsHandler struct {
	publisher jobs.Publisher
	usage     bigquery.UsageRepository
	log       zerolog.Logger
}

// NewNotificationsHandler creates a new notifications handler.
func NewNotificationsHandler(publisher jobs.Publisher, usage bigquery.UsageRepository, log zerolog.Logger) *NotificationsHandler {
	return &NotificationsHandler{
		publisher: publisher,
		usage:     usage,
		log:       log,
	}
}

// IngestNotification handles POST /api/notifications
func (h *NotificationsHandler) IngestNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceApp string    `json:"source_app"`
		Title     string    `json:"title"`
		Text      string    `json:"text"`
		PostedAt  time.Time `json:"posted_at"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.SourceApp == "" || req.Text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "source_app and text are required")
		return
	}
	if req.PostedAt.IsZero() {
		req.PostedAt = time.Now()
	}

	ctx := r.Context()

	job := &jobs.ProcessNotificationJob{
		SourceApp: req.SourceApp,
		Title:     req.Title,
		Text:      req.Text,
		PostedAt:  req.PostedAt,
	}

	if err := h.publisher.PublishProcessNotification(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue notification job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue notification job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("source_app", req.SourceApp).Msg("Notification job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// RecordUsage handles POST /api/usage
// It stores app usage sessions reported by the device for later correlation.
func (h *NotificationsHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sessions []struct {
			AppID     string    `json:"app_id"`
			StartedAt time.Time `json:"started_at"`
			EndedAt   time.Time `json:"ended_at"`
		} `json:"sessions"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.Sessions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "sessions are required")
		return
	}

	rows := make([]*bigquery.UsageSessionRow, 0, len(req.Sessions))
	for _, s := range req.Sessions {
		if s.AppID == "" || s.EndedAt.Before(s.StartedAt) {
			middleware.WriteError(w, http.StatusBadRequest, "each session needs app_id and a valid time range")
			return
		}
		rows = append(rows, &bigquery.UsageSessionRow{
			SessionID:       uuid.New().String(),
			AppID:           s.AppID,
			StartTS:         s.StartedAt,
			EndTS:           s.EndedAt,
			DurationSeconds: int64(s.EndedAt.Sub(s.StartedAt).Seconds()),
			CreatedTS:       time.Now(),
		})
	}

	if err := h.usage.InsertUsageSessions(r.Context(), rows); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert usage sessions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store usage sessions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"stored": len(rows),
	})
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	repo bigquery.TransactionRepository
	log  zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo bigquery.TransactionRepository, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		repo: repo,
		log:  log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	startDateStr := query.Get("start_date")
	endDateStr := query.Get("end_date")

	var startDate, endDate time.Time
	var err error

	if startDateStr != "" {
		startDate, err = time.Parse("2006-01-02", startDateStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
	} else {
		startDate = time.Now().AddDate(0, -1, 0) // 1 month ago
	}

	if endDateStr != "" {
		endDate, err = time.Parse("2006-01-02", endDateStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
	} else {
		endDate = time.Now()
	}

	transactions, err := h.repo.QueryTransactionsByDateRange(ctx, startDate, endDate)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*bigquery.TransactionRow{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// DailySummary handles GET /api/summary/daily
func (h *TransactionsHandler) DailySummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	day := time.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		day = parsed
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	rows, err := h.repo.QueryTransactionsByDateRange(ctx, start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions for summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.Transaction())
	}

	summary := insight.BuildDailySummary(txns)
	topApps := insight.TopAppsBySpending(txns, 5)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"date":     start.Format("2006-01-02"),
		"summary":  summary,
		"top_apps": topApps,
	})
}

// SubscriptionsHandler handles subscription-related endpoints.
type SubscriptionsHandler struct {
	repo bigquery.SubscriptionRepository
	log  zerolog.Logger
}

// NewSubscriptionsHandler creates a new subscriptions handler.
func NewSubscriptionsHandler(repo bigquery.SubscriptionRepository, log zerolog.Logger) *SubscriptionsHandler {
	return &SubscriptionsHandler{
		repo: repo,
		log:  log,
	}
}

type subscriptionResponse struct {
	MerchantName   string  `json:"merchant_name"`
	NormalizedName string  `json:"normalized_name"`
	Amount         float64 `json:"amount"`
	Frequency      string  `json:"frequency"`
	Confidence     string  `json:"confidence"`
	LastChargedAt  string  `json:"last_charged_at"`
	NextExpectedAt string  `json:"next_expected_at"`
	TimesDetected  int     `json:"times_detected"`
}

// ListSubscriptions handles GET /api/subscriptions
func (h *SubscriptionsHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.activeSubscriptions(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list subscriptions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list subscriptions")
		return
	}

	resp := make([]subscriptionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, subscriptionResponse{
			MerchantName:   s.MerchantName,
			NormalizedName: s.NormalizedName,
			Amount:         s.Amount,
			Frequency:      string(s.Frequency),
			Confidence:     string(s.Confidence),
			LastChargedAt:  s.LastChargedAt.Format("2006-01-02"),
			NextExpectedAt: s.NextExpectedAt.Format("2006-01-02"),
			TimesDetected:  s.TimesDetected,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"subscriptions": resp,
		"count":         len(resp),
	})
}

// MonthlyBurn handles GET /api/subscriptions/burn
func (h *SubscriptionsHandler) MonthlyBurn(w http.ResponseWriter, r *http.Request) {
	subs, err := h.activeSubscriptions(r)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute monthly burn")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute monthly burn")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"monthly_burn": subscribe.MonthlyBurn(subs),
		"count":        len(subs),
	})
}

func (h *SubscriptionsHandler) activeSubscriptions(r *http.Request) ([]domain.Subscription, error) {
	rows, err := h.repo.ListActiveSubscriptions(r.Context())
	if err != nil {
		return nil, err
	}

	subs := make([]domain.Subscription, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.Subscription())
	}
	return subs, nil
}

// SuggestionsHandler handles the time-of-day category suggestion endpoint.
type SuggestionsHandler struct {
	log zerolog.Logger
}

// NewSuggestionsHandler creates a new suggestions handler.
func NewSuggestionsHandler(log zerolog.Logger) *SuggestionsHandler {
	return &SuggestionsHandler{log: log}
}

// Suggest handles GET /api/suggestions
func (h *SuggestionsHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	suggestions := insight.TopSuggestions(time.Now(), limit)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		SourceApp: query.Get("source_app"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
