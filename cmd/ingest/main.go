package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dvloznov/expense-intel/internal/archive"
	"github.com/dvloznov/expense-intel/internal/correlate"
	"github.com/dvloznov/expense-intel/internal/dedupe"
	"github.com/dvloznov/expense-intel/internal/domain"
	infraBQ "github.com/dvloznov/expense-intel/internal/infra/bigquery"
	"github.com/dvloznov/expense-intel/internal/insight"
	"github.com/dvloznov/expense-intel/internal/logger"
	"github.com/dvloznov/expense-intel/internal/pipeline"
)

// exportedNotification is one line of an NDJSON notification export, the same
// shape the API ingest endpoint accepts.
type exportedNotification struct {
	SourceApp string    `json:"source_app"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	PostedAt  time.Time `json:"posted_at"`
}

func main() {
	log := logger.NewService("ingest")

	sourceApp := flag.String("source-app", "", "Package name of the app that posted the notification")
	title := flag.String("title", "", "Notification title")
	text := flag.String("text", "", "Notification body text")
	postedAtStr := flag.String("posted-at", "", "Post time in RFC3339 format (defaults to now)")
	inputPath := flag.String("input", "", "NDJSON notification export: local path or gs:// URI")
	flag.Parse()

	if *inputPath == "" && (*sourceApp == "" || *text == "") {
		log.Fatal().Msg("Error: either --input or both --source-app and --text are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

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

	if *inputPath != "" {
		if err := ingestExport(ctx, deps, *inputPath); err != nil {
			log.Fatal().Err(err).Str("input", *inputPath).Msg("Export ingestion failed")
		}
		return
	}

	postedAt := time.Now()
	if *postedAtStr != "" {
		parsed, err := time.Parse(time.RFC3339, *postedAtStr)
		if err != nil {
			log.Fatal().Err(err).Str("posted_at", *postedAtStr).Msg("Error: invalid posted-at format, expected RFC3339")
		}
		postedAt = parsed
	}

	event := domain.NotificationEvent{
		SourceApp: *sourceApp,
		Title:     *title,
		Text:      *text,
		PostedAt:  postedAt,
	}

	log.Info().Str("source_app", *sourceApp).Msg("Starting ingestion")

	if err := ingestOne(ctx, deps, event); err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
}

// ingestExport runs every notification in an NDJSON export through the
// pipeline. A malformed line aborts the run; a dropped notification does not.
func ingestExport(ctx context.Context, deps pipeline.Deps, input string) error {
	var data []byte
	var err error
	if strings.HasPrefix(input, "gs://") {
		data, err = archive.FetchObject(ctx, input)
	} else {
		data, err = os.ReadFile(input)
	}
	if err != nil {
		return fmt.Errorf("reading export: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var n exportedNotification
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if n.SourceApp == "" || n.Text == "" {
			return fmt.Errorf("line %d: source_app and text are required", line)
		}
		if n.PostedAt.IsZero() {
			n.PostedAt = time.Now()
		}

		event := domain.NotificationEvent{
			SourceApp: n.SourceApp,
			Title:     n.Title,
			Text:      n.Text,
			PostedAt:  n.PostedAt,
		}
		if err := ingestOne(ctx, deps, event); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}

func ingestOne(ctx context.Context, deps pipeline.Deps, event domain.NotificationEvent) error {
	state, err := pipeline.ProcessNotification(ctx, deps, event)
	if err != nil {
		return err
	}

	if state.Skipped {
		fmt.Printf("Notification dropped: %s\n", state.SkipReason)
		return nil
	}

	fmt.Printf("Stored transaction %s: %s to %s (%s)\n",
		state.Transaction.ID, state.Transaction.Amount, state.Transaction.Merchant, state.Transaction.Category)
	return nil
}
