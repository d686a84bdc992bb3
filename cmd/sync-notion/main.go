package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	infraBQ "github.com/dvloznov/expense-intel/internal/infra/bigquery"
	"github.com/dvloznov/expense-intel/internal/logger"
	"github.com/dvloznov/expense-intel/internal/notionsync"
)

func main() {
	// Initialize structured logger
	log := logger.NewService("sync-notion")

	// Parse CLI flags
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required for transactions)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required for transactions)")
	notionToken := flag.String("notion-token", "", "Notion API token (required)")
	txDBID := flag.String("transactions-db-id", "", "Notion database ID for transactions")
	subDBID := flag.String("subscriptions-db-id", "", "Notion database ID for subscriptions")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	// Validate required flags
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *txDBID == "" && *subDBID == "" {
		log.Fatal().Msg("Error: at least one of --transactions-db-id or --subscriptions-db-id is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	// Initialize warehouse
	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize warehouse client")
	}
	defer warehouse.Close()

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	if *txDBID != "" {
		if *startDateStr == "" || *endDateStr == "" {
			log.Fatal().Msg("Error: --start-date and --end-date are required for transaction sync")
		}

		startDate, err := time.Parse("2006-01-02", *startDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
		}

		endDate, err := time.Parse("2006-01-02", *endDateStr)
		if err != nil {
			log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
		}

		if endDate.Before(startDate) {
			log.Fatal().
				Time("start_date", startDate).
				Time("end_date", endDate).
				Msg("Error: end-date must be after start-date")
		}

		log.Info().
			Str("start_date", *startDateStr).
			Str("end_date", *endDateStr).
			Bool("dry_run", *dryRun).
			Msg("Starting Notion transaction sync")

		if err := notionsync.SyncTransactions(ctx, warehouse, notionClient, *txDBID, startDate, endDate, *dryRun); err != nil {
			log.Fatal().Err(err).Msg("Transaction sync failed")
		}
	}

	if *subDBID != "" {
		log.Info().Bool("dry_run", *dryRun).Msg("Starting Notion subscription sync")

		if err := notionsync.SyncSubscriptions(ctx, warehouse, notionClient, *subDBID, *dryRun); err != nil {
			log.Fatal().Err(err).Msg("Subscription sync failed")
		}
	}

	fmt.Println("Sync completed successfully.")
}
