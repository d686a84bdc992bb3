package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/expense-intel/internal/archive"
	bq "github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/domain"
	infraBQ "github.com/dvloznov/expense-intel/internal/infra/bigquery"
	"github.com/dvloznov/expense-intel/internal/logger"
	"github.com/dvloznov/expense-intel/internal/subscribe"
)

func main() {
	// Initialize structured logger
	log := logger.NewService("detect")

	// Parse CLI flags
	dryRun := flag.Bool("dry-run", false, "Dry run mode - print detections without writing")
	exportBucket := flag.String("export-bucket", "", "GCS bucket for a subscription snapshot export (optional)")
	flag.Parse()

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse client")
	}
	defer warehouse.Close()

	now := time.Now()
	start := now.AddDate(0, 0, -subscribe.LookbackDays)

	rows, err := warehouse.QueryTransactionsByDateRange(ctx, start, now)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	transactions := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, row.Transaction())
	}

	log.Info().Int("transactions", len(transactions)).Msg("Running subscription detection")

	subs := subscribe.Detect(now, transactions)
	burn := subscribe.MonthlyBurn(subs)

	for _, s := range subs {
		fmt.Printf("%-20s %8.2f  %-8s %-7s x%d  next %s\n",
			s.MerchantName, s.Amount, s.Frequency, s.Confidence, s.TimesDetected,
			s.NextExpectedAt.Format("2006-01-02"))
	}
	fmt.Printf("Monthly burn: %.2f (%d subscriptions)\n", burn, len(subs))

	if *dryRun {
		log.Info().Msg("Dry run, skipping writes")
		return
	}

	keep := make([]string, 0, len(subs))
	for _, s := range subs {
		keep = append(keep, s.NormalizedName)
		if err := warehouse.UpsertSubscription(ctx, bq.NewSubscriptionRow(s)); err != nil {
			log.Fatal().Err(err).Str("merchant", s.MerchantName).Msg("Failed to upsert subscription")
		}
	}

	if err := warehouse.DeactivateSubscriptionsNotIn(ctx, keep); err != nil {
		log.Fatal().Err(err).Msg("Failed to deactivate stale subscriptions")
	}

	log.Info().Int("subscriptions", len(subs)).Float64("monthly_burn", burn).Msg("Subscription detection completed")

	if *exportBucket != "" {
		exporter, err := archive.NewExporter(archive.NewGCSObjectStore(), *exportBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create exporter")
		}
		uri, err := exporter.ExportSubscriptions(ctx, now, subs)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to export subscriptions")
		}
		log.Info().Str("uri", uri).Msg("Subscription snapshot exported")
	}
}
