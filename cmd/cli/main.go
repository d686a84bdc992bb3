package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	gbq "cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-intel/internal/archive"
	bq "github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/correlate"
	"github.com/dvloznov/expense-intel/internal/domain"
	infraBQ "github.com/dvloznov/expense-intel/internal/infra/bigquery"
	"github.com/dvloznov/expense-intel/internal/insight"
	"github.com/dvloznov/expense-intel/internal/logger"
	"github.com/dvloznov/expense-intel/internal/parser"
)

func main() {
	log := logger.NewService("cli")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "summary":
		runSummary(log)
	case "teach":
		runTeach(log)
	case "export":
		runExport(log)
	case "weekly":
		runWeekly(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Expense Intel CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse     Parse a notification text locally and print the extraction")
	fmt.Println("  summary   Print the spending summary for a date")
	fmt.Println("  teach     Store a merchant category so future payments use it")
	fmt.Println("  export    Export a day of transactions to GCS as NDJSON")
	fmt.Println("  weekly    Generate an AI summary of the last week of spending")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	text := fs.String("text", "", "Notification text to parse")
	fs.Parse(os.Args[2:])

	if *text == "" {
		log.Fatal().Msg("Error: --text is required")
	}

	parsed := parser.Parse(*text)
	if !parsed.IsPayment() {
		fmt.Println("No payment found in text.")
		return
	}

	fmt.Printf("Amount:   %s\n", parsed.Amount)
	fmt.Printf("Merchant: %s\n", parsed.Merchant)
	fmt.Printf("Channel:  %s\n", parsed.Channel)
	fmt.Printf("Category: %s\n", correlate.ClassifyText(*text))
}

func runSummary(log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	dateStr := fs.String("date", "", "Date in YYYY-MM-DD format (defaults to today)")
	fs.Parse(os.Args[2:])

	day := time.Now()
	if *dateStr != "" {
		parsed, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: invalid date format, expected YYYY-MM-DD")
		}
		day = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse client")
	}
	defer warehouse.Close()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := warehouse.QueryTransactionsByDateRange(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.Transaction())
	}

	summary := insight.BuildDailySummary(txns)

	fmt.Printf("\n=== Spending on %s ===\n", start.Format("2006-01-02"))
	fmt.Printf("Total: %.2f across %d transactions\n", summary.TotalSpent, summary.TransactionCount)
	for _, c := range summary.Categories {
		fmt.Printf("  %-20s %8.2f (%d)\n", c.Category, c.Total, len(c.Items))
	}

	for _, app := range insight.TopAppsBySpending(txns, 5) {
		fmt.Printf("  via %-16s %8.2f\n", app.AppName, app.TotalSpent)
	}
	fmt.Println()
}

func runTeach(log zerolog.Logger) {
	fs := flag.NewFlagSet("teach", flag.ExitOnError)
	merchant := fs.String("merchant", "", "Merchant name as it appears in notifications")
	category := fs.String("category", "", "Category to assign")
	subcategory := fs.String("subcategory", "", "Optional subcategory")
	note := fs.String("note", "", "Optional note shown on future transactions")
	fs.Parse(os.Args[2:])

	if *merchant == "" || *category == "" {
		log.Fatal().Msg("Usage: cli teach -merchant NAME -category NAME [-subcategory NAME] [-note TEXT]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse client")
	}
	defer warehouse.Close()

	normalized := parser.NormalizeMerchant(*merchant)
	if normalized == "" {
		log.Fatal().Str("merchant", *merchant).Msg("Merchant name normalizes to nothing")
	}

	row := &bq.MerchantAliasRow{
		MerchantName:   *merchant,
		NormalizedName: normalized,
		Category:       *category,
		CreatedTS:      time.Now(),
	}
	if *subcategory != "" {
		row.Subcategory = bigqueryNullString(*subcategory)
	}
	if *note != "" {
		row.UserNote = bigqueryNullString(*note)
	}

	if err := warehouse.UpsertAlias(ctx, row); err != nil {
		log.Fatal().Err(err).Msg("Failed to store merchant alias")
	}

	fmt.Printf("Learned: %s -> %s\n", *merchant, *category)
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	dateStr := fs.String("date", "", "Date in YYYY-MM-DD format (defaults to yesterday)")
	bucket := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for the export (or set GCS_BUCKET env)")
	fs.Parse(os.Args[2:])

	if *bucket == "" {
		log.Fatal().Msg("Error: --bucket is required")
	}

	day := time.Now().AddDate(0, 0, -1)
	if *dateStr != "" {
		parsed, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: invalid date format, expected YYYY-MM-DD")
		}
		day = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse client")
	}
	defer warehouse.Close()

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := warehouse.QueryTransactionsByDateRange(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.Transaction())
	}

	exporter, err := archive.NewExporter(archive.NewGCSObjectStore(), *bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create exporter")
	}

	uri, err := exporter.ExportTransactions(ctx, start, txns)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Printf("Exported %d transactions to %s\n", len(txns), uri)
}

func runWeekly(log zerolog.Logger) {
	fs := flag.NewFlagSet("weekly", flag.ExitOnError)
	endStr := fs.String("end-date", "", "Last day of the week in YYYY-MM-DD format (defaults to today)")
	fs.Parse(os.Args[2:])

	end := time.Now()
	if *endStr != "" {
		parsed, err := time.Parse("2006-01-02", *endStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: invalid date format, expected YYYY-MM-DD")
		}
		end = parsed.AddDate(0, 0, 1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	warehouse, err := infraBQ.NewWarehouse(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create warehouse client")
	}
	defer warehouse.Close()

	rows, err := warehouse.QueryTransactionsByDateRange(ctx, end.AddDate(0, 0, -7), end)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to query transactions")
	}
	if len(rows) == 0 {
		fmt.Println("No transactions in the last week.")
		return
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		txns = append(txns, row.Transaction())
	}

	engine, err := insight.NewEngine(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create AI engine")
	}

	text, err := engine.WeeklySummary(ctx, txns)
	if err != nil {
		log.Fatal().Err(err).Msg("Weekly summary failed")
	}

	fmt.Printf("\n=== Week ending %s ===\n%s\n", end.AddDate(0, 0, -1).Format("2006-01-02"), text)
}

func bigqueryNullString(s string) gbq.NullString {
	return gbq.NullString{StringVal: s, Valid: true}
}
