package notionsync

import (
	"context"
	"fmt"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/expense-intel/internal/bigquery"
	"github.com/dvloznov/expense-intel/internal/logger"
)

const (
	// BatchSize defines the number of transactions to process in a single batch
	BatchSize = 100
)

// SyncTransactions syncs transactions from BigQuery to Notion within the specified date range.
// It queries BigQuery for transactions, batches them, and creates corresponding Notion pages.
// The Transaction ID property on Notion pages is used for idempotency.
// This function:
// 1. Queries all existing Notion transactions
// 2. Deletes stale transactions (not in the BigQuery set for the range)
// 3. Creates missing transactions from BigQuery
func SyncTransactions(ctx context.Context, repo bigquery.TransactionRepository, notionClient NotionService, notionDBID string, startDate, endDate time.Time, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Time("start_date", startDate).
		Time("end_date", endDate).
		Bool("dry_run", dryRun).
		Msg("Starting transaction sync to Notion")

	// Query transactions from BigQuery
	transactions, err := repo.QueryTransactionsByDateRange(ctx, startDate, endDate)
	if err != nil {
		return fmt.Errorf("failed to query transactions: %w", err)
	}

	log.Info().Int("transaction_count", len(transactions)).Msg("Retrieved transactions from BigQuery")

	// Build set of valid transaction IDs from BigQuery
	validTransactionIDs := make(map[string]bool)
	for _, tx := range transactions {
		validTransactionIDs[tx.TransactionID] = true
	}

	// Query all existing transactions from Notion
	log.Info().Msg("Querying existing transactions from Notion")
	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	// Build map of existing transaction IDs in Notion (for deduplication)
	existingTransactionIDs := make(map[string]bool)
	for _, page := range notionPages {
		txID := extractTransactionID(page)
		if txID != "" {
			existingTransactionIDs[txID] = true
		}
	}

	// Delete stale transactions from Notion (those not in the valid set)
	var deleted int
	for _, page := range notionPages {
		txID := extractTransactionID(page)

		// Delete pages without Transaction ID (from old sync) or not in valid set
		if txID == "" || !validTransactionIDs[txID] {
			if dryRun {
				log.Info().
					Str("transaction_id", txID).
					Str("page_id", string(page.ID)).
					Msg("[DRY RUN] Would delete stale Notion page")
				deleted++
			} else {
				if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
					log.Warn().
						Err(err).
						Str("transaction_id", txID).
						Str("page_id", string(page.ID)).
						Msg("Failed to delete stale Notion page")
					continue
				}
				log.Info().
					Str("transaction_id", txID).
					Str("page_id", string(page.ID)).
					Msg("Deleted stale Notion page")
				deleted++
			}
		}
	}

	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("Deleted stale transactions from Notion")
	}

	// Process transactions in batches
	var created, skipped int
	for i := 0; i < len(transactions); i += BatchSize {
		end := i + BatchSize
		if end > len(transactions) {
			end = len(transactions)
		}

		batch := transactions[i:end]
		log.Info().
			Int("batch_start", i).
			Int("batch_end", end).
			Int("batch_size", len(batch)).
			Msg("Processing batch")

		for _, tx := range batch {
			// Skip if already exists in Notion
			if existingTransactionIDs[tx.TransactionID] {
				skipped++
				continue
			}

			if dryRun {
				log.Info().
					Str("transaction_id", tx.TransactionID).
					Msg("[DRY RUN] Would create new Notion page")
				created++
				continue
			}

			// Convert transaction to Notion properties
			props := TransactionToNotionProperties(tx)

			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("transaction_id", tx.TransactionID).
					Msg("Failed to create Notion page")
				// Continue processing other transactions
				continue
			}
			log.Info().
				Str("transaction_id", tx.TransactionID).
				Str("page_id", string(page.ID)).
				Msg("Created Notion page")
			created++
		}
	}

	log.Info().
		Int("deleted", deleted).
		Int("created", created).
		Int("skipped", skipped).
		Int("total", len(transactions)).
		Msg("Transaction sync completed")

	return nil
}

// SyncSubscriptions syncs active subscriptions from BigQuery to Notion.
// Deletes stale subscription pages and creates/updates current ones. The
// Normalized Name property is the idempotency key.
func SyncSubscriptions(ctx context.Context, repo bigquery.SubscriptionRepository, notionClient NotionService, notionDBID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Bool("dry_run", dryRun).
		Msg("Starting subscription sync to Notion")

	// Query all active subscriptions from BigQuery
	subscriptions, err := repo.ListActiveSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to query subscriptions: %w", err)
	}

	log.Info().Int("subscription_count", len(subscriptions)).Msg("Retrieved subscriptions from BigQuery")

	// Build set of valid normalized names from BigQuery
	validNames := make(map[string]bool)
	for _, sub := range subscriptions {
		validNames[sub.NormalizedName] = true
	}

	// Query all existing subscription pages from Notion
	log.Info().Msg("Querying existing subscriptions from Notion")
	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	// Build map of normalized name -> page ID for updates
	existingPages := make(map[string]string)
	for _, page := range notionPages {
		name := extractNormalizedName(page)
		if name != "" {
			existingPages[name] = string(page.ID)
		}
	}

	// Delete stale subscriptions from Notion
	var deleted int
	for _, page := range notionPages {
		name := extractNormalizedName(page)

		if name == "" || !validNames[name] {
			if dryRun {
				log.Info().
					Str("normalized_name", name).
					Str("page_id", string(page.ID)).
					Msg("[DRY RUN] Would delete stale subscription page")
				deleted++
			} else {
				if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
					log.Warn().
						Err(err).
						Str("normalized_name", name).
						Str("page_id", string(page.ID)).
						Msg("Failed to delete stale subscription page")
					continue
				}
				deleted++
			}
		}
	}

	if deleted > 0 {
		log.Info().Int("deleted", deleted).Msg("Deleted stale subscriptions from Notion")
	}

	// Create or update current subscriptions
	var created, updated int
	for _, sub := range subscriptions {
		pageID, exists := existingPages[sub.NormalizedName]

		if dryRun {
			if exists {
				log.Info().
					Str("normalized_name", sub.NormalizedName).
					Str("page_id", pageID).
					Msg("[DRY RUN] Would update subscription page")
				updated++
			} else {
				log.Info().
					Str("normalized_name", sub.NormalizedName).
					Msg("[DRY RUN] Would create subscription page")
				created++
			}
			continue
		}

		props := SubscriptionToNotionProperties(sub)

		if exists {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().
					Err(err).
					Str("normalized_name", sub.NormalizedName).
					Str("page_id", pageID).
					Msg("Failed to update subscription page")
				continue
			}
			updated++
		} else {
			page, err := notionClient.CreatePage(ctx, notionDBID, props)
			if err != nil {
				log.Warn().
					Err(err).
					Str("normalized_name", sub.NormalizedName).
					Msg("Failed to create subscription page")
				continue
			}
			log.Info().
				Str("normalized_name", sub.NormalizedName).
				Str("page_id", string(page.ID)).
				Msg("Created subscription page")
			created++
		}
	}

	log.Info().
		Int("deleted", deleted).
		Int("created", created).
		Int("updated", updated).
		Int("total", len(subscriptions)).
		Msg("Subscription sync completed")

	return nil
}

// queryAllNotionPages retrieves every page of a Notion database, following
// pagination cursors.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		// Only set StartCursor if we have a cursor value
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}

// extractTransactionID extracts the transaction ID from a Notion page's properties.
// Returns empty string if not found.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties["Transaction ID"]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}

// extractNormalizedName extracts the normalized merchant name from a Notion
// page's properties. Returns empty string if not found.
func extractNormalizedName(page notionapi.Page) string {
	if prop, ok := page.Properties["Normalized Name"]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
