package insight

import (
	"sort"
	"strings"

	"github.com/dvloznov/expense-intel/internal/domain"
)

// CategoryBreakdown is one category's slice of a day's spending.
type CategoryBreakdown struct {
	Category string            `json:"category"`
	Total    float64           `json:"total"`
	Items    []TransactionItem `json:"items"`
}

// TransactionItem is one payment inside a breakdown.
type TransactionItem struct {
	Amount    float64 `json:"amount"`
	Merchant  string  `json:"merchant"`
	Insight   string  `json:"insight,omitempty"`
	Time      string  `json:"time"`
	Necessity string  `json:"necessity,omitempty"`
}

// DailySummary totals a day's payments grouped by category.
type DailySummary struct {
	TotalSpent       float64             `json:"total_spent"`
	Categories       []CategoryBreakdown `json:"categories"`
	TransactionCount int                 `json:"transaction_count"`
}

// BuildDailySummary groups transactions by category, sums amounts and sorts
// categories by total, biggest first. Blank, "Unknown" and "Uncategorized"
// categories collapse into "Other". Malformed amounts count as zero.
func BuildDailySummary(txns []domain.Transaction) DailySummary {
	if len(txns) == 0 {
		return DailySummary{}
	}

	grouped := map[string][]domain.Transaction{}
	for _, t := range txns {
		grouped[normalizeCategory(t.Category)] = append(grouped[normalizeCategory(t.Category)], t)
	}

	var summary DailySummary
	for category, group := range grouped {
		breakdown := CategoryBreakdown{Category: category}
		for _, t := range group {
			amt := domain.AmountValue(t.Amount)
			merchant := t.Merchant
			if merchant == "" {
				merchant = "Unknown"
			}
			breakdown.Items = append(breakdown.Items, TransactionItem{
				Amount:    amt,
				Merchant:  merchant,
				Insight:   t.Insight,
				Time:      t.PostedAt.Format("03:04 PM"),
				Necessity: GuessNecessity(t.Category, t.Merchant),
			})
			breakdown.Total += amt
		}
		summary.Categories = append(summary.Categories, breakdown)
		summary.TotalSpent += breakdown.Total
	}
	summary.TransactionCount = len(txns)

	sort.SliceStable(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Total > summary.Categories[j].Total
	})
	return summary
}

func normalizeCategory(category string) string {
	switch {
	case strings.TrimSpace(category) == "":
		return "Other"
	case strings.EqualFold(category, "Unknown"), strings.EqualFold(category, "Uncategorized"):
		return "Other"
	default:
		return category
	}
}

// AppSpending aggregates spending attributed to one app.
type AppSpending struct {
	AppName          string  `json:"app_name"`
	TotalSpent       float64 `json:"total_spent"`
	TransactionCount int     `json:"transaction_count"`
	Category         string  `json:"category"`
}

// TopAppsBySpending groups transactions by correlated app, sums amounts and
// returns up to limit apps sorted by total. Uncorrelated transactions and
// system-app attributions are excluded.
func TopAppsBySpending(txns []domain.Transaction, limit int) []AppSpending {
	grouped := map[string][]domain.Transaction{}
	for _, t := range txns {
		app := t.CorrelatedApp
		if app == "" || strings.EqualFold(app, "Unknown") {
			continue
		}
		lower := strings.ToLower(app)
		if strings.Contains(lower, "launcher") || strings.Contains(lower, "systemui") || strings.Contains(lower, "settings") {
			continue
		}
		grouped[app] = append(grouped[app], t)
	}

	var out []AppSpending
	for app, group := range grouped {
		spending := AppSpending{AppName: app, TransactionCount: len(group)}
		for _, t := range group {
			spending.TotalSpent += domain.AmountValue(t.Amount)
		}
		spending.Category = group[0].Category
		if spending.Category == "" {
			spending.Category = "Uncategorized"
		}
		out = append(out, spending)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSpent > out[j].TotalSpent
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GuessNecessity infers "need" or "want" from category and merchant names.
// Returns "" when neither heuristic applies; a model-provided necessity
// takes precedence over this guess.
func GuessNecessity(category, merchant string) string {
	cat := strings.ToLower(category)
	merch := strings.ToLower(merchant)
	switch {
	case strings.Contains(cat, "transport"):
		return "need"
	case strings.Contains(cat, "grocery"), strings.Contains(cat, "groceries"),
		strings.Contains(cat, "medicine"), strings.Contains(cat, "health"):
		return "need"
	case strings.Contains(cat, "bill"), strings.Contains(cat, "recharge"), strings.Contains(cat, "utility"), strings.Contains(cat, "utilities"):
		return "need"
	case strings.Contains(cat, "rent"), strings.Contains(cat, "housing"):
		return "need"
	case strings.Contains(cat, "education"):
		return "need"
	case strings.Contains(cat, "food delivery"), strings.Contains(merch, "zomato"), strings.Contains(merch, "swiggy"):
		return "want"
	case strings.Contains(cat, "shopping"), strings.Contains(cat, "entertainment"):
		return "want"
	case strings.Contains(cat, "personal"), strings.Contains(cat, "salon"):
		return "want"
	case strings.Contains(cat, "travel"):
		return "want"
	default:
		return ""
	}
}
