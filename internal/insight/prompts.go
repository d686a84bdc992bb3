package insight

import (
	"fmt"
	"strings"

	"github.com/dvloznov/expense-intel/internal/domain"
)

func buildInsightPrompt(txn domain.Transaction, corr domain.CorrelationResult) string {
	app := corr.AppName
	if app == "" || app == "Unknown" {
		app = "none (likely offline/in-person)"
	}
	return strings.TrimSpace(fmt.Sprintf(`
You are a personal expense analyst for an Indian user. Given a payment transaction, generate a brief, insightful description of what this purchase was likely for.

Transaction details:
- Amount: ₹%s
- Merchant: %s
- Raw notification: %q
- Time: %s
- Payment mode: %s
- App used before payment: %s
- Detected category: %s
- Correlation confidence: %s

Respond with ONLY a JSON object (no markdown, no backticks, no explanation):
{"description": "one-line human description of the purchase", "subcategory": "specific subcategory like Street Food, Cab Ride, Online Shopping, etc.", "necessity": "need or want"}`,
		orUnknown(txn.Amount),
		orUnknown(txn.Merchant),
		txn.Text,
		txn.PostedAt.Format("03:04 PM, Monday"),
		orUnknown(txn.Channel),
		app,
		corr.Category,
		corr.Confidence,
	))
}

func buildVerifyPrompt(text string) string {
	return strings.TrimSpace(fmt.Sprintf(`
You are a payment detection system. Given a phone notification message, determine if it describes an ACTUAL payment/expense (money leaving the user's account) or NOT (advertisement, offer, cashback, promotional message, income).

Notification: %q

Rules:
- "paid", "sent", "debited", "charged" = REAL payment -> YES
- "off", "cashback", "offer", "discount", "earn", "win", "reward" = NOT a payment -> NO
- "credited", "received" = income, NOT expense -> NO
- If unsure, say NO

Respond with ONLY one word: YES or NO`, text))
}

func buildWeeklyPrompt(txns []domain.Transaction) string {
	var lines []string
	for _, t := range txns {
		if t.Amount == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("₹%s to %s | Category: %s | Time: %s | Note: %s",
			t.Amount,
			orUnknown(t.Merchant),
			orUnknown(t.Category),
			t.PostedAt.Format("Monday 03:04 PM"),
			orNone(t.Insight),
		))
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are a personal finance behavioral analyst for an Indian user. Analyze their spending data from this week and generate 3-5 short, insightful observations about their spending PATTERNS and HABITS.

This week's transactions:
%s

Rules:
- Focus on PATTERNS (timing, frequency, categories), not just totals
- Be specific about days and times (e.g., "You tend to order food on weekday evenings around 9 PM")
- Mention if any category dominates spending
- Keep each insight to 1 line
- Be friendly and helpful, not judgmental
- If data is limited, say what you CAN observe

Respond with ONLY a JSON object (no markdown, no backticks):
{"insights": ["insight 1", "insight 2", "insight 3"]}`, strings.Join(lines, "\n")))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
