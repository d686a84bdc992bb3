// Package insight produces human-readable context for transactions: a
// model-generated one-line description per payment, a weekly behavioral
// summary, and deterministic fallbacks (daily totals, time-of-day category
// suggestions) that work without any model at all.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/expense-intel/internal/domain"
)

const (
	// DefaultModelName generates insights and weekly summaries.
	DefaultModelName = "gemini-2.5-flash"

	// VerifyModelName is the smaller model used for yes/no payment checks,
	// where latency matters more than nuance.
	VerifyModelName = "gemini-2.5-flash-lite"
)

// Insight is the model's read on a single payment.
type Insight struct {
	Description string `json:"description"`
	Subcategory string `json:"subcategory"`
	Necessity   string `json:"necessity"` // "need" or "want"
}

// Engine wraps a Gemini client for insight generation.
type Engine struct {
	client *genai.Client
	model  string
}

// NewEngine creates an Engine using application default credentials.
func NewEngine(ctx context.Context) (*Engine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewEngine: create genai client: %w", err)
	}
	return &Engine{client: client, model: DefaultModelName}, nil
}

// GenerateInsight asks the model what a payment was likely for. The result
// is best effort: a malformed model response falls back to using the raw
// text as the description rather than failing the transaction.
func (e *Engine) GenerateInsight(ctx context.Context, txn domain.Transaction, corr domain.CorrelationResult) (Insight, error) {
	prompt := buildInsightPrompt(txn, corr)

	raw, err := e.generate(ctx, e.model, prompt)
	if err != nil {
		return Insight{}, fmt.Errorf("GenerateInsight: %w", err)
	}

	clean := cleanModelJSON(raw)
	var ins Insight
	if err := json.Unmarshal([]byte(clean), &ins); err != nil {
		if len(raw) > 200 {
			raw = raw[:200]
		}
		return Insight{Description: raw}, nil
	}
	if ins.Description == "" {
		ins.Description = "Payment recorded"
	}
	return ins, nil
}

// VerifyPayment asks the model whether a notification describes money
// actually leaving the account, as opposed to an offer, cashback or
// credit. Any error or ambiguous answer counts as no, so a flaky model can
// never let promotional noise through.
func (e *Engine) VerifyPayment(ctx context.Context, text string) bool {
	raw, err := e.generate(ctx, VerifyModelName, buildVerifyPrompt(text))
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToUpper(strings.TrimSpace(raw)), "YES")
}

// WeeklySummary sends a week of transactions to the model and returns
// bullet-point observations about spending patterns. Fewer than two
// transactions yields a static message without a model call.
func (e *Engine) WeeklySummary(ctx context.Context, txns []domain.Transaction) (string, error) {
	if len(txns) < 2 {
		return "Not enough transactions this week to generate insights.", nil
	}

	raw, err := e.generate(ctx, e.model, buildWeeklyPrompt(txns))
	if err != nil {
		return "", fmt.Errorf("WeeklySummary: %w", err)
	}

	clean := cleanModelJSON(raw)
	var parsed struct {
		Insights []string `json:"insights"`
	}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil || len(parsed.Insights) == 0 {
		if len(raw) > 500 {
			raw = raw[:500]
		}
		return raw, nil
	}

	var b strings.Builder
	for i, line := range parsed.Insights {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + line)
	}
	return b.String(), nil
}

func (e *Engine) generate(ctx context.Context, model, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := e.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return strings.TrimSpace(text), nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the plain-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
