// Package correlate matches payment notifications to the app the user was
// most plausibly using when the payment happened.
//
// Scoring is additive over four signals: whether the candidate app is a
// known payment-adjacent app, whether its category is one people typically
// transact in, how long the usage session lasted, and how recently it ended
// before the payment. The best-scoring session wins; when no usable session
// exists the engine falls back to keyword classification of the
// notification text.
package correlate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
	"github.com/dvloznov/expense-intel/internal/knowledge"
)

const (
	// DefaultWindow is how far back before the payment a usage session may
	// end and still count as a candidate.
	DefaultWindow = 10 * time.Minute

	scoreKnownApp      = 50
	scoreTransactional = 30

	highCutoff   = 80
	mediumCutoff = 40
)

// transactionalCategories are app categories where an in-app payment is the
// normal outcome of a session.
var transactionalCategories = map[string]bool{
	"Food Delivery": true,
	"Transport":     true,
	"Shopping":      true,
	"Groceries":     true,
	"Travel":        true,
}

// Engine scores app usage sessions against payment timestamps.
type Engine struct {
	window time.Duration
}

// NewEngine returns an engine with the given correlation window.
func NewEngine(window time.Duration) (*Engine, error) {
	if window <= 0 {
		return nil, fmt.Errorf("NewEngine: window must be positive, got %s", window)
	}
	return &Engine{window: window}, nil
}

// Correlate picks the app most likely responsible for a payment that
// occurred at paidAt, given recent usage sessions. Candidates are sessions
// overlapping the lookback window, including ones still open at payment
// time: the app on screen when the payment lands is the most likely cause.
// Sessions from irrelevant system apps are skipped. With no usable session
// the result falls back to keyword classification of the notification text
// with low confidence and no attributed app.
func (e *Engine) Correlate(paidAt time.Time, text string, sessions []domain.AppUsageSession) domain.CorrelationResult {
	type scored struct {
		session domain.AppUsageSession
		gap     time.Duration
		score   int
	}
	var best *scored

	windowStart := paidAt.Add(-e.window)
	for _, s := range sessions {
		if s.Start.After(paidAt) || s.End.Before(windowStart) {
			continue
		}
		if !knowledge.IsRelevant(s.AppID) {
			continue
		}
		// A session still running at payment time counts as ended now.
		gap := paidAt.Sub(s.End)
		if gap < 0 {
			gap = 0
		}
		score := e.score(s, gap)
		if best == nil || score > best.score {
			best = &scored{session: s, gap: gap, score: score}
		}
	}

	if best == nil {
		return domain.CorrelationResult{
			Category:   ClassifyText(text),
			Confidence: domain.ConfidenceLow,
			Reason:     "no app usage within correlation window",
		}
	}

	info, known := knowledge.Lookup(best.session.AppID)
	name := knowledge.FriendlyName(best.session.AppID)
	category := "Unknown"
	if known {
		category = info.Category
	}
	reason := fmt.Sprintf("used %s for %s, ending %s before payment",
		name, best.session.Duration.Round(time.Second), best.gap.Round(time.Second))
	if best.session.End.After(paidAt) {
		reason = fmt.Sprintf("used %s for %s, still open at payment time",
			name, best.session.Duration.Round(time.Second))
	}
	return domain.CorrelationResult{
		AppName:    name,
		AppID:      best.session.AppID,
		Category:   category,
		Confidence: confidenceFor(best.score),
		Reason:     reason,
	}
}

func (e *Engine) score(s domain.AppUsageSession, gap time.Duration) int {
	score := 0
	info, known := knowledge.Lookup(s.AppID)
	if known {
		score += scoreKnownApp
		if transactionalCategories[info.Category] {
			score += scoreTransactional
		}
	}
	score += durationScore(s.Duration)
	score += recencyScore(gap)
	return score
}

func durationScore(d time.Duration) int {
	switch {
	case d >= 60*time.Second:
		return 20
	case d >= 30*time.Second:
		return 15
	case d >= 10*time.Second:
		return 10
	default:
		return 5
	}
}

func recencyScore(gap time.Duration) int {
	switch {
	case gap < time.Minute:
		return 20
	case gap < 3*time.Minute:
		return 10
	case gap < 10*time.Minute:
		return 5
	default:
		return 0
	}
}

func confidenceFor(score int) domain.Confidence {
	switch {
	case score >= highCutoff:
		return domain.ConfidenceHigh
	case score >= mediumCutoff:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// keywordBuckets map notification text fragments to spending categories,
// checked in order. Used when no app session explains the payment.
var keywordBuckets = []struct {
	category string
	words    []string
}{
	{"Food", []string{"zomato", "swiggy", "food", "restaurant", "cafe", "pizza", "burger", "chowmein",
		"biryani", "chai", "tea", "coffee", "bakery", "dhaba", "kitchen", "meals", "tiffin", "juice", "eat", "sweets"}},
	{"Transport", []string{"uber", "ola", "rapido", "cab", "auto", "ride", "trip", "metro", "bus",
		"transport", "parking", "petrol", "diesel", "fuel", "toll"}},
	{"Shopping", []string{"amazon", "flipkart", "myntra", "shop", "store", "mart", "retail", "mall", "bazaar", "market"}},
	{"Groceries", []string{"bigbasket", "zepto", "blinkit", "grocery", "vegetables", "fruits", "kirana", "supermarket", "fresh"}},
	{"Utilities / Bills", []string{"electricity", "water", "gas", "bill", "recharge", "airtel", "jio",
		"vodafone", "bsnl", "broadband", "wifi", "insurance", "emi", "dth"}},
	{"Healthcare", []string{"hospital", "medical", "pharmacy", "medicine", "doctor", "clinic", "health",
		"lab", "diagnostic", "chemist"}},
	{"Entertainment", []string{"movie", "cinema", "pvr", "inox", "netflix", "hotstar", "spotify",
		"subscription", "ticket", "event"}},
}

// ClassifyText assigns a category from notification text keywords alone,
// defaulting to "Offline Purchase".
func ClassifyText(text string) string {
	lower := strings.ToLower(text)
	for _, bucket := range keywordBuckets {
		for _, w := range bucket.words {
			if strings.Contains(lower, w) {
				return bucket.category
			}
		}
	}
	return "Offline Purchase"
}

// RankSessions orders candidate sessions by descending score for a payment
// at paidAt, filtering the same way Correlate does. Useful for explaining a
// correlation decision.
func (e *Engine) RankSessions(paidAt time.Time, sessions []domain.AppUsageSession) []domain.AppUsageSession {
	type scored struct {
		s     domain.AppUsageSession
		score int
	}
	var kept []scored
	windowStart := paidAt.Add(-e.window)
	for _, s := range sessions {
		if s.Start.After(paidAt) || s.End.Before(windowStart) || !knowledge.IsRelevant(s.AppID) {
			continue
		}
		gap := paidAt.Sub(s.End)
		if gap < 0 {
			gap = 0
		}
		kept = append(kept, scored{s, e.score(s, gap)})
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	out := make([]domain.AppUsageSession, len(kept))
	for i, k := range kept {
		out[i] = k.s
	}
	return out
}

// CorrelateText is the fallback path for payments with no session context:
// the category comes from text keywords and confidence is always low.
func CorrelateText(text string) domain.CorrelationResult {
	return domain.CorrelationResult{
		Category:   ClassifyText(text),
		Confidence: domain.ConfidenceLow,
		Reason:     "classified from notification text",
	}
}
