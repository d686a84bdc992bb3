// Package subscribe finds recurring charges in transaction history and
// estimates the monthly cost they add up to.
package subscribe

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
	"github.com/dvloznov/expense-intel/internal/parser"
)

const (
	// LookbackDays bounds how much history detection considers.
	LookbackDays = 90

	// minHistory is the minimum total transactions needed before detection
	// runs at all.
	minHistory = 4

	// minGroupSize is the minimum charges from one merchant needed to call
	// it recurring.
	minGroupSize = 2

	// maxAmountSpread rejects groups whose charge amounts vary too much
	// relative to their mean. Subscriptions bill the same amount each cycle.
	maxAmountSpread = 0.15

	// weeklyBurnFactor converts a weekly charge to monthly cost.
	weeklyBurnFactor = 4.33
)

// knownSubscriptionServices is a vocabulary of merchants that are almost
// always subscriptions when they recur. Matching is by substring against
// the normalized merchant name.
var knownSubscriptionServices = []string{
	"netflix", "spotify", "youtube", "hotstar", "prime", "amazonprime",
	"zee5", "sonyliv", "jiocinema", "apple", "icloud", "googleone",
	"linkedin", "medium", "notion", "figma", "canva", "adobe",
	"chatgpt", "openai", "github", "dropbox", "evernote",
	"airtel", "jio", "vi", "vodafone", "bsnl", "tatasky", "dth",
}

// frequencyBands map mean gap in days between charges to a billing cycle.
// Gaps between bands mean the cadence is too irregular to call.
var frequencyBands = []struct {
	min, max  float64
	frequency domain.Frequency
}{
	{5, 9, domain.FrequencyWeekly},
	{20, 40, domain.FrequencyMonthly},
	{340, 400, domain.FrequencyYearly},
}

// Detect scans transactions for recurring charges. Only transactions from
// the last LookbackDays before now are considered. Results are sorted by
// how many times each subscription was seen, most frequent first.
func Detect(now time.Time, txns []domain.Transaction) []domain.Subscription {
	cutoff := now.AddDate(0, 0, -LookbackDays)
	var recent []domain.Transaction
	for _, t := range txns {
		if t.Merchant == "" || t.Amount == "" {
			continue
		}
		if t.PostedAt.Before(cutoff) || t.PostedAt.After(now) {
			continue
		}
		recent = append(recent, t)
	}
	if len(recent) < minHistory {
		return nil
	}

	groups := map[string][]domain.Transaction{}
	names := map[string]string{}
	for _, t := range recent {
		key := parser.NormalizeMerchant(t.Merchant)
		if len(key) <= 2 {
			continue
		}
		groups[key] = append(groups[key], t)
		names[key] = t.Merchant
	}

	var subs []domain.Subscription
	for key, group := range groups {
		if len(group) < minGroupSize {
			continue
		}
		sub, ok := analyzeGroup(key, names[key], group)
		if !ok {
			continue
		}
		subs = append(subs, sub)
	}

	sort.SliceStable(subs, func(i, j int) bool {
		return subs[i].TimesDetected > subs[j].TimesDetected
	})
	return subs
}

func analyzeGroup(key, displayName string, group []domain.Transaction) (domain.Subscription, bool) {
	sort.Slice(group, func(i, j int) bool {
		return group[i].PostedAt.Before(group[j].PostedAt)
	})

	amounts := make([]float64, len(group))
	var sum, min, max float64
	for i, t := range group {
		v := domain.AmountValue(t.Amount)
		amounts[i] = v
		sum += v
		if i == 0 || v < min {
			min = v
		}
		if i == 0 || v > max {
			max = v
		}
	}
	mean := sum / float64(len(amounts))
	if mean <= 0 || (max-min)/mean > maxAmountSpread {
		return domain.Subscription{}, false
	}

	var gapSum float64
	for i := 1; i < len(group); i++ {
		gapSum += group[i].PostedAt.Sub(group[i-1].PostedAt).Hours() / 24
	}
	meanGap := gapSum / float64(len(group)-1)

	freq, ok := frequencyFor(meanGap)
	if !ok {
		return domain.Subscription{}, false
	}

	known := isKnownService(key)
	last := group[len(group)-1].PostedAt

	return domain.Subscription{
		MerchantName:   displayName,
		NormalizedName: key,
		Amount:         math.Round(mean*100) / 100,
		Frequency:      freq,
		Confidence:     subscriptionConfidence(known, len(group)),
		LastChargedAt:  last,
		NextExpectedAt: nextCharge(last, meanGap),
		TimesDetected:  len(group),
		IsActive:       true,
	}, true
}

func frequencyFor(meanGapDays float64) (domain.Frequency, bool) {
	for _, b := range frequencyBands {
		if meanGapDays >= b.min && meanGapDays <= b.max {
			return b.frequency, true
		}
	}
	return "", false
}

func isKnownService(normalized string) bool {
	for _, s := range knownSubscriptionServices {
		if strings.Contains(normalized, s) {
			return true
		}
	}
	return false
}

func subscriptionConfidence(known bool, occurrences int) domain.Confidence {
	switch {
	case known && occurrences >= 3:
		return domain.ConfidenceHigh
	case known || occurrences >= 3:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// nextCharge projects from the last charge by the group's own observed mean
// gap, not a calendar step: a service billing every 28 days is predicted 28
// days out, not a month.
func nextCharge(last time.Time, meanGapDays float64) time.Time {
	return last.Add(time.Duration(meanGapDays * 24 * float64(time.Hour)))
}

// MonthlyBurn sums active subscriptions into an estimated monthly cost.
// Weekly charges are scaled by the average weeks per month and yearly
// charges are spread over twelve months.
func MonthlyBurn(subs []domain.Subscription) float64 {
	var total float64
	for _, s := range subs {
		if !s.IsActive {
			continue
		}
		switch s.Frequency {
		case domain.FrequencyWeekly:
			total += s.Amount * weeklyBurnFactor
		case domain.FrequencyMonthly:
			total += s.Amount
		case domain.FrequencyYearly:
			total += s.Amount / 12
		}
	}
	return math.Round(total*100) / 100
}
