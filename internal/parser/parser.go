// Package parser extracts structured payment fields from raw notification
// text.
//
// Payment notifications follow common patterns:
//
//	"₹183 paid to Uber India using UPI"
//	"Payment of Rs.120.00 to RAMESH FAST FOOD via UPI"
//	"Sent ₹500 to Amit Kumar on Google Pay"
//	"INR 1,460.00 debited from A/c XX2341 to RELIANCE RETAIL"
//	"Rs 247 paid to Zomato Ltd UPI Ref: 423456789"
//
// Extraction is an ordered list of rules tried in sequence; the first rule
// that produces a non-empty match wins. Parsing is a pure function of the
// input string and never fails. Fields that cannot be located come back
// empty.
package parser

import (
	"regexp"
	"strings"

	"github.com/dvloznov/expense-intel/internal/domain"
)

// amountRule matches a currency marker next to a digit group, in either
// order. Group 1 captures "₹183" style (marker before), group 2 captures
// "183 rupees" style (marker after). Comma separators are kept as written;
// the consumer is responsible for numeric parsing.
var amountRule = regexp.MustCompile(
	`(?i)(?:₹|Rs\.?\s?|INR)\s*([\d,]+\.?\d*)|(\d[\d,]*\.?\d*)\s*(?:₹|Rs\.?|INR|rupees?)`)

// merchantRule is a named extraction rule. Rules are tried in order and the
// first non-empty capture wins.
type merchantRule struct {
	name string
	re   *regexp.Regexp
}

var merchantRules = []merchantRule{
	// "paid to <name> using UPI". Lazy capture stops at the next channel or
	// reference marker so "Uber India using UPI" yields just "Uber India".
	{"preposition", regexp.MustCompile(
		`(?i)(?:paid |sent |debited .+?|payment .+?)?(?:to|for)\s+(.+?)(?:\s+(?:using|via|on|through|UPI|Ref|ref|$))`)},
	// Bank SMS phrasing: "UPI txn to MERCHANT on 12-03", stopping before
	// reference labels, balance markers and date fragments.
	{"bank", regexp.MustCompile(
		`(?i)(?:txn|transaction|transfer)\s+(?:to|for)\s+([A-Za-z][\w\s@.\-]+?)(?:\s+(?:on|Ref|ref|Avl|avl|\d{2}[-/])|\s*$)`)},
	// Last resort: "₹200 to Rahul Kumar" anchored at end of string.
	{"trailing", regexp.MustCompile(`(?i)(?:to|for)\s+([A-Za-z@][\w\s@.]+)$`)},
}

// bankPhrase detects when the preposition rule swallowed bank phrasing
// ("UPI txn to SWIGGY" captured whole) and the bank rule should re-extract.
var bankPhrase = regexp.MustCompile(`(?i)(?:txn|transaction)\s+to\s`)

var channelRule = regexp.MustCompile(
	`(?i)(UPI|NEFT|IMPS|RTGS|Net Banking|Debit Card|Credit Card|Card|Google Pay|GPay|PhonePe|Paytm|Amazon Pay)`)

var (
	trailingPunct = regexp.MustCompile(`[.\-,;:!]+$`)
	innerSpace    = regexp.MustCompile(`\s+`)
)

// Parse extracts amount, merchant and payment channel from one notification
// text. Absent fields are empty strings; Parse never returns an error.
func Parse(text string) domain.ParsedTransaction {
	return domain.ParsedTransaction{
		Amount:   extractAmount(text),
		Merchant: extractMerchant(text),
		Channel:  extractChannel(text),
	}
}

func extractAmount(text string) string {
	m := amountRule.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return m[1]
	}
	return m[2]
}

func extractMerchant(text string) string {
	var merchant string
	for _, rule := range merchantRules {
		m := rule.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		merchant = strings.TrimSpace(m[1])

		// The preposition rule can capture "UPI txn to SWIGGY" wholesale.
		// Re-extract with the bank rule before accepting it.
		if rule.name == "preposition" && bankPhrase.MatchString(merchant) {
			if bm := merchantRules[1].re.FindStringSubmatch(text); bm != nil {
				merchant = strings.TrimSpace(bm[1])
			}
		}
		if merchant != "" {
			break
		}
	}
	if merchant == "" {
		return ""
	}

	merchant = trailingPunct.ReplaceAllString(merchant, "")
	merchant = innerSpace.ReplaceAllString(merchant, " ")
	return strings.TrimSpace(merchant)
}

func extractChannel(text string) string {
	m := channelRule.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// NormalizeMerchant reduces a merchant name to lowercase alphanumerics only,
// the stable key used for grouping and alias lookup.
func NormalizeMerchant(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
