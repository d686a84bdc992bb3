package domain

import (
	"strconv"
	"strings"
	"time"
)

// NotificationEvent is one notification captured from the device's
// notification stream. It is immutable input: the listener process creates
// it with its post timestamp already set, and the pipeline consumes it once.
type NotificationEvent struct {
	SourceApp string    // package identifier of the posting app
	Title     string
	Text      string
	PostedAt  time.Time
}

// Key returns the deduplication key for this event. The platform can re-post
// the same notification when it is updated, so the key includes the post time.
func (e NotificationEvent) Key() string {
	return e.SourceApp + "|" + e.Title + "|" + e.PostedAt.Format(time.RFC3339Nano)
}

// ParsedTransaction holds the structured fields extracted from one
// notification's text. Empty string means the field was not found; not every
// notification contains payment info.
type ParsedTransaction struct {
	Amount   string // e.g. "183" or "1,460.00", separators preserved as written
	Merchant string // e.g. "Uber India", "RAMESH FAST FOOD"
	Channel  string // e.g. "UPI", "Card", "Net Banking"
}

// IsPayment reports whether an amount was extracted. Downstream components
// treat an event without an amount as "not a transaction".
func (p ParsedTransaction) IsPayment() bool {
	return p.Amount != ""
}

// AmountValue parses the extracted amount into a float, stripping thousands
// separators. Malformed amounts contribute zero rather than failing a batch.
func AmountValue(amount string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(amount, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

// Transaction is one persisted monetary notification: the raw event, the
// parser output, and whatever correlation/enrichment has been attached so far.
type Transaction struct {
	ID        string
	SourceApp string
	Title     string
	Text      string
	PostedAt  time.Time

	Amount   string
	Merchant string
	Channel  string

	Category      string
	CorrelatedApp string
	Confidence    Confidence
	Insight       string
}
