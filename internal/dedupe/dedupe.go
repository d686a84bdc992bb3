// Package dedupe suppresses duplicate and echo notifications before they
// reach the pipeline.
//
// Two mechanisms: a bounded set of recently seen notification keys catches
// literal re-deliveries, and a bank-echo rule drops the bank's debit SMS
// when the payment app already reported the same amount moments earlier.
package dedupe

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
)

// MaxKeys bounds the seen-set. When full, the oldest key is evicted first.
const MaxKeys = 100

// EchoWindow is how far back a matching app transaction suppresses a bank
// debit notification for the same amount.
const EchoWindow = 3 * time.Minute

// RecentAmountLookup reports whether a transaction for the given amount was
// recorded in the interval [from, to). Backed by transaction storage.
type RecentAmountLookup func(amount string, from, to time.Time) (bool, error)

// Deduper tracks recently seen notifications. Safe for concurrent use.
type Deduper struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string

	lookup RecentAmountLookup
}

// New returns a Deduper. lookup may be nil, in which case the bank-echo
// rule never suppresses.
func New(lookup RecentAmountLookup) *Deduper {
	return &Deduper{
		seen:   make(map[string]struct{}, MaxKeys),
		lookup: lookup,
	}
}

// Seen reports whether the notification was already processed, and records
// it if not. The first call for a key returns false, later calls true.
func (d *Deduper) Seen(n domain.NotificationEvent) bool {
	key := n.Key()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if len(d.order) >= MaxKeys {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[key] = struct{}{}
	d.order = append(d.order, key)
	return false
}

// Len returns how many keys are currently tracked.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

var bankAccountMarkers = regexp.MustCompile(`(?i)a/c|acct|account|ending|bank|balance`)

// IsBankDebit reports whether the text reads like a bank's debit alert
// rather than a payment app's own confirmation.
func IsBankDebit(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "debited") && bankAccountMarkers.MatchString(text)
}

// IsBankEcho reports whether a bank debit notification repeats a payment
// already captured from a payment app within EchoWindow. Non-bank texts and
// empty amounts are never echoes. Lookup errors are treated as no match so
// a storage hiccup cannot silently drop a real payment.
func (d *Deduper) IsBankEcho(n domain.NotificationEvent, amount string) bool {
	if d.lookup == nil || amount == "" || !IsBankDebit(n.Text) {
		return false
	}
	found, err := d.lookup(amount, n.PostedAt.Add(-EchoWindow), n.PostedAt)
	if err != nil {
		return false
	}
	return found
}
