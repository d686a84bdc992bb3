package dedupe

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
)

func event(sourceApp, title string, postedAt time.Time) domain.NotificationEvent {
	return domain.NotificationEvent{
		SourceApp: sourceApp,
		Title:     title,
		Text:      "₹100 paid to someone",
		PostedAt:  postedAt,
	}
}

func TestSeen(t *testing.T) {
	d := New(nil)
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	n := event("com.phonepe.app", "Payment sent", at)

	if d.Seen(n) {
		t.Error("first Seen should be false")
	}
	if !d.Seen(n) {
		t.Error("second Seen should be true")
	}

	later := event("com.phonepe.app", "Payment sent", at.Add(time.Second))
	if d.Seen(later) {
		t.Error("different timestamp is a different notification")
	}
}

func TestSeenEvictsOldestFirst(t *testing.T) {
	d := New(nil)
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	first := event("app", "n-0", at)
	d.Seen(first)
	for i := 1; i <= MaxKeys; i++ {
		d.Seen(event("app", fmt.Sprintf("n-%d", i), at))
	}

	if d.Len() != MaxKeys {
		t.Errorf("Len = %d, want %d", d.Len(), MaxKeys)
	}
	if d.Seen(first) {
		t.Error("oldest key should have been evicted and read as new")
	}
	if d.Seen(event("app", fmt.Sprintf("n-%d", MaxKeys), at)) != true {
		t.Error("newest key should still be tracked")
	}
}

func TestIsBankDebit(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Rs 890.00 debited from A/c XX2341", true},
		{"INR 500 debited, Avl balance Rs 1,200", true},
		{"debited from your Acct ending 9921", true},
		{"₹183 paid to Uber India using UPI", false},
		{"debited for your order", false},
		{"your account statement is ready", false},
	}
	for _, tt := range tests {
		if got := IsBankDebit(tt.text); got != tt.want {
			t.Errorf("IsBankDebit(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsBankEcho(t *testing.T) {
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	bankNote := domain.NotificationEvent{
		SourceApp: "com.sbi.lotusintouch",
		Text:      "Rs 890.00 debited from A/c XX2341",
		PostedAt:  at,
	}

	t.Run("suppresses matching recent amount", func(t *testing.T) {
		var gotFrom, gotTo time.Time
		d := New(func(amount string, from, to time.Time) (bool, error) {
			gotFrom, gotTo = from, to
			return amount == "890.00", nil
		})
		if !d.IsBankEcho(bankNote, "890.00") {
			t.Error("matching amount within window should suppress")
		}
		if gotTo.Sub(gotFrom) != EchoWindow {
			t.Errorf("lookup window = %s, want %s", gotTo.Sub(gotFrom), EchoWindow)
		}
	})

	t.Run("no match keeps notification", func(t *testing.T) {
		d := New(func(string, time.Time, time.Time) (bool, error) { return false, nil })
		if d.IsBankEcho(bankNote, "890.00") {
			t.Error("no recent transaction, must not suppress")
		}
	})

	t.Run("lookup error keeps notification", func(t *testing.T) {
		d := New(func(string, time.Time, time.Time) (bool, error) {
			return true, errors.New("query timeout")
		})
		if d.IsBankEcho(bankNote, "890.00") {
			t.Error("lookup failure must not suppress")
		}
	})

	t.Run("non-bank text never suppresses", func(t *testing.T) {
		d := New(func(string, time.Time, time.Time) (bool, error) { return true, nil })
		appNote := domain.NotificationEvent{Text: "₹890 paid to Swiggy using UPI", PostedAt: at}
		if d.IsBankEcho(appNote, "890") {
			t.Error("payment app confirmation is not a bank echo")
		}
	})

	t.Run("nil lookup never suppresses", func(t *testing.T) {
		d := New(nil)
		if d.IsBankEcho(bankNote, "890.00") {
			t.Error("nil lookup must not suppress")
		}
	})
}
