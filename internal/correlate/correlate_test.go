package correlate

import (
	"testing"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
)

var paidAt = time.Date(2026, 3, 14, 20, 30, 0, 0, time.UTC)

func session(appID string, endedBefore, duration time.Duration) domain.AppUsageSession {
	end := paidAt.Add(-endedBefore)
	return domain.AppUsageSession{
		AppID:    appID,
		Start:    end.Add(-duration),
		End:      end,
		Duration: duration,
	}
}

func TestCorrelateKnownApp(t *testing.T) {
	e, err := NewEngine(DefaultWindow)
	if err != nil {
		t.Fatal(err)
	}
	sessions := []domain.AppUsageSession{
		session("com.ubercab", 30*time.Second, 2*time.Minute),
	}
	got := e.Correlate(paidAt, "₹183 paid to Uber India", sessions)

	if got.AppName != "Uber" {
		t.Errorf("AppName = %q, want %q", got.AppName, "Uber")
	}
	if got.Category != "Transport" {
		t.Errorf("Category = %q, want %q", got.Category, "Transport")
	}
	// known 50 + transactional 30 + duration 20 + recency 20 = 120
	if got.Confidence != domain.ConfidenceHigh {
		t.Errorf("Confidence = %q, want %q", got.Confidence, domain.ConfidenceHigh)
	}
}

func TestCorrelatePrefersBetterSession(t *testing.T) {
	e, _ := NewEngine(DefaultWindow)
	sessions := []domain.AppUsageSession{
		session("com.unknown.game", 20*time.Second, 5*time.Minute),
		session("in.swiggy.android", 45*time.Second, 3*time.Minute),
	}
	got := e.Correlate(paidAt, "Rs 340 paid via UPI", sessions)
	if got.AppName != "Swiggy" {
		t.Errorf("AppName = %q, want %q", got.AppName, "Swiggy")
	}
	if got.Category != "Food Delivery" {
		t.Errorf("Category = %q, want %q", got.Category, "Food Delivery")
	}
}

func TestCorrelateSkipsNonOverlappingSessions(t *testing.T) {
	e, _ := NewEngine(DefaultWindow)
	sessions := []domain.AppUsageSession{
		// Ended a minute before the window opens.
		session("com.ubercab", 11*time.Minute, 2*time.Minute),
		// Starts two minutes after the payment.
		session("in.swiggy.android", -3*time.Minute, time.Minute),
	}
	got := e.Correlate(paidAt, "paid ₹60 at fuel station", sessions)
	if got.AppName != "" {
		t.Errorf("AppName = %q, want empty on fallback", got.AppName)
	}
	if got.Category != "Transport" {
		t.Errorf("Category = %q, want Transport from text fallback", got.Category)
	}
	if got.Confidence != domain.ConfidenceLow {
		t.Errorf("Confidence = %q, want %q", got.Confidence, domain.ConfidenceLow)
	}
}

func TestCorrelateAttributesStillOpenSession(t *testing.T) {
	e, _ := NewEngine(DefaultWindow)
	// Swiggy opened two minutes before the payment and is still on screen
	// when the payment lands.
	sessions := []domain.AppUsageSession{
		session("in.swiggy.android", -30*time.Second, 2*time.Minute+30*time.Second),
	}
	got := e.Correlate(paidAt, "₹340 paid to Swiggy", sessions)
	if got.AppName != "Swiggy" {
		t.Errorf("AppName = %q, want Swiggy", got.AppName)
	}
	if got.Category != "Food Delivery" {
		t.Errorf("Category = %q, want Food Delivery", got.Category)
	}
	// known 50 + transactional 30 + duration 20 + recency 20 (open session
	// counts as gap zero) = 120
	if got.Confidence != domain.ConfidenceHigh {
		t.Errorf("Confidence = %q, want %q", got.Confidence, domain.ConfidenceHigh)
	}
}

func TestCorrelateUnknownAppGetsUnknownCategory(t *testing.T) {
	e, _ := NewEngine(DefaultWindow)
	sessions := []domain.AppUsageSession{
		session("com.unknown.game", 20*time.Second, 5*time.Minute),
	}
	got := e.Correlate(paidAt, "Rs 120 paid via UPI", sessions)
	if got.AppName != "game" {
		t.Errorf("AppName = %q, want last identifier segment", got.AppName)
	}
	if got.Category != "Unknown" {
		t.Errorf("Category = %q, want Unknown for unrecognized app", got.Category)
	}
}

func TestCorrelateIgnoresSystemApps(t *testing.T) {
	e, _ := NewEngine(DefaultWindow)
	sessions := []domain.AppUsageSession{
		session("com.android.systemui", 10*time.Second, 5*time.Minute),
		session("com.google.android.gms", 15*time.Second, 5*time.Minute),
	}
	got := e.Correlate(paidAt, "", sessions)
	if got.AppName != "" {
		t.Errorf("AppName = %q, system apps must never win", got.AppName)
	}
}

func TestNewEngineRejectsBadWindow(t *testing.T) {
	if _, err := NewEngine(0); err == nil {
		t.Error("NewEngine(0) should fail")
	}
	if _, err := NewEngine(-time.Minute); err == nil {
		t.Error("NewEngine(-1m) should fail")
	}
}

func TestDurationScoreMonotonic(t *testing.T) {
	durations := []time.Duration{
		time.Second, 9 * time.Second, 10 * time.Second, 29 * time.Second,
		30 * time.Second, 59 * time.Second, 60 * time.Second, time.Hour,
	}
	prev := -1
	for _, d := range durations {
		s := durationScore(d)
		if s < prev {
			t.Errorf("durationScore(%s) = %d, decreased from %d", d, s, prev)
		}
		prev = s
	}
}

func TestRecencyScoreMonotonic(t *testing.T) {
	gaps := []time.Duration{
		time.Second, 59 * time.Second, time.Minute, 2 * time.Minute,
		3 * time.Minute, 9 * time.Minute, 10 * time.Minute, time.Hour,
	}
	prev := 100
	for _, g := range gaps {
		s := recencyScore(g)
		if s > prev {
			t.Errorf("recencyScore(%s) = %d, increased from %d", g, s, prev)
		}
		prev = s
	}
}

func TestClassifyText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"paid at Sharma Sweets and Bakery", "Food"},
		{"HP Petrol Pump payment", "Transport"},
		{"D-Mart retail purchase", "Shopping"},
		{"monthly electricity bill", "Utilities / Bills"},
		{"Apollo Pharmacy", "Healthcare"},
		{"PVR movie ticket", "Entertainment"},
		{"paid to RAMESH CHOWMEIN", "Food"},
		{"morning chai at the stand", "Food"},
		{"Uber trip receipt", "Transport"},
		{"Amazon order payment", "Shopping"},
		{"Blinkit delivery charge", "Groceries"},
		{"Airtel prepaid pack", "Utilities / Bills"},
		{"Netflix subscription renewed", "Entertainment"},
		{"something else entirely", "Offline Purchase"},
		{"", "Offline Purchase"},
	}
	for _, tt := range tests {
		if got := ClassifyText(tt.text); got != tt.want {
			t.Errorf("ClassifyText(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestCorrelateTextHasNoAttributedApp(t *testing.T) {
	got := CorrelateText("₹40 paid to RAMESH CHOWMEIN")
	if got.AppName != "" || got.AppID != "" {
		t.Errorf("AppName = %q, AppID = %q, want both empty", got.AppName, got.AppID)
	}
	if got.Category != "Food" {
		t.Errorf("Category = %q, want Food", got.Category)
	}
	if got.Confidence != domain.ConfidenceLow {
		t.Errorf("Confidence = %q, want low", got.Confidence)
	}
}

func TestRankSessions(t *testing.T) {
	e, _ := NewEngine(DefaultWindow)
	sessions := []domain.AppUsageSession{
		session("com.unknown.game", 8*time.Minute, 5*time.Second),
		session("com.ubercab", 30*time.Second, 2*time.Minute),
		session("com.android.systemui", 5*time.Second, time.Minute),
	}
	ranked := e.RankSessions(paidAt, sessions)
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want 2", len(ranked))
	}
	if ranked[0].AppID != "com.ubercab" {
		t.Errorf("ranked[0] = %q, want com.ubercab", ranked[0].AppID)
	}
}
