package insight

import (
	"testing"
	"time"

	"github.com/dvloznov/expense-intel/internal/domain"
)

func TestBuildDailySummary(t *testing.T) {
	at := time.Date(2026, 3, 14, 21, 20, 0, 0, time.UTC)
	txns := []domain.Transaction{
		{Amount: "250", Merchant: "Swiggy", Category: "Food Delivery", PostedAt: at},
		{Amount: "183", Merchant: "Zomato", Category: "Food Delivery", PostedAt: at},
		{Amount: "1,500", Merchant: "Landlord", Category: "", PostedAt: at},
		{Amount: "60", Merchant: "Metro", Category: "Unknown", PostedAt: at},
		{Amount: "garbage", Merchant: "Corrupt", Category: "Shopping", PostedAt: at},
	}

	got := BuildDailySummary(txns)

	if got.TransactionCount != 5 {
		t.Errorf("TransactionCount = %d, want 5", got.TransactionCount)
	}
	if got.TotalSpent != 250+183+1500+60 {
		t.Errorf("TotalSpent = %.2f, want %.2f", got.TotalSpent, 250+183+1500+60.0)
	}
	if len(got.Categories) != 3 {
		t.Fatalf("len(Categories) = %d, want 3", len(got.Categories))
	}
	if got.Categories[0].Category != "Other" || got.Categories[0].Total != 1560 {
		t.Errorf("Categories[0] = %q/%.2f, want Other/1560 first",
			got.Categories[0].Category, got.Categories[0].Total)
	}
	if got.Categories[1].Category != "Food Delivery" || got.Categories[1].Total != 433 {
		t.Errorf("Categories[1] = %q/%.2f, want Food Delivery/433",
			got.Categories[1].Category, got.Categories[1].Total)
	}
	if got.Categories[2].Total != 0 {
		t.Errorf("malformed amount should count as zero, got %.2f", got.Categories[2].Total)
	}
}

func TestBuildDailySummaryEmpty(t *testing.T) {
	got := BuildDailySummary(nil)
	if got.TotalSpent != 0 || got.TransactionCount != 0 || got.Categories != nil {
		t.Errorf("empty input should produce zero summary, got %+v", got)
	}
}

func TestTopAppsBySpending(t *testing.T) {
	txns := []domain.Transaction{
		{Amount: "250", CorrelatedApp: "Swiggy", Category: "Food Delivery"},
		{Amount: "340", CorrelatedApp: "Swiggy", Category: "Food Delivery"},
		{Amount: "183", CorrelatedApp: "Uber", Category: "Transport"},
		{Amount: "99", CorrelatedApp: "Unknown"},
		{Amount: "500", CorrelatedApp: ""},
		{Amount: "75", CorrelatedApp: "com.android.systemui"},
	}

	got := TopAppsBySpending(txns, 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].AppName != "Swiggy" || got[0].TotalSpent != 590 || got[0].TransactionCount != 2 {
		t.Errorf("got[0] = %+v, want Swiggy with 590 over 2 txns", got[0])
	}
	if got[1].AppName != "Uber" {
		t.Errorf("got[1] = %+v, want Uber", got[1])
	}

	if limited := TopAppsBySpending(txns, 1); len(limited) != 1 {
		t.Errorf("limit 1 should return 1 app, got %d", len(limited))
	}
}

func TestGuessNecessity(t *testing.T) {
	tests := []struct {
		category string
		merchant string
		want     string
	}{
		{"Transport", "", "need"},
		{"Groceries", "", "need"},
		{"Utilities / Bills", "", "need"},
		{"Food Delivery", "", "want"},
		{"", "Zomato Ltd", "want"},
		{"Shopping", "", "want"},
		{"Travel", "", "want"},
		{"Offline Purchase", "Corner Shop", ""},
	}
	for _, tt := range tests {
		if got := GuessNecessity(tt.category, tt.merchant); got != tt.want {
			t.Errorf("GuessNecessity(%q, %q) = %q, want %q", tt.category, tt.merchant, got, tt.want)
		}
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"description":"dinner"}`, `{"description":"dinner"}`},
		{"fenced", "```json\n{\"description\":\"dinner\"}\n```", `{"description":"dinner"}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"chatter around object", "Sure! Here you go: {\"a\":1} hope that helps", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
