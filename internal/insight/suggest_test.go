package insight

import (
	"testing"
	"time"
)

func TestSuggestionsEvening(t *testing.T) {
	// Tuesday 9 PM
	at := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	got := Suggestions(at)
	if len(got) == 0 {
		t.Fatal("no suggestions")
	}
	if got[0].Category != "Food" || got[0].Subcategory != "Dinner" {
		t.Errorf("got[0] = %s/%s, want Food/Dinner at 9 PM", got[0].Category, got[0].Subcategory)
	}
	for _, s := range got {
		if s.Category == "Entertainment" && s.Subcategory == "Outing" {
			t.Error("weekend suggestion on a Tuesday")
		}
	}
}

func TestSuggestionsMorning(t *testing.T) {
	at := time.Date(2026, 3, 10, 7, 30, 0, 0, time.UTC)
	got := Suggestions(at)
	if got[0].Subcategory != "Breakfast" {
		t.Errorf("got[0] = %s, want Breakfast at 7:30 AM", got[0].Subcategory)
	}
}

func TestSuggestionsWeekend(t *testing.T) {
	// Saturday noon
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	got := Suggestions(at)
	found := false
	for _, s := range got {
		if s.Subcategory == "Outing" {
			found = true
		}
	}
	if !found {
		t.Error("Saturday should include weekend suggestions")
	}
}

func TestSuggestionsNoDuplicates(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		at := time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
		seen := map[string]bool{}
		prev := 0
		for _, s := range Suggestions(at) {
			key := s.Category + ":" + s.Subcategory
			if seen[key] {
				t.Errorf("hour %d: duplicate suggestion %s", hour, key)
			}
			seen[key] = true
			if s.Priority < prev {
				t.Errorf("hour %d: suggestions not sorted by priority", hour)
			}
			prev = s.Priority
		}
	}
}

func TestTopSuggestionsLimit(t *testing.T) {
	at := time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC)
	if got := TopSuggestions(at, 3); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}
