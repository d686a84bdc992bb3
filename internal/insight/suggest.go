package insight

import (
	"sort"
	"time"
)

// CategorySuggestion is a category/subcategory pair offered when the user
// tags a payment by hand. Lower priority shows first.
type CategorySuggestion struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Emoji       string `json:"emoji"`
	Priority    int    `json:"priority"`
}

// Suggestions returns categories ordered by how likely they are at the
// given local time. At 9 PM dinner comes first, in the morning breakfast
// and commute do. Weekends add outing and shopping entries.
func Suggestions(at time.Time) []CategorySuggestion {
	hour := at.Hour()
	weekend := at.Weekday() == time.Saturday || at.Weekday() == time.Sunday

	var timeBased []CategorySuggestion
	switch {
	case hour >= 6 && hour <= 9:
		timeBased = []CategorySuggestion{
			{"Food", "Breakfast", "🍳", 1},
			{"Food", "Chai/Coffee", "☕", 2},
			{"Transport", "Commute", "🚇", 3},
		}
	case hour >= 10 && hour <= 11:
		timeBased = []CategorySuggestion{
			{"Food", "Snacks", "🥪", 1},
			{"Food", "Chai/Coffee", "☕", 2},
			{"Shopping", "General", "🛍️", 3},
		}
	case hour >= 12 && hour <= 14:
		timeBased = []CategorySuggestion{
			{"Food", "Lunch", "🍛", 1},
			{"Food", "Restaurant", "🍽️", 2},
			{"Food", "Chai/Coffee", "☕", 3},
		}
	case hour >= 15 && hour <= 17:
		timeBased = []CategorySuggestion{
			{"Food", "Snacks", "🍿", 1},
			{"Food", "Chai/Coffee", "☕", 2},
			{"Shopping", "General", "🛍️", 3},
		}
	case hour >= 18 && hour <= 21:
		timeBased = []CategorySuggestion{
			{"Food", "Dinner", "🍕", 1},
			{"Food", "Street Food", "🌮", 2},
			{"Entertainment", "Movies", "🎬", 3},
			{"Transport", "Auto/Cab", "🚕", 4},
		}
	case hour >= 22:
		timeBased = []CategorySuggestion{
			{"Food", "Late Night Snack", "🌙", 1},
			{"Transport", "Auto/Cab", "🚕", 2},
			{"Food", "Street Food", "🌮", 3},
		}
	case hour <= 1:
		timeBased = []CategorySuggestion{
			{"Food", "Late Night Snack", "🌙", 1},
			{"Transport", "Auto/Cab", "🚕", 2},
		}
	default:
		timeBased = []CategorySuggestion{
			{"Food", "General", "🍔", 1},
		}
	}

	var weekendBonus []CategorySuggestion
	if weekend {
		weekendBonus = []CategorySuggestion{
			{"Entertainment", "Outing", "🎢", 5},
			{"Shopping", "Weekend Shopping", "🛒", 6},
		}
	}

	common := []CategorySuggestion{
		{"Food", "General", "🍔", 10},
		{"Transport", "Auto", "🛺", 11},
		{"Shopping", "General", "🛍️", 12},
		{"Personal", "Transfer to Friend", "👤", 13},
		{"Bills", "Recharge", "📱", 14},
		{"Health", "Medicine", "💊", 15},
		{"Groceries", "General", "🥬", 16},
		{"Entertainment", "General", "🎮", 17},
		{"Other", "Miscellaneous", "📦", 20},
	}

	seen := map[string]bool{}
	var out []CategorySuggestion
	for _, s := range append(append(timeBased, weekendBonus...), common...) {
		key := s.Category + ":" + s.Subcategory
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// TopSuggestions trims Suggestions to a compact list.
func TopSuggestions(at time.Time, limit int) []CategorySuggestion {
	all := Suggestions(at)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
