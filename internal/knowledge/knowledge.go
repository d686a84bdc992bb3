// Package knowledge maps app package identifiers to human-friendly names and
// commerce categories, and decides which identifiers are worth correlating
// against at all.
package knowledge

import "strings"

// AppInfo is what we know about a recognized app.
type AppInfo struct {
	Name     string // e.g. "Zomato"
	Category string // e.g. "Food Delivery"
}

var knownApps = map[string]AppInfo{
	// Food delivery
	"com.application.zomato": {Name: "Zomato", Category: "Food Delivery"},
	"in.swiggy.android":      {Name: "Swiggy", Category: "Food Delivery"},
	"com.done.faasos":        {Name: "EatSure", Category: "Food Delivery"},

	// Transport / ride hailing
	"com.ubercab":               {Name: "Uber", Category: "Transport"},
	"com.olacabs.customer":      {Name: "Ola", Category: "Transport"},
	"com.rapido.passenger":      {Name: "Rapido", Category: "Transport"},
	"in.outerspace.namma_yatri": {Name: "Namma Yatri", Category: "Transport"},

	// Payment apps
	"com.google.android.apps.nbu.paisa.user": {Name: "Google Pay", Category: "Payment App"},
	"com.phonepe.app":                        {Name: "PhonePe", Category: "Payment App"},
	"net.one97.paytm":                        {Name: "Paytm", Category: "Payment App"},

	// Shopping
	"com.amazon.mShop.android.shopping": {Name: "Amazon", Category: "Shopping"},
	"com.flipkart.android":              {Name: "Flipkart", Category: "Shopping"},
	"com.myntra.android":                {Name: "Myntra", Category: "Shopping"},
	"club.cred":                         {Name: "CRED", Category: "Finance"},

	// Entertainment
	"com.google.android.youtube": {Name: "YouTube", Category: "Entertainment"},
	"com.netflix.mediaclient":    {Name: "Netflix", Category: "Entertainment"},
	"in.startv.hotstar":          {Name: "Hotstar", Category: "Entertainment"},

	// Travel
	"com.makemytrip":   {Name: "MakeMyTrip", Category: "Travel"},
	"com.goibibo":      {Name: "Goibibo", Category: "Travel"},
	"com.irctc.vikalp": {Name: "IRCTC", Category: "Travel"},

	// Groceries
	"com.bigbasket.mobileapp": {Name: "BigBasket", Category: "Groceries"},
	"com.zeptoconsumerapp":    {Name: "Zepto", Category: "Groceries"},
	"com.grofers.customerapp": {Name: "Blinkit", Category: "Groceries"},
}

// irrelevantPrefixes covers system UI, launchers, keyboards, dialers and
// similar identifiers that carry no purchase intent.
var irrelevantPrefixes = []string{
	"com.android.systemui",
	"com.android.launcher",
	"com.google.android.apps.nexuslauncher",
	"com.android.settings",
	"com.google.android.inputmethod",
	"com.google.android.permissioncontroller",
	"com.android.vending",
	"com.google.android.gms",
	"com.google.android.deskclock",
	"com.android.dialer",
	"com.google.android.dialer",
	"com.android.camera",
	"com.android.gallery",
	"com.android.contacts",
}

// Lookup returns the known info for an app identifier.
func Lookup(appID string) (AppInfo, bool) {
	info, ok := knownApps[appID]
	return info, ok
}

// IsRelevant reports whether a session for this identifier is worth scoring.
// We don't care that the user had their keyboard or launcher open.
func IsRelevant(appID string) bool {
	for _, prefix := range irrelevantPrefixes {
		if strings.HasPrefix(appID, prefix) {
			return false
		}
	}
	return true
}

// FriendlyName resolves an identifier to a display name, falling back to the
// last dot-delimited segment when the app is unknown.
func FriendlyName(appID string) string {
	if info, ok := knownApps[appID]; ok {
		return info.Name
	}
	if idx := strings.LastIndex(appID, "."); idx >= 0 && idx < len(appID)-1 {
		return appID[idx+1:]
	}
	if appID == "" {
		return "Unknown"
	}
	return appID
}
