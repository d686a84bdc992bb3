package domain

// Confidence is a coarse estimate of how trustworthy an automatic
// category/app attribution is. "learned" means a stored merchant alias was
// applied; "user" means the user picked the category themselves.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceLearned Confidence = "learned"
	ConfidenceUser    Confidence = "user"
)

// CorrelationResult answers "why did this payment happen?" for one payment
// event. Re-running correlation always produces a fresh result; results are
// never mutated in place.
type CorrelationResult struct {
	AppName    string // friendly name, "" for offline purchases
	AppID      string // package identifier, "" for offline purchases
	Category   string
	Confidence Confidence
	Reason     string // human-readable, suitable for display as-is
}
