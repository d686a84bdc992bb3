package domain

import "time"

// Frequency is the detected billing period of a recurring charge.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Subscription is a stored recurring-merchant record, upserted by normalized
// name whenever detection runs.
type Subscription struct {
	MerchantName   string
	NormalizedName string // unique key
	Amount         float64
	Frequency      Frequency
	Confidence     Confidence
	LastChargedAt  time.Time
	NextExpectedAt time.Time
	TimesDetected  int
	IsActive       bool
}

// MerchantAlias is a learned mapping from a merchant name to a category the
// user chose once. The pipeline consults it before correlation so a known
// merchant short-circuits scoring entirely.
type MerchantAlias struct {
	MerchantName   string
	NormalizedName string // unique key
	Category       string
	Subcategory    string
	UserNote       string
	TimesUsed      int
	LastUsedAt     time.Time
}
