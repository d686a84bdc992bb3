package pipeline

// paymentVerbs are the phrases that mark a notification as describing money
// actually leaving the account. A notification with an amount but none of
// these is "uncertain" and goes through model verification instead.
var paymentVerbs = []string{
	"paid",
	"sent",
	"debited",
	"transferred",
	"payment successful",
	"payment of",
	"transaction",
	"txn",
	"withdrawn",
	"charged",
	"deducted",
	"money sent",
}

// promoMarkers are phrases that almost always mean an offer or cashback
// message rather than a payment.
var promoMarkers = []string{
	"cashback",
	"offer",
	"discount",
	"% off",
	"earn",
	"win",
	"reward",
	"credited",
	"received",
}
