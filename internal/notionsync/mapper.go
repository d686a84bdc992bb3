package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/expense-intel/internal/bigquery"
)

// TransactionToNotionProperties converts a BigQuery TransactionRow to Notion properties.
func TransactionToNotionProperties(tx *bigquery.TransactionRow) notionapi.Properties {
	props := notionapi.Properties{
		"Merchant": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: func() string {
							if tx.Merchant != "" {
								return tx.Merchant
							}
							return "Unknown merchant"
						}(),
					},
				},
			},
		},
		"Date": notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&tx.PostedTS),
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: func() float64 {
				if tx.AmountValue != nil {
					f, _ := tx.AmountValue.Float64()
					return f
				}
				return 0
			}(),
		},
		"Transaction ID": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.TransactionID,
					},
				},
			},
		},
	}

	// Source App
	if tx.SourceApp != "" {
		props["Source App"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.SourceApp,
					},
				},
			},
		}
	}

	// Channel
	if tx.Channel != "" {
		props["Channel"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Channel,
			},
		}
	}

	// Category
	if tx.Category.Valid && tx.Category.StringVal != "" {
		props["Category"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Category.StringVal,
			},
		}
	}

	// Correlated App
	if tx.CorrelatedApp.Valid && tx.CorrelatedApp.StringVal != "" {
		props["App"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.CorrelatedApp.StringVal,
			},
		}
	}

	// Confidence
	if tx.Confidence != "" {
		props["Confidence"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Confidence,
			},
		}
	}

	// Insight
	if tx.Insight.Valid && tx.Insight.StringVal != "" {
		props["Insight"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Insight.StringVal,
					},
				},
			},
		}
	}

	// Imported At - use CreatedTS
	props["Imported At"] = notionapi.DateProperty{
		Date: &notionapi.DateObject{
			Start: (*notionapi.Date)(&tx.CreatedTS),
		},
	}

	return props
}

// SubscriptionToNotionProperties converts a BigQuery SubscriptionRow to Notion properties.
func SubscriptionToNotionProperties(sub *bigquery.SubscriptionRow) notionapi.Properties {
	props := notionapi.Properties{
		"Merchant": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: sub.MerchantName,
					},
				},
			},
		},
		"Normalized Name": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: sub.NormalizedName,
					},
				},
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: func() float64 {
				if sub.Amount != nil {
					f, _ := sub.Amount.Float64()
					return f
				}
				return 0
			}(),
		},
		"Frequency": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: sub.Frequency,
			},
		},
		"Confidence": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: sub.Confidence,
			},
		},
		"Times Detected": notionapi.NumberProperty{
			Number: float64(sub.TimesDetected),
		},
		"Active": notionapi.CheckboxProperty{
			Checkbox: sub.IsActive,
		},
	}

	// Next Expected Charge
	if !sub.NextExpectedTS.IsZero() {
		props["Next Expected"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						sub.NextExpectedTS.Year(),
						sub.NextExpectedTS.Month(),
						sub.NextExpectedTS.Day(),
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		}
	}

	// Last Charged
	if !sub.LastChargedTS.IsZero() {
		props["Last Charged"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: (*notionapi.Date)(&sub.LastChargedTS),
			},
		}
	}

	return props
}
