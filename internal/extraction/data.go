package extraction

import "github.com/shopspring/decimal"

func init() {
	// Receipt amounts are serialized as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ExtractedData contains the structured fields recovered from a receipt.
// Empty or nil fields mean the value could not be determined.
type ExtractedData struct {
	MerchantName string           `json:"merchantName,omitempty"`
	Date         string           `json:"date,omitempty"` // YYYY-MM-DD when parseable
	Total        *decimal.Decimal `json:"total,omitempty"`
	Items        []LineItem       `json:"items,omitempty"`
}

// LineItem is a single purchased item on a receipt. A zero Quantity means
// one, unspecified.
type LineItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity,omitempty"`
}

// ItemsTotal sums price times quantity over all items, rounded to cents.
func ItemsTotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return sum.Round(2)
}
