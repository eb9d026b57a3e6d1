package paymob

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one product entry as the storefront sends it. Price is in major units.
type LineItem struct {
	Title    string      `json:"title"`
	Price    json.Number `json:"price"`
	Quantity int64       `json:"quantity"`
}

// Item is the gateway's order item shape.
type Item struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Quantity    int64  `json:"quantity"`
}

// TranslateItems maps storefront line items to gateway items and returns the
// order total in cents (sum of unit cents times quantity).
func TranslateItems(items []LineItem) ([]Item, int64, error) {
	if len(items) == 0 {
		return nil, 0, &ValidationError{Field: "items", Message: "must contain at least one item"}
	}
	out := make([]Item, 0, len(items))
	total := decimal.Zero
	for i, li := range items {
		field := fmt.Sprintf("items[%d]", i)
		title := strings.TrimSpace(li.Title)
		if title == "" {
			return nil, 0, &ValidationError{Field: field + ".title", Message: "is required"}
		}
		if li.Quantity < 1 {
			return nil, 0, &ValidationError{Field: field + ".quantity", Message: "must be at least 1"}
		}
		cents, err := ParseCents(li.Price, field+".price")
		if err != nil {
			return nil, 0, err
		}
		var ok bool
		if total, ok = lineTotal(total, cents, li.Quantity); !ok {
			return nil, 0, &ValidationError{Field: "items", Message: "total is too large"}
		}
		out = append(out, Item{Name: title, AmountCents: cents, Quantity: li.Quantity})
	}
	return out, total.IntPart(), nil
}

// OrderID accepts the gateway order id as either a JSON number or a numeric string.
type OrderID int64

func (id *OrderID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return &ValidationError{Field: "orderId", Message: "must be an integer"}
	}
	*id = OrderID(v)
	return nil
}
