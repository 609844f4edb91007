// Package pricing decides the target compare-at price for a variant. It is
// a pure function of the run's reference time, the product's age, the sales
// recency signal and the variant's current prices; it performs no I/O.
package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// SalesLookbackDays is the sold-recently window.
	SalesLookbackDays = 60
	// NewProductDays is the new-product window.
	NewProductDays = 30
)

var priceMultiplier = decimal.NewFromInt(2)

// Boundary policy: "within N days" is inclusive. An event that happened
// exactly N days before the reference time still counts, for both windows.

// Rule names the condition that produced a decision.
type Rule string

const (
	RuleRecentlySold Rule = "recently_sold"
	RuleNewProduct   Rule = "new_product"
	RuleClear        Rule = "clear"
)

// Variant is the remote state a decision is made against. Prices are the
// API's decimal strings; an empty CompareAtPrice means the field is unset.
type Variant struct {
	ID             string
	Price          string
	CompareAtPrice string
}

// Decision is the outcome for one variant. An empty Target means the
// compare-at field should be cleared. NoOp marks decisions whose target
// already matches the remote state, so no mutation is needed.
type Decision struct {
	ProductID string
	VariantID string
	Target    string
	Rule      Rule
	NoOp      bool
}

// SalesCutoff returns the inclusive lower bound of the sold-recently window.
func SalesCutoff(now time.Time) time.Time {
	return now.Add(-SalesLookbackDays * 24 * time.Hour)
}

// NewProductCutoff returns the inclusive lower bound of the new-product window.
func NewProductCutoff(now time.Time) time.Time {
	return now.Add(-NewProductDays * 24 * time.Hour)
}

// Evaluate decides the compare-at target for a single variant.
//
// Sold within the last 60 days wins over the age rule; both double the
// price. Anything else clears the compare-at value. A missing or
// non-positive price also clears: there is nothing meaningful to double.
func Evaluate(now time.Time, productID string, createdAt time.Time, soldRecently bool, variant Variant) Decision {
	decision := Decision{
		ProductID: productID,
		VariantID: variant.ID,
		Rule:      RuleClear,
	}

	isNew := !createdAt.Before(NewProductCutoff(now))

	switch {
	case soldRecently:
		decision.Rule = RuleRecentlySold
	case isNew:
		decision.Rule = RuleNewProduct
	}

	if decision.Rule != RuleClear {
		if target, ok := doublePrice(variant.Price); ok {
			decision.Target = target
		} else {
			decision.Rule = RuleClear
		}
	}

	decision.NoOp = normalizePrice(variant.CompareAtPrice) == normalizePrice(decision.Target)
	return decision
}

func doublePrice(price string) (string, bool) {
	value, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil || value.Sign() <= 0 {
		return "", false
	}
	return value.Mul(priceMultiplier).StringFixed(2), true
}

// normalizePrice renders a price string at two decimal places so that
// "47.98", "47.980" and "47.98000" compare equal. Unparsable values are
// compared verbatim.
func normalizePrice(price string) string {
	price = strings.TrimSpace(price)
	if price == "" {
		return ""
	}
	value, err := decimal.NewFromString(price)
	if err != nil {
		return price
	}
	return value.StringFixed(2)
}
