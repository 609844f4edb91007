package shopify

import (
	"strings"
	"testing"
	"time"
)

func TestParseOrdersJoinsLineItemsToOrders(t *testing.T) {
	payload := strings.Join([]string{
		`{"id":"gid://shopify/Order/1","createdAt":"2025-06-01T10:00:00Z"}`,
		`{"product":{"id":"gid://shopify/Product/10"},"__parentId":"gid://shopify/Order/1"}`,
		`{"product":{"id":"gid://shopify/Product/11"},"__parentId":"gid://shopify/Order/1"}`,
		`{"id":"gid://shopify/Order/2","createdAt":"2025-06-02T10:00:00Z"}`,
		`{"product":{"id":"gid://shopify/Product/10"},"__parentId":"gid://shopify/Order/2"}`,
	}, "\n")

	orders, err := ParseOrders(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ParseOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if got := orders[0].ProductIDs; len(got) != 2 {
		t.Errorf("order 1 products = %v, want 2 entries", got)
	}
	want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	if !orders[0].CreatedAt.Equal(want) {
		t.Errorf("order 1 createdAt = %v, want %v", orders[0].CreatedAt, want)
	}
}

func TestParseOrdersToleratesChildBeforeParent(t *testing.T) {
	payload := strings.Join([]string{
		`{"product":{"id":"gid://shopify/Product/10"},"__parentId":"gid://shopify/Order/1"}`,
		`{"product":{"id":"gid://shopify/Product/11"},"__parentId":"gid://shopify/Order/1"}`,
		`{"id":"gid://shopify/Order/1","createdAt":"2025-06-01T10:00:00Z"}`,
	}, "\n")

	orders, err := ParseOrders(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ParseOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	if got := orders[0].ProductIDs; len(got) != 2 {
		t.Errorf("products = %v, want both line items attributed", got)
	}
}

func TestParseOrdersSkipsOrphansAndDuplicates(t *testing.T) {
	payload := strings.Join([]string{
		`{"id":"gid://shopify/Order/1","createdAt":"2025-06-01T10:00:00Z"}`,
		`{"product":{"id":"gid://shopify/Product/10"},"__parentId":"gid://shopify/Order/1"}`,
		`{"product":{"id":"gid://shopify/Product/10"},"__parentId":"gid://shopify/Order/1"}`,
		`{"product":{"id":"gid://shopify/Product/99"},"__parentId":"gid://shopify/Order/404"}`,
		`{"__parentId":"gid://shopify/Order/1"}`,
		`not json at all`,
	}, "\n")

	orders, err := ParseOrders(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ParseOrders: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	if got := orders[0].ProductIDs; len(got) != 1 || got[0] != "gid://shopify/Product/10" {
		t.Errorf("products = %v, want deduplicated single reference", got)
	}
}

func TestParseProducts(t *testing.T) {
	payload := strings.Join([]string{
		`{"id":"gid://shopify/ProductVariant/100","price":"23.99","compareAtPrice":"47.98","__parentId":"gid://shopify/Product/1"}`,
		`{"id":"gid://shopify/Product/1","createdAt":"2025-05-01T00:00:00Z"}`,
		`{"id":"gid://shopify/ProductVariant/101","price":"9.99","__parentId":"gid://shopify/Product/1"}`,
		`{"id":"gid://shopify/Product/2","createdAt":"2025-06-10T00:00:00Z"}`,
	}, "\n")

	products, err := ParseProducts(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("ParseProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}

	first := products[0]
	if first.ProductID != "gid://shopify/Product/1" {
		t.Fatalf("first product = %s", first.ProductID)
	}
	if len(first.Variants) != 2 {
		t.Fatalf("got %d variants, want 2", len(first.Variants))
	}
	if first.Variants[0].Price != "23.99" || first.Variants[0].CompareAtPrice != "47.98" {
		t.Errorf("variant prices not carried through: %+v", first.Variants[0])
	}
	if first.Variants[1].CompareAtPrice != "" {
		t.Errorf("absent compareAtPrice should stay empty, got %q", first.Variants[1].CompareAtPrice)
	}

	if len(products[1].Variants) != 0 {
		t.Errorf("product 2 should have no variants, got %d", len(products[1].Variants))
	}
}
