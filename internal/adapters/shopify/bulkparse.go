package shopify

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// Bulk export results arrive as JSONL with parent and child records
// interleaved in no guaranteed order. Children point at their parent via
// __parentId, so both parsers join through a buffer keyed on that field
// instead of assuming parent-before-child.

const (
	orderGIDPrefix   = "gid://shopify/Order/"
	productGIDPrefix = "gid://shopify/Product/"
	variantGIDPrefix = "gid://shopify/ProductVariant/"

	maxBulkLineSize = 4 * 1024 * 1024
)

type ParsedOrder struct {
	OrderID    string
	CreatedAt  time.Time
	ProductIDs []string
}

type ParsedVariant struct {
	ID             string
	Price          string
	CompareAtPrice string
}

type ParsedProduct struct {
	ProductID string
	CreatedAt time.Time
	Variants  []ParsedVariant
}

type bulkRecord struct {
	ID             string `json:"id"`
	ParentID       string `json:"__parentId"`
	CreatedAt      string `json:"createdAt"`
	Price          string `json:"price"`
	CompareAtPrice string `json:"compareAtPrice"`
	Product        *struct {
		ID string `json:"id"`
	} `json:"product"`
}

// ParseOrders reconstructs orders and their line-item product references
// from a bulk result stream. Line items whose order never appears, or
// which reference no product, are skipped. The stream is consumed in a
// single pass and cannot be replayed.
func ParseOrders(r io.Reader) ([]ParsedOrder, error) {
	orders := make(map[string]*ParsedOrder)
	seen := make(map[string]map[string]struct{})
	pending := make(map[string][]string)
	var orderIDs []string

	err := scanBulkRecords(r, func(record bulkRecord) {
		switch {
		case strings.HasPrefix(record.ID, orderGIDPrefix):
			if _, ok := orders[record.ID]; ok {
				return
			}
			order := &ParsedOrder{
				OrderID:   record.ID,
				CreatedAt: parseBulkTime(record.CreatedAt),
			}
			orders[record.ID] = order
			seen[record.ID] = make(map[string]struct{})
			orderIDs = append(orderIDs, record.ID)
			for _, productID := range pending[record.ID] {
				attachOrderProduct(order, seen[record.ID], productID)
			}
			delete(pending, record.ID)

		case record.Product != nil && record.ParentID != "":
			productID := strings.TrimSpace(record.Product.ID)
			if productID == "" {
				return
			}
			if order, ok := orders[record.ParentID]; ok {
				attachOrderProduct(order, seen[record.ParentID], productID)
			} else {
				pending[record.ParentID] = append(pending[record.ParentID], productID)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	result := make([]ParsedOrder, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *orders[id])
	}
	return result, nil
}

// ParseProducts reconstructs products and their variants from a bulk
// result stream, with the same unordered parent/child tolerance as
// ParseOrders.
func ParseProducts(r io.Reader) ([]ParsedProduct, error) {
	products := make(map[string]*ParsedProduct)
	pending := make(map[string][]ParsedVariant)
	var productIDs []string

	err := scanBulkRecords(r, func(record bulkRecord) {
		switch {
		case strings.HasPrefix(record.ID, productGIDPrefix):
			if _, ok := products[record.ID]; ok {
				return
			}
			product := &ParsedProduct{
				ProductID: record.ID,
				CreatedAt: parseBulkTime(record.CreatedAt),
			}
			product.Variants = append(product.Variants, pending[record.ID]...)
			delete(pending, record.ID)
			products[record.ID] = product
			productIDs = append(productIDs, record.ID)

		case strings.HasPrefix(record.ID, variantGIDPrefix) && record.ParentID != "":
			variant := ParsedVariant{
				ID:             record.ID,
				Price:          record.Price,
				CompareAtPrice: record.CompareAtPrice,
			}
			if product, ok := products[record.ParentID]; ok {
				product.Variants = append(product.Variants, variant)
			} else {
				pending[record.ParentID] = append(pending[record.ParentID], variant)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	result := make([]ParsedProduct, 0, len(productIDs))
	for _, id := range productIDs {
		result = append(result, *products[id])
	}
	return result, nil
}

func attachOrderProduct(order *ParsedOrder, seen map[string]struct{}, productID string) {
	// A product can appear on several line items of the same order.
	if _, ok := seen[productID]; ok {
		return
	}
	seen[productID] = struct{}{}
	order.ProductIDs = append(order.ProductIDs, productID)
}

func scanBulkRecords(r io.Reader, handle func(bulkRecord)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBulkLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var record bulkRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			// malformed line, skip
			continue
		}
		handle(record)
	}
	return scanner.Err()
}

func parseBulkTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(value))
	if err != nil {
		return time.Now().UTC()
	}
	return parsed.UTC()
}
