package shopify

import (
	"context"
	"errors"
	"strings"

	"compareat-sync/internal/adapters/shopify/dto"
)

const maxVariantsBatchSize = 250

// VariantPriceInput is one variant's compare-at target. An empty
// CompareAtPrice clears the field on the remote side.
type VariantPriceInput struct {
	ID             string
	CompareAtPrice string
}

// MutationService issues price mutations. Rejections surface as
// ValidationError so callers can record them without aborting a batch.
type MutationService interface {
	UpdateVariantPrices(ctx context.Context, productID string, variants []VariantPriceInput) error
}

// UpdateVariantPrices applies compare-at updates for one product's
// variants in bounded batches.
func (c *Client) UpdateVariantPrices(ctx context.Context, productID string, variants []VariantPriceInput) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("shopify product id is required")
	}
	if len(variants) == 0 {
		return nil
	}

	query := `
mutation productVariantsBulkUpdate($productId: ID!, $variants: [ProductVariantsBulkInput!]!) {
	productVariantsBulkUpdate(productId: $productId, variants: $variants) {
		productVariants { id compareAtPrice }
		userErrors { field message }
	}
}`

	for start := 0; start < len(variants); start += maxVariantsBatchSize {
		end := min(start+maxVariantsBatchSize, len(variants))
		batch := variants[start:end]

		inputs := make([]map[string]any, 0, len(batch))
		for _, variant := range batch {
			variantID := strings.TrimSpace(variant.ID)
			if variantID == "" {
				return errors.New("shopify variant id is required")
			}
			input := map[string]any{"id": variantID}
			if strings.TrimSpace(variant.CompareAtPrice) == "" {
				input["compareAtPrice"] = nil
			} else {
				input["compareAtPrice"] = variant.CompareAtPrice
			}
			inputs = append(inputs, input)
		}

		var data dto.ProductVariantsBulkUpdateData
		err := c.graphql(ctx, costMutation, query, map[string]any{
			"productId": productID,
			"variants":  inputs,
		}, &data)
		if err != nil {
			return err
		}
		if err := userErrorsToError("productVariantsBulkUpdate", data.ProductVariantsBulkUpdate.UserErrors); err != nil {
			return err
		}
	}

	return nil
}
