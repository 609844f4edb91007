package dto

// BulkOperationNode mirrors the fields of a Shopify bulkOperation object.
// Unknown fields in the response are ignored.
type BulkOperationNode struct {
	ID             string `json:"id,omitempty"`
	Status         string `json:"status,omitempty"`
	ErrorCode      string `json:"errorCode,omitempty"`
	ObjectCount    string `json:"objectCount,omitempty"`
	FileSize       string `json:"fileSize,omitempty"`
	URL            string `json:"url,omitempty"`
	PartialDataURL string `json:"partialDataUrl,omitempty"`
}

type BulkOperationRunQueryData struct {
	BulkOperationRunQuery struct {
		BulkOperation *BulkOperationNode `json:"bulkOperation,omitempty"`
		UserErrors    []ShopifyUserError `json:"userErrors,omitempty"`
	} `json:"bulkOperationRunQuery"`
}

type CurrentBulkOperationData struct {
	CurrentBulkOperation *BulkOperationNode `json:"currentBulkOperation,omitempty"`
}

type ProductVariantsBulkUpdateData struct {
	ProductVariantsBulkUpdate struct {
		ProductVariants []struct {
			ID             string `json:"id,omitempty"`
			CompareAtPrice string `json:"compareAtPrice,omitempty"`
		} `json:"productVariants,omitempty"`
		UserErrors []ShopifyUserError `json:"userErrors,omitempty"`
	} `json:"productVariantsBulkUpdate"`
}
