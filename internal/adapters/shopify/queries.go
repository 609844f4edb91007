package shopify

import (
	"fmt"
	"time"
)

// OrdersBulkQuery builds the bulk export mutation fetching orders created
// on or after since, with each order's line-item product references.
func OrdersBulkQuery(since time.Time) string {
	return fmt.Sprintf(`
mutation {
	bulkOperationRunQuery(
		query: """
		{
			orders(query: "created_at:>=%s") {
				edges {
					node {
						id
						createdAt
						lineItems {
							edges {
								node {
									product { id }
								}
							}
						}
					}
				}
			}
		}
		"""
	) {
		bulkOperation { id status }
		userErrors { field message }
	}
}`, since.UTC().Format("2006-01-02"))
}

// ProductsBulkQuery builds the bulk export mutation fetching every active
// product with its variants' price fields.
func ProductsBulkQuery() string {
	return `
mutation {
	bulkOperationRunQuery(
		query: """
		{
			products(query: "status:active") {
				edges {
					node {
						id
						createdAt
						variants {
							edges {
								node {
									id
									price
									compareAtPrice
								}
							}
						}
					}
				}
			}
		}
		"""
	) {
		bulkOperation { id status }
		userErrors { field message }
	}
}`
}

const currentBulkOperationQuery = `
query {
	currentBulkOperation {
		id
		status
		errorCode
		objectCount
		fileSize
		url
		partialDataUrl
	}
}`
