package dto

type GraphQLResponse[T any] struct {
	Data       T              `json:"data"`
	Errors     []GraphQLError `json:"errors,omitempty"`
	Extensions *Extensions    `json:"extensions,omitempty"`
}

type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []any                  `json:"path,omitempty"`
	Extensions map[string]any         `json:"extensions,omitempty"`
	Locations  []GraphQLErrorLocation `json:"locations,omitempty"`
}

type GraphQLErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type ShopifyUserError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
}

// Extensions carries the cost accounting Shopify attaches to every
// GraphQL response.
type Extensions struct {
	Cost *QueryCost `json:"cost,omitempty"`
}

type QueryCost struct {
	RequestedQueryCost int             `json:"requestedQueryCost,omitempty"`
	ActualQueryCost    int             `json:"actualQueryCost,omitempty"`
	ThrottleStatus     *ThrottleStatus `json:"throttleStatus,omitempty"`
}

type ThrottleStatus struct {
	MaximumAvailable   float64 `json:"maximumAvailable,omitempty"`
	CurrentlyAvailable float64 `json:"currentlyAvailable,omitempty"`
	RestoreRate        float64 `json:"restoreRate,omitempty"`
}
