package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"compareat-sync/internal/adapters/shopify/dto"
	"compareat-sync/internal/config"
)

// Declared point costs for the calls this client issues. Shopify accounts
// the real cost per query; these are conservative estimates consumed from
// the local budget before each call goes out.
const (
	costBulkSubmit = 10
	costBulkPoll   = 1
	costMutation   = 10

	lowBudgetThreshold = 100
)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// StoreAuth identifies one store's API connection.
type StoreAuth struct {
	ShopDomain  string
	AccessToken string
}

type Client struct {
	config     config.ShopifyConfig
	auth       StoreAuth
	httpClient *http.Client
	logger     zerolog.Logger

	// limiter is the store's cost budget. All calls from one run drain
	// the same bucket; refill matches the API's restore rate.
	limiter *rate.Limiter
}

func NewClient(cfg config.ShopifyConfig, auth StoreAuth, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	bucket := cfg.RateLimitBucket
	if bucket <= 0 {
		bucket = 1000
	}
	refill := cfg.RateLimitRefill
	if refill <= 0 {
		refill = 50
	}
	return &Client{
		config:     cfg,
		auth:       auth,
		httpClient: httpClient,
		logger:     logger.With().Str("shop", auth.ShopDomain).Logger(),
		limiter:    rate.NewLimiter(rate.Limit(refill), bucket),
	}
}

func (c *Client) endpoint() (string, error) {
	domain := strings.TrimSpace(c.auth.ShopDomain)
	if domain == "" {
		return "", errors.New("shopify shop domain is empty")
	}
	if !strings.HasPrefix(domain, "http://") && !strings.HasPrefix(domain, "https://") {
		domain = "https://" + domain
	}
	domain = strings.TrimRight(domain, "/")
	if c.config.APIVersion == "" {
		return "", errors.New("shopify api version is empty")
	}
	return domain + "/admin/api/" + c.config.APIVersion + "/graphql.json", nil
}

func (c *Client) shopifyAPIRequest(ctx context.Context, method string, endpoint string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.auth.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(resp.StatusCode, resp.Status, respBody)
	}

	return respBody, nil
}

// graphql executes one query or mutation, consuming cost points from the
// budget first and retrying throttle and transient transport failures with
// exponential backoff.
func (c *Client) graphql(ctx context.Context, cost int, query string, variables map[string]any, out any) error {
	endpoint, err := c.endpoint()
	if err != nil {
		return err
	}

	if cost < 1 {
		cost = 1
	}
	if err := c.limiter.WaitN(ctx, cost); err != nil {
		return fmt.Errorf("shopify rate budget: %w", err)
	}

	payload := graphQLRequest{
		Query:     strings.TrimSpace(query),
		Variables: variables,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < graphqlRetryMax; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, retryDelay(attempt-1)); err != nil {
				return err
			}
		}

		raw, err := c.shopifyAPIRequest(ctx, http.MethodPost, endpoint, bodyBytes)
		if err != nil {
			if isRetryableHTTPError(err) {
				lastErr = err
				continue
			}
			return err
		}

		var resp dto.GraphQLResponse[json.RawMessage]
		if err := json.Unmarshal(raw, &resp); err != nil {
			return err
		}
		c.observeCost(resp.Extensions)

		if len(resp.Errors) > 0 {
			if isThrottleGraphQLError(resp.Errors) {
				lastErr = fmt.Errorf("shopify graphql throttled: %s", formatGraphQLErrors(resp.Errors))
				continue
			}
			return fmt.Errorf("shopify graphql errors: %s", formatGraphQLErrors(resp.Errors))
		}
		if out == nil {
			return nil
		}
		if len(resp.Data) == 0 {
			return errors.New("shopify graphql response missing data")
		}
		return json.Unmarshal(resp.Data, out)
	}

	if lastErr == nil {
		lastErr = errors.New("shopify graphql retries exhausted")
	}
	return lastErr
}

// observeCost aligns the local budget with the server's throttle status and
// warns when the remaining points run low.
func (c *Client) observeCost(ext *dto.Extensions) {
	if ext == nil || ext.Cost == nil || ext.Cost.ThrottleStatus == nil {
		return
	}
	status := ext.Cost.ThrottleStatus
	if status.RestoreRate > 0 {
		c.limiter.SetLimit(rate.Limit(status.RestoreRate))
	}
	if status.CurrentlyAvailable > 0 && status.CurrentlyAvailable < lowBudgetThreshold {
		c.logger.Warn().
			Float64("available", status.CurrentlyAvailable).
			Msg("low rate limit budget")
	}
}

func formatGraphQLErrors(errs []dto.GraphQLError) string {
	messages := make([]string, 0, len(errs))
	for _, graphErr := range errs {
		message := strings.TrimSpace(graphErr.Message)
		if message == "" {
			continue
		}
		messages = append(messages, message)
	}
	if len(messages) == 0 {
		return "unknown error"
	}
	return strings.Join(messages, "; ")
}
