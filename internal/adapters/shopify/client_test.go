package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"compareat-sync/internal/config"
)

// graphqlStub scripts responses per query shape: requests containing a
// key get the next queued body for that key.
type graphqlStub struct {
	mu        sync.Mutex
	responses map[string][]string
	requests  []string
}

func (s *graphqlStub) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad request body: %v", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.requests = append(s.requests, payload.Query)

		for key, queue := range s.responses {
			if !strings.Contains(payload.Query, key) || len(queue) == 0 {
				continue
			}
			s.responses[key] = queue[1:]
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, queue[0])
			return
		}
		t.Errorf("no scripted response for query: %s", payload.Query)
		http.Error(w, "no scripted response", http.StatusInternalServerError)
	}
}

func newTestClient(serverURL string) *Client {
	cfg := config.ShopifyConfig{
		APIVersion:      "2025-01",
		Timeout:         5 * time.Second,
		RateLimitBucket: 100000,
		RateLimitRefill: 100000,
	}
	auth := StoreAuth{ShopDomain: serverURL, AccessToken: "shpat_test"}
	return NewClient(cfg, auth, nil, zerolog.Nop())
}

func currentOpResponse(id, status, url string) string {
	node := map[string]any{"id": id, "status": status}
	if url != "" {
		node["url"] = url
	}
	body, _ := json.Marshal(map[string]any{
		"data": map[string]any{"currentBulkOperation": node},
	})
	return string(body)
}

const noCurrentOpResponse = `{"data":{"currentBulkOperation":null}}`

func TestSubmitBulkQueryConflictsWithLiveOperation(t *testing.T) {
	stub := &graphqlStub{responses: map[string][]string{
		"currentBulkOperation": {currentOpResponse("gid://shopify/BulkOperation/1", "RUNNING", "")},
	}}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SubmitBulkQuery(context.Background(), OrdersBulkQuery(time.Now()))
	if !IsConflict(err) {
		t.Fatalf("want ConflictError, got %v", err)
	}
}

func TestSubmitBulkQueryReturnsJobHandle(t *testing.T) {
	stub := &graphqlStub{responses: map[string][]string{
		"currentBulkOperation": {noCurrentOpResponse},
		"bulkOperationRunQuery": {
			`{"data":{"bulkOperationRunQuery":{"bulkOperation":{"id":"gid://shopify/BulkOperation/7","status":"CREATED"},"userErrors":[]}}}`,
		},
	}}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	job, err := client.SubmitBulkQuery(context.Background(), ProductsBulkQuery())
	if err != nil {
		t.Fatalf("SubmitBulkQuery: %v", err)
	}
	if job.ID != "gid://shopify/BulkOperation/7" {
		t.Errorf("job id = %q", job.ID)
	}
}

func TestAwaitBulkResultPollsUntilCompleted(t *testing.T) {
	stub := &graphqlStub{responses: map[string][]string{
		"currentBulkOperation": {
			currentOpResponse("op1", "RUNNING", ""),
			currentOpResponse("op1", "RUNNING", ""),
			currentOpResponse("op1", "COMPLETED", "https://example.com/result.jsonl"),
		},
	}}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	url, err := client.AwaitBulkResult(context.Background(), BulkJob{ID: "op1"}, time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("AwaitBulkResult: %v", err)
	}
	if url != "https://example.com/result.jsonl" {
		t.Errorf("url = %q", url)
	}
}

func TestAwaitBulkResultFailedJob(t *testing.T) {
	stub := &graphqlStub{responses: map[string][]string{
		"currentBulkOperation": {
			`{"data":{"currentBulkOperation":{"id":"op1","status":"FAILED","errorCode":"ACCESS_DENIED"}}}`,
		},
	}}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.AwaitBulkResult(context.Background(), BulkJob{ID: "op1"}, time.Millisecond, time.Second)

	var jobErr *RemoteJobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("want RemoteJobError, got %v", err)
	}
	if jobErr.Code != "ACCESS_DENIED" {
		t.Errorf("code = %q", jobErr.Code)
	}
}

func TestAwaitBulkResultTimesOut(t *testing.T) {
	stub := &graphqlStub{responses: map[string][]string{
		"currentBulkOperation": {
			currentOpResponse("op1", "RUNNING", ""),
			currentOpResponse("op1", "RUNNING", ""),
			currentOpResponse("op1", "RUNNING", ""),
			currentOpResponse("op1", "RUNNING", ""),
			currentOpResponse("op1", "RUNNING", ""),
		},
	}}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.AwaitBulkResult(context.Background(), BulkJob{ID: "op1"}, 5*time.Millisecond, 12*time.Millisecond)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("want TimeoutError, got %v", err)
	}
}

func TestDownloadBulkResultStreams(t *testing.T) {
	payload := `{"id":"gid://shopify/Order/1","createdAt":"2025-06-01T10:00:00Z"}`
	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	defer fileServer.Close()

	client := newTestClient(fileServer.URL)
	body, err := client.DownloadBulkResult(context.Background(), fileServer.URL+"/result.jsonl")
	if err != nil {
		t.Fatalf("DownloadBulkResult: %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != payload {
		t.Errorf("payload = %q", string(data))
	}
}

func TestDownloadBulkResultNotFound(t *testing.T) {
	fileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer fileServer.Close()

	client := newTestClient(fileServer.URL)
	_, err := client.DownloadBulkResult(context.Background(), fileServer.URL+"/gone.jsonl")

	var downloadErr *DownloadError
	if !errors.As(err, &downloadErr) {
		t.Fatalf("want DownloadError, got %v", err)
	}
}

func TestUpdateVariantPricesValidationError(t *testing.T) {
	stub := &graphqlStub{responses: map[string][]string{
		"productVariantsBulkUpdate": {
			`{"data":{"productVariantsBulkUpdate":{"productVariants":[],"userErrors":[{"field":["variants","0","compareAtPrice"],"message":"must be greater than price"}]}}}`,
		},
	}}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.UpdateVariantPrices(context.Background(), "gid://shopify/Product/1", []VariantPriceInput{
		{ID: "gid://shopify/ProductVariant/1", CompareAtPrice: "1.00"},
	})

	validation, ok := IsValidation(err)
	if !ok {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(validation.Errors) != 1 {
		t.Fatalf("got %d field errors, want 1", len(validation.Errors))
	}
	if validation.Errors[0].Field != "variants.0.compareAtPrice" {
		t.Errorf("field = %q", validation.Errors[0].Field)
	}
}

func TestGraphqlRetriesThrottle(t *testing.T) {
	stub := &graphqlStub{responses: map[string][]string{
		"productVariantsBulkUpdate": {
			`{"errors":[{"message":"Throttled","extensions":{"code":"THROTTLED"}}]}`,
			`{"data":{"productVariantsBulkUpdate":{"productVariants":[{"id":"gid://shopify/ProductVariant/1"}],"userErrors":[]}}}`,
		},
	}}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.UpdateVariantPrices(context.Background(), "gid://shopify/Product/1", []VariantPriceInput{
		{ID: "gid://shopify/ProductVariant/1", CompareAtPrice: "47.98"},
	})
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	if len(stub.requests) != 2 {
		t.Errorf("got %d requests, want 2", len(stub.requests))
	}
}
