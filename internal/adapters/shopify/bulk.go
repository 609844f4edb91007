package shopify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"compareat-sync/internal/adapters/shopify/dto"
)

const (
	bulkPollMaxInterval = 60 * time.Second
	bulkPollMultiplier  = 1.5

	downloadRetryMax   = 3
	downloadRetryDelay = 2 * time.Second
)

// BulkJob is the handle of a submitted bulk export.
type BulkJob struct {
	ID string
}

// BulkService is the asynchronous export protocol the orchestrator drives:
// submit a job, await its completion, download the result stream.
type BulkService interface {
	SubmitBulkQuery(ctx context.Context, query string) (BulkJob, error)
	AwaitBulkResult(ctx context.Context, job BulkJob, pollInterval, maxWait time.Duration) (string, error)
	DownloadBulkResult(ctx context.Context, url string) (io.ReadCloser, error)
}

// SubmitBulkQuery starts a bulk export. Shopify allows one bulk job per
// store at a time, so the current operation is checked first; submitting
// over a live job is a ConflictError, never a silent duplicate.
func (c *Client) SubmitBulkQuery(ctx context.Context, query string) (BulkJob, error) {
	current, err := c.currentBulkOperation(ctx)
	if err != nil {
		return BulkJob{}, err
	}
	if current != nil && isLiveBulkStatus(current.Status) {
		return BulkJob{}, &ConflictError{OperationID: current.ID, Status: current.Status}
	}

	var data dto.BulkOperationRunQueryData
	if err := c.graphql(ctx, costBulkSubmit, query, nil, &data); err != nil {
		return BulkJob{}, err
	}

	if errs := data.BulkOperationRunQuery.UserErrors; len(errs) > 0 {
		for _, userErr := range errs {
			if strings.Contains(strings.ToLower(userErr.Message), "already in progress") {
				return BulkJob{}, &ConflictError{}
			}
		}
		return BulkJob{}, userErrorsToError("bulkOperationRunQuery", errs)
	}

	operation := data.BulkOperationRunQuery.BulkOperation
	if operation == nil || strings.TrimSpace(operation.ID) == "" {
		return BulkJob{}, errors.New("shopify bulk submit returned no operation id")
	}

	c.logger.Info().Str("operation", operation.ID).Msg("bulk operation started")
	return BulkJob{ID: strings.TrimSpace(operation.ID)}, nil
}

// AwaitBulkResult polls the job until it completes, backing off between
// polls. It returns the result download URL, which is empty when the export
// matched no records.
func (c *Client) AwaitBulkResult(ctx context.Context, job BulkJob, pollInterval, maxWait time.Duration) (string, error) {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 2 * time.Hour
	}

	deadline := time.Now().Add(maxWait)
	interval := pollInterval

	for {
		operation, err := c.currentBulkOperation(ctx)
		if err != nil {
			return "", err
		}
		if operation == nil {
			return "", errors.New("shopify reports no current bulk operation")
		}

		switch operation.Status {
		case "COMPLETED":
			c.logger.Info().
				Str("operation", operation.ID).
				Str("objects", operation.ObjectCount).
				Msg("bulk operation completed")
			return strings.TrimSpace(operation.URL), nil
		case "FAILED", "CANCELED":
			return "", &RemoteJobError{
				OperationID: operation.ID,
				Status:      operation.Status,
				Code:        operation.ErrorCode,
			}
		case "CREATED", "RUNNING":
			// keep polling
		default:
			return "", &RemoteJobError{
				OperationID: operation.ID,
				Status:      operation.Status,
				Code:        "unexpected status",
			}
		}

		if time.Now().Add(interval).After(deadline) {
			return "", &TimeoutError{OperationID: job.ID, Waited: maxWait}
		}
		if err := sleepWithContext(ctx, interval); err != nil {
			return "", err
		}
		interval = time.Duration(float64(interval) * bulkPollMultiplier)
		if interval > bulkPollMaxInterval {
			interval = bulkPollMaxInterval
		}
	}
}

// DownloadBulkResult opens the result payload for streaming. The URL is a
// pre-signed location and needs no auth header. Transient failures are
// retried a few times before surfacing as a DownloadError.
func (c *Client) DownloadBulkResult(ctx context.Context, url string) (io.ReadCloser, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, &DownloadError{Err: errors.New("empty result url")}
	}

	var lastErr error
	for attempt := 0; attempt < downloadRetryMax; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, downloadRetryDelay); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &DownloadError{URL: url, Err: err}
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			lastErr = newHTTPStatusError(resp.StatusCode, resp.Status, body)
			if !isRetryableHTTPError(lastErr) {
				break
			}
			continue
		}
		return resp.Body, nil
	}
	return nil, &DownloadError{URL: url, Err: lastErr}
}

func (c *Client) currentBulkOperation(ctx context.Context) (*dto.BulkOperationNode, error) {
	var data dto.CurrentBulkOperationData
	if err := c.graphql(ctx, costBulkPoll, currentBulkOperationQuery, nil, &data); err != nil {
		return nil, err
	}
	if data.CurrentBulkOperation == nil || strings.TrimSpace(data.CurrentBulkOperation.ID) == "" {
		return nil, nil
	}
	return data.CurrentBulkOperation, nil
}

func isLiveBulkStatus(status string) bool {
	switch status {
	case "CREATED", "RUNNING":
		return true
	}
	return false
}
