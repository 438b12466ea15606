package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"datalens/domain/core"
	"datalens/internal/config"
	"datalens/ports"
)

// HTTPClient submits pre-analysis jobs to a remote service over HTTP. The
// remote service calls back into our API when it finishes, which lands the
// result on the version record; Poll reads that record until non-empty.
type HTTPClient struct {
	endpoint     string
	retryCount   int
	retryDelay   time.Duration
	pollInterval time.Duration
	pollTimeout  time.Duration

	httpClient *http.Client
	versions   ports.VersionRepository
}

// NewHTTPClient creates an analysis client from config
func NewHTTPClient(cfg config.AnalysisConfig, versions ports.VersionRepository) *HTTPClient {
	return &HTTPClient{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		retryCount:   cfg.RetryCount,
		retryDelay:   cfg.RetryDelay,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		versions:     versions,
	}
}

var _ ports.AnalysisClient = (*HTTPClient)(nil)

// Submit posts the analysis configuration to the remote service. Transient
// failures are retried a fixed number of times with a fixed delay.
func (c *HTTPClient) Submit(ctx context.Context, req ports.AnalysisRequest) error {
	if c.endpoint == "" {
		return fmt.Errorf("analysis endpoint not configured: %w", core.ErrAnalysisPending)
	}

	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal analysis request: %w", err)
	}

	var lastErr error
	attempts := c.retryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			log.Printf("[Analysis] Retrying submit for version %s (attempt %d/%d)", req.VersionID, attempt+1, attempts)
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.post(ctx, raw)
		if lastErr == nil {
			log.Printf("[Analysis] Submitted version %s for pre-analysis", req.VersionID)
			return nil
		}
	}

	return fmt.Errorf("analysis submit failed after %d attempts: %w", attempts, lastErr)
}

func (c *HTTPClient) post(ctx context.Context, raw []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/analyze", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("analysis http %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Poll reads the version record on a fixed interval until the analysis
// result lands, the poll timeout elapses, or ctx is done.
func (c *HTTPClient) Poll(ctx context.Context, versionID core.VersionID) (string, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// Check once before the first tick so an already-landed result
	// returns immediately.
	if result, err := c.versions.GetAnalysisResult(pollCtx, versionID); err != nil {
		return "", err
	} else if result != "" {
		return result, nil
	}

	for {
		select {
		case <-ticker.C:
			result, err := c.versions.GetAnalysisResult(pollCtx, versionID)
			if err != nil {
				return "", err
			}
			if result != "" {
				return result, nil
			}
		case <-pollCtx.Done():
			if pollCtx.Err() == context.DeadlineExceeded {
				return "", fmt.Errorf("poll timed out for version %s: %w", versionID, core.ErrAnalysisPending)
			}
			return "", pollCtx.Err()
		}
	}
}
