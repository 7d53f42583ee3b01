package supplier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voltdrop/internal/logger"
)

const maxErrorBodyBytes = 2048

// RequestError 供应商接口返回非 2xx
type RequestError struct {
	Supplier   Kind
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Supplier, e.StatusCode, e.Body)
}

// IsNotFound 供应商侧订单不存在
func (e *RequestError) IsNotFound() bool {
	return e != nil && e.StatusCode == http.StatusNotFound
}

// restClient 供应商 JSON REST 客户端
type restClient struct {
	kind       Kind
	baseURL    string
	httpClient *http.Client
	authorize  func(req *http.Request)
}

func newRESTClient(kind Kind, baseURL string, timeout time.Duration, authorize func(req *http.Request)) *restClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &restClient{
		kind:       kind,
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		authorize:  authorize,
	}
}

func (c *restClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("%s client not configured: base url required", c.kind)
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request failed: %w", c.kind, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authorize != nil {
		c.authorize(req)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warnw("supplier_request_failed",
			"supplier", c.kind,
			"method", method,
			"path", path,
			"error", err,
		)
		return err
	}
	defer resp.Body.Close()

	logger.Debugw("supplier_request_done",
		"supplier", c.kind,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &RequestError{Supplier: c.kind, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response failed: %w", c.kind, err)
	}
	return nil
}
