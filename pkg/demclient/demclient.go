// Package demclient is the typed Go client library for the REST management
// surface (pkg/restapi), mirroring the resource/verb table of spec.md §4.5
// field for field. cmd/dem-cli and pkg/restapi's integration tests both
// drive the management surface exclusively through this package.
package demclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"k8s.io/klog/v2"
)

// APIError wraps a non-2xx HTTP response from the management surface.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dem server: %d: %s", e.Status, e.Body)
}

// Client is a thin REST client against a dem-server management surface.
type Client struct {
	baseURL string
	sig     string
	http    *http.Client
}

// New returns a Client targeting baseURL (e.g. "http://127.0.0.1:8080"),
// authenticating with sig as the Basic auth token if non-empty.
func New(baseURL, sig string) *Client {
	return &Client{
		baseURL: baseURL,
		sig:     sig,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("demclient: marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("demclient: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.sig != "" {
		req.Header.Set("Authorization", "Basic "+c.sig)
	}

	klog.V(4).Infof("demclient: %s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("demclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("demclient: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("demclient: decode response: %w", err)
	}
	return nil
}

func pathEscape(s string) string { return url.PathEscape(s) }

func itoa(n int) string { return strconv.Itoa(n) }
