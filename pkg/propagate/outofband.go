package propagate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/retry"
)

// OutOfBand dispatches a Change as a plain HTTP request to a target's
// out-of-band management interface (its storage controller's own REST
// API), retrying transient failures with the same bounded-backoff policy
// used elsewhere in the propagation path.
type OutOfBand struct {
	mgr        *model.Manager
	httpClient *http.Client
	retryCfg   retry.RetryConfig
}

// NewOutOfBand returns an OutOfBand dispatcher resolving each Change's
// target management interface through mgr.
func NewOutOfBand(mgr *model.Manager) *OutOfBand {
	return &OutOfBand{
		mgr:        mgr,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retryCfg: retry.RetryConfig{
			MaxAttempts:       3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			OperationName:     "outofband propagate",
			RetryableFunc:     isRetryableHTTPError,
		},
	}
}

func isRetryableHTTPError(err error) bool {
	if err == nil {
		return false
	}
	if statusErr, ok := err.(*httpStatusError); ok {
		return statusErr.status >= 500
	}
	return true // network errors are retryable
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("out-of-band target returned %d: %s", e.status, e.body)
}

// Dispatch POSTs a JSON representation of c to the target's out-of-band
// interface at PATH /dem/<op>.
func (o *OutOfBand) Dispatch(ctx context.Context, c Change) error {
	start := time.Now()
	t, err := o.mgr.FindTarget(c.Target)
	if err != nil {
		metrics.RecordPropagation(metrics.ModeOutOfBand, string(c.Op), "error", time.Since(start))
		return err
	}
	iface := t.Interface
	url := fmt.Sprintf("http://%s:%d/dem/%s", iface.Address, iface.TrsvcID, c.Op)

	body, err := json.Marshal(c)
	if err != nil {
		metrics.RecordPropagation(metrics.ModeOutOfBand, string(c.Op), "error", time.Since(start))
		return fmt.Errorf("marshal change: %w", err)
	}

	_, err = retry.WithRetry(ctx, o.retryCfg, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := o.httpClient.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return struct{}{}, &httpStatusError{status: resp.StatusCode}
		}
		return struct{}{}, nil
	})

	status := "ok"
	if err != nil {
		status = "error"
		klog.Warningf("propagate: out-of-band %s to %s failed: %v", c.Op, url, err)
	}
	metrics.RecordPropagation(metrics.ModeOutOfBand, string(c.Op), status, time.Since(start))
	return err
}
