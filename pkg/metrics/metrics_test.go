package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsAvailability(t *testing.T) {
	RecordRESTRequest(http.MethodGet, "/target", "200", 10*time.Millisecond)
	SetDiscoveryConnections("tcp", 3)
	RecordDiscoveryCommand("get_log_page", "success")
	RecordAEN()
	SetAENPending(2)
	RecordLogpageFetch("T1", 50*time.Millisecond)
	RecordLogpageStale("T1", 1)
	RecordPropagation(ModeOutOfBand, "add_subsystem", "success", 20*time.Millisecond)
	RecordStoreWrite(time.Millisecond, nil)

	server := httptest.NewServer(promhttp.Handler())
	defer server.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics body: %v", err)
	}

	for _, want := range []string{
		"nvme_dem_rest_requests_total",
		"nvme_dem_discovery_connections_active",
		"nvme_dem_aen_notifications_total",
		"nvme_dem_logpage_fetch_duration_seconds",
		"nvme_dem_propagate_operations_total",
		"nvme_dem_store_write_duration_seconds",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected metrics output to contain %q", want)
		}
	}
}

func TestRESTTimer(t *testing.T) {
	timer := NewRESTTimer(http.MethodPost, "/group")
	timer.ObserveStatus("201")
}
