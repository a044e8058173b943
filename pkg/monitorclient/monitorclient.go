// Package monitorclient implements the standalone discovery-client (C9):
// connect to one target's discovery controller, enable AEN, and loop
// printing discovery log page diffs as the target's configuration changes
// (spec §4.9). It is deliberately single-threaded (spec §5, "The monitor
// client is single-threaded"): one Queue, one goroutine, one connection
// at a time.
package monitorclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
	"github.com/nvme-dem/nvme-dem/pkg/retry"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// ConnectRetryCount bounds reconnect attempts after a connection drop
// (spec §4.9, "CONNECT_RETRY_COUNT").
const ConnectRetryCount = 10

// KeepAliveInterval is how often the monitor pings the discovery
// controller while idle between AEN completions (spec §4.9, "~50s").
const KeepAliveInterval = 50 * time.Second

// Target identifies the discovery controller endpoint to monitor.
type Target struct {
	TrType  model.TrType
	AdrFam  model.AdrFam
	Traddr  string
	Trsvcid string
	HostNQN string
}

// dialString formats the address the way each transport's ClientConnect
// expects it (spec §4.1, traddr:trsvcid).
func (t Target) dialString() string {
	return fmt.Sprintf("%s:%s", t.Traddr, t.Trsvcid)
}

// Row is one printable discovery log page entry, tagged with how it
// compares to the previous fetch (spec §3/§8, added/valid/removed).
type Row struct {
	nvmeof.DiscRspEntry
	Change string // "added", "valid", or "removed"
}

const (
	ChangeAdded   = "added"
	ChangeValid   = "valid"
	ChangeRemoved = "removed"
)

// Printer receives each diffed fetch. Implementations render to a
// terminal, a log, or (in tests) a slice.
type Printer interface {
	PrintRows(rows []Row)
	Debugf(format string, args ...any)
}

// Monitor owns one Target, one transport.Transport, and the cache of the
// last-seen discovery log page (spec §4.9).
type Monitor struct {
	target Target
	tr     transport.Transport
	out    Printer

	cache map[cacheKey]nvmeof.DiscRspEntry
}

type cacheKey struct {
	trType  uint8
	adrFam  uint8
	portid  uint16
	subnqn  string
	traddr  string
	trsvcid string
}

func entryKey(e nvmeof.DiscRspEntry) cacheKey {
	return cacheKey{e.TrType, e.AdrFam, e.Portid, e.SubNQN, e.Traddr, e.Trsvcid}
}

// New returns a Monitor that will dial target over tr and print fetches to out.
func New(target Target, tr transport.Transport, out Printer) *Monitor {
	return &Monitor{
		target: target,
		tr:     tr,
		out:    out,
		cache:  make(map[cacheKey]nvmeof.DiscRspEntry),
	}
}

// Run connects, enables AEN, and loops until ctx is cancelled, reconnecting
// with bounded backoff on any connection failure (spec §4.9).
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := m.runSession(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			klog.Warningf("monitorclient: session with %s ended: %v", m.target.dialString(), err)
		}
	}
}

// runSession dials, connects once, then serves the AEN loop until the
// connection drops, reconnecting internally per ConnectRetryCount before
// giving up and returning an error to Run (which tries again after that).
func (m *Monitor) runSession(ctx context.Context) error {
	connect := func() (*nvmeof.Queue, error) {
		ep, err := m.tr.ClientConnect(ctx, m.target.dialString(), m.tr.BuildConnectData(m.target.HostNQN))
		if err != nil {
			return nil, fmt.Errorf("monitorclient: dial %s: %w", m.target.dialString(), err)
		}
		q := nvmeof.NewQueue(ep)
		if err := nvmeof.SendFabricConnect(ctx, q, m.target.HostNQN); err != nil {
			ep.Close()
			return nil, fmt.Errorf("monitorclient: connect %s: %w", m.target.dialString(), err)
		}
		return q, nil
	}

	cfg := retry.RetryConfig{
		MaxAttempts:       ConnectRetryCount,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableFunc:     retry.IsRetryableError,
		OperationName:     "monitor connect " + m.target.dialString(),
	}
	q, err := retry.WithRetry(ctx, cfg, connect)
	if err != nil {
		return err
	}
	defer q.Endpoint.Close()

	m.out.Debugf("monitorclient: connected to %s as %s", m.target.dialString(), m.target.HostNQN)

	if err := m.enableAEN(ctx, q); err != nil {
		return err
	}

	if err := m.refresh(ctx, q); err != nil {
		return err
	}

	return m.serve(ctx, q)
}

// enableAEN sets fid=0x0B so the discovery controller will complete our
// AERs on DISC_LOG_CHG (spec §4.2, §4.9).
func (m *Monitor) enableAEN(ctx context.Context, q *nvmeof.Queue) error {
	const discLogChgMask uint32 = 0x01
	if err := nvmeof.SendSetFeatures(ctx, q, nvmeof.AsyncEventConfigFeatureID, discLogChgMask); err != nil {
		return fmt.Errorf("monitorclient: enable AEN: %w", err)
	}
	return nil
}

// serve loops: post an AER, wait (bounded) for its completion while
// sending keep-alives on schedule, and on each completion re-fetch and
// diff the log page. Returns when the connection errors out.
func (m *Monitor) serve(ctx context.Context, q *nvmeof.Queue) error {
	nextKeepAlive := time.Now().Add(KeepAliveInterval)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cid := nvmeof.NextCID(q)
		cmd := nvmeof.Command{Opcode: nvmeof.OpcodeAsyncEventReq, CID: cid}
		buf, err := cmd.MarshalBinary()
		if err != nil {
			return fmt.Errorf("monitorclient: encode AER: %w", err)
		}
		if err := q.Endpoint.SendMsg(ctx, buf); err != nil {
			return fmt.Errorf("monitorclient: post AER: %w", err)
		}

		status, _, err := waitOrKeepAlive(ctx, q, cid, q.FailedKato, &nextKeepAlive)
		if err != nil {
			return err
		}
		if !status.OK() {
			klog.Warningf("monitorclient: AER completed with %s", status)
			continue
		}

		if err := m.refresh(ctx, q); err != nil {
			return err
		}
	}
}

// waitOrKeepAlive waits for cid's completion, sending a keep-alive every
// time the wait times out and the deadline has passed (the queue's own
// processResponse call is bounded by transport.MsgTimeout, so this loop
// naturally ticks at that granularity).
func waitOrKeepAlive(ctx context.Context, q *nvmeof.Queue, cid uint16, failedKato bool, nextKeepAlive *time.Time) (nvmeof.Status, uint32, error) {
	for {
		status, result, err := nvmeof.ProcessNvmeResponse(ctx, q, cid)
		if err == nil {
			return status, result, nil
		}
		if !errors.Is(err, transport.ErrTimeout) {
			return nvmeof.Status{}, 0, err
		}
		if ctx.Err() != nil {
			return nvmeof.Status{}, 0, ctx.Err()
		}
		if failedKato {
			continue
		}
		if time.Now().Before(*nextKeepAlive) {
			continue
		}
		if err := nvmeof.SendKeepAlive(ctx, q); err != nil {
			return nvmeof.Status{}, 0, fmt.Errorf("monitorclient: keep-alive: %w", err)
		}
		*nextKeepAlive = time.Now().Add(KeepAliveInterval)
	}
}

// refresh fetches the discovery log page, diffs it against the cache, and
// prints the result (spec §3/§8, added/valid/removed).
func (m *Monitor) refresh(ctx context.Context, q *nvmeof.Queue) error {
	entries, err := nvmeof.SendGetLogPage(ctx, q)
	if err != nil {
		return fmt.Errorf("monitorclient: get log page: %w", err)
	}

	seen := make(map[cacheKey]bool, len(entries))
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		k := entryKey(e)
		seen[k] = true
		change := ChangeValid
		if _, ok := m.cache[k]; !ok {
			change = ChangeAdded
		}
		rows = append(rows, Row{DiscRspEntry: e, Change: change})
		m.cache[k] = e
	}
	for k, e := range m.cache {
		if seen[k] {
			continue
		}
		rows = append(rows, Row{DiscRspEntry: e, Change: ChangeRemoved})
		delete(m.cache, k)
	}

	m.out.PrintRows(rows)
	return nil
}
