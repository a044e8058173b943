package monitorclient

import (
	"context"
	"testing"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// scriptedEndpoint replays a fixed sequence of response bodies, one per
// PollForMsg call, mirroring pkg/nvmeof's own test fake.
type scriptedEndpoint struct {
	responses [][]byte
	sent      [][]byte
}

func (e *scriptedEndpoint) PostMsg(ctx context.Context, buf []byte) error { return e.SendMsg(ctx, buf) }
func (e *scriptedEndpoint) SendMsg(ctx context.Context, buf []byte) error {
	e.sent = append(e.sent, append([]byte(nil), buf...))
	return nil
}
func (e *scriptedEndpoint) SendRsp(ctx context.Context, buf []byte) error { return e.SendMsg(ctx, buf) }
func (e *scriptedEndpoint) RepostRecv(ctx context.Context) error         { return nil }
func (e *scriptedEndpoint) PollForMsg(ctx context.Context) (transport.QueueEntry, []byte, error) {
	if len(e.responses) == 0 {
		return transport.QueueEntry{}, nil, transport.ErrTimeout
	}
	next := e.responses[0]
	e.responses = e.responses[1:]
	return transport.QueueEntry{Length: len(next)}, next, nil
}
func (e *scriptedEndpoint) AllocKey([]byte) (transport.MemoryRegion, error) { return nil, nil }
func (e *scriptedEndpoint) DeallocKey(transport.MemoryRegion)               {}
func (e *scriptedEndpoint) RMARead(context.Context, []byte, uint64, int, uint32, transport.MemoryRegion) error {
	return nil
}
func (e *scriptedEndpoint) RMAWrite(context.Context, []byte, uint64, uint32, transport.MemoryRegion, transport.Direction) error {
	return nil
}
func (e *scriptedEndpoint) Close() error   { return nil }
func (e *scriptedEndpoint) String() string { return "scripted" }

// recordingPrinter captures every PrintRows call for assertions.
type recordingPrinter struct {
	calls [][]Row
}

func (p *recordingPrinter) PrintRows(rows []Row)            { p.calls = append(p.calls, rows) }
func (p *recordingPrinter) Debugf(format string, args ...any) {}

func logPageBytes(t *testing.T, entries ...nvmeof.DiscRspEntry) [][]byte {
	t.Helper()
	hdr := nvmeof.DiscLogHeader{GenCtr: 1, NumRec: uint64(len(entries))}
	hdrBuf, err := hdr.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}

	full := append([]byte(nil), hdrBuf...)
	for _, e := range entries {
		buf, err := e.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal entry: %v", err)
		}
		full = append(full, buf...)
	}
	// SendGetLogPage fetches the 16-byte header first, then the full page;
	// both responses carry the same genctr/numrec so the second check passes.
	return [][]byte{hdrBuf, full}
}

func newTestMonitor(out *recordingPrinter) *Monitor {
	return New(Target{
		TrType:  model.TrTypeTCP,
		AdrFam:  model.AdrFamIPv4,
		Traddr:  "10.0.0.1",
		Trsvcid: "8009",
		HostNQN: "nqn.2014-08.org.nvmexpress:uuid:test",
	}, nil, out)
}

func TestRefreshDiffsAddedValidRemoved(t *testing.T) {
	entryA := nvmeof.DiscRspEntry{TrType: 3, AdrFam: 1, Portid: 1, SubNQN: "nqn.sub.a", Traddr: "10.0.0.2", Trsvcid: "4420"}
	entryB := nvmeof.DiscRspEntry{TrType: 3, AdrFam: 1, Portid: 2, SubNQN: "nqn.sub.b", Traddr: "10.0.0.3", Trsvcid: "4420"}

	out := &recordingPrinter{}
	mon := newTestMonitor(out)

	ep := &scriptedEndpoint{responses: logPageBytes(t, entryA)}
	q := nvmeof.NewQueue(ep)
	if err := mon.refresh(context.Background(), q); err != nil {
		t.Fatalf("refresh 1: %v", err)
	}
	if len(out.calls) != 1 || len(out.calls[0]) != 1 || out.calls[0][0].Change != ChangeAdded {
		t.Fatalf("expected one added row, got %+v", out.calls)
	}

	ep2 := &scriptedEndpoint{responses: logPageBytes(t, entryA, entryB)}
	q2 := nvmeof.NewQueue(ep2)
	if err := mon.refresh(context.Background(), q2); err != nil {
		t.Fatalf("refresh 2: %v", err)
	}
	rows := out.calls[1]
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	changes := map[string]string{}
	for _, r := range rows {
		changes[r.SubNQN] = r.Change
	}
	if changes["nqn.sub.a"] != ChangeValid {
		t.Fatalf("expected entryA to be valid, got %s", changes["nqn.sub.a"])
	}
	if changes["nqn.sub.b"] != ChangeAdded {
		t.Fatalf("expected entryB to be added, got %s", changes["nqn.sub.b"])
	}

	ep3 := &scriptedEndpoint{responses: logPageBytes(t, entryB)}
	q3 := nvmeof.NewQueue(ep3)
	if err := mon.refresh(context.Background(), q3); err != nil {
		t.Fatalf("refresh 3: %v", err)
	}
	rows3 := out.calls[2]
	changes3 := map[string]string{}
	for _, r := range rows3 {
		changes3[r.SubNQN] = r.Change
	}
	if changes3["nqn.sub.a"] != ChangeRemoved {
		t.Fatalf("expected entryA to be removed, got %s", changes3["nqn.sub.a"])
	}
	if changes3["nqn.sub.b"] != ChangeValid {
		t.Fatalf("expected entryB to still be valid, got %s", changes3["nqn.sub.b"])
	}
}

func TestRefreshEmptyLogPage(t *testing.T) {
	out := &recordingPrinter{}
	mon := newTestMonitor(out)

	hdr := nvmeof.DiscLogHeader{GenCtr: 1, NumRec: 0}
	hdrBuf, err := hdr.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	ep := &scriptedEndpoint{responses: [][]byte{hdrBuf}}
	q := nvmeof.NewQueue(ep)

	if err := mon.refresh(context.Background(), q); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(out.calls) != 1 || len(out.calls[0]) != 0 {
		t.Fatalf("expected one empty-rows call, got %+v", out.calls)
	}
}
