package nvmeof

import (
	"context"
	"testing"

	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// scriptedEndpoint replays a fixed sequence of response bodies, one per
// PollForMsg call, and records every SendMsg payload for assertions.
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

func completionBytes(t *testing.T, cid uint16, result uint32, status uint16) []byte {
	t.Helper()
	cqe := Completion{Result: result, CID: cid, StatusRaw: status}
	buf, err := cqe.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return buf
}

func TestSendFabricConnectSuccess(t *testing.T) {
	ep := &scriptedEndpoint{responses: [][]byte{completionBytes(t, 1, 99, StatusSuccess<<1)}}
	q := NewQueue(ep)

	if err := SendFabricConnect(context.Background(), q, "nqn.host1"); err != nil {
		t.Fatalf("SendFabricConnect: %v", err)
	}
	if !q.Connected {
		t.Fatalf("expected queue connected")
	}
	if q.CntlID != 99 {
		t.Fatalf("expected cntlid 99, got %d", q.CntlID)
	}
	if len(ep.sent) != 1 {
		t.Fatalf("expected one sent message, got %d", len(ep.sent))
	}
}

func TestSendFabricConnectRetriesWithoutKato(t *testing.T) {
	rejectKato := (StatusInvalidField << 1) | 0x4000
	ep := &scriptedEndpoint{responses: [][]byte{
		completionBytes(t, 1, 0, uint16(rejectKato)),
		completionBytes(t, 2, 42, StatusSuccess<<1),
	}}
	q := NewQueue(ep)

	if err := SendFabricConnect(context.Background(), q, "nqn.host1"); err != nil {
		t.Fatalf("SendFabricConnect: %v", err)
	}
	if !q.FailedKato {
		t.Fatalf("expected FailedKato set after retry")
	}
	if q.CntlID != 42 {
		t.Fatalf("expected cntlid 42, got %d", q.CntlID)
	}
}

func TestSendGetLogPageDisagreementFails(t *testing.T) {
	firstHdr, _ := DiscLogHeader{GenCtr: 1, NumRec: 1}.MarshalBinary()
	mismatchedHdr, _ := DiscLogHeader{GenCtr: 2, NumRec: 1}.MarshalBinary()
	entry, _ := DiscRspEntry{TrType: 1, SubNQN: "nqn.x"}.MarshalBinary()

	ep := &scriptedEndpoint{responses: [][]byte{
		firstHdr,
		append(mismatchedHdr, entry...),
	}}
	q := NewQueue(ep)

	_, err := SendGetLogPage(context.Background(), q)
	if err == nil {
		t.Fatalf("expected error on genctr disagreement")
	}
	var nerr *Error
	if !asNvmeofError(err, &nerr) || nerr.Status.Code != StatusInvalidField {
		t.Fatalf("expected InvalidField, got %v", err)
	}
}

func TestSendGetLogPageAgreementSucceeds(t *testing.T) {
	hdr, _ := DiscLogHeader{GenCtr: 1, NumRec: 1}.MarshalBinary()
	entry, _ := DiscRspEntry{TrType: 1, AdrFam: 1, Portid: 1, SubNQN: "nqn.x", Traddr: "10.0.0.1", Trsvcid: "4420"}.MarshalBinary()

	ep := &scriptedEndpoint{responses: [][]byte{
		hdr,
		append(append([]byte(nil), hdr...), entry...),
	}}
	q := NewQueue(ep)

	entries, err := SendGetLogPage(context.Background(), q)
	if err != nil {
		t.Fatalf("SendGetLogPage: %v", err)
	}
	if len(entries) != 1 || entries[0].SubNQN != "nqn.x" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func asNvmeofError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
