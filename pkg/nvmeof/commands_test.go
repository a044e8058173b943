package nvmeof

import "testing"

func TestCommandRoundTrip(t *testing.T) {
	cmd := Command{Opcode: OpcodeFabrics, Fctype: FctypeConnect, CID: 7, NSID: 0, CDW10: 2, CDW11: 360000}
	buf, err := cmd.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(buf) != sqeLen {
		t.Fatalf("expected %d bytes, got %d", sqeLen, len(buf))
	}
	var got Command
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != cmd {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, cmd)
	}
}

func TestCompletionStatusDecode(t *testing.T) {
	cqe := Completion{Result: 42, CID: 7, StatusRaw: (StatusInvalidField << 1) | 0x4000}
	st := cqe.Status()
	if st.Code != StatusInvalidField {
		t.Fatalf("expected InvalidField, got %v", st.Code)
	}
	if !st.DNR {
		t.Fatalf("expected DNR set")
	}
	if st.OK() {
		t.Fatalf("expected non-OK status")
	}
}

func TestConnectDataRoundTrip(t *testing.T) {
	d := ConnectData{CNTLID: 0xffff, SubNQN: DiscoverySubNQN, HostNQN: "nqn.2014-08.org.nvmexpress:uuid:host1"}
	buf, err := d.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got ConnectData
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.SubNQN != d.SubNQN || got.HostNQN != d.HostNQN || got.CNTLID != d.CNTLID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, d)
	}
}

func TestDiscRspEntryRoundTrip(t *testing.T) {
	e := DiscRspEntry{TrType: 3, AdrFam: 1, Portid: 1, SubNQN: "nqn.x", Traddr: "10.0.0.1", Trsvcid: "4420"}
	buf, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(buf) != discRspEntryLen {
		t.Fatalf("expected %d bytes, got %d", discRspEntryLen, len(buf))
	}
	var got DiscRspEntry
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != e {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, e)
	}
}

func TestDiscLogHeaderRoundTrip(t *testing.T) {
	h := DiscLogHeader{GenCtr: 3, NumRec: 5}
	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got DiscLogHeader
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}
