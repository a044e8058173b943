package nvmeof

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// KeepAliveTimeoutMS is the KATO the discovery controller requests on
// Connect (spec §4.2).
const KeepAliveTimeoutMS uint32 = 360000

const sqSizeDiscovery uint32 = 2

// SendFabricConnect builds and sends a Fabrics Connect command for q's
// discovery queue. If the target rejects it with InvalidField|DoNotRetry,
// it retries once with kato=0 and marks the queue failed_kato, meaning
// subsequent operations must connect, do work, and disconnect without
// relying on keep-alive (spec §4.2).
func SendFabricConnect(ctx context.Context, q *Queue, hostNQN string) error {
	q.HostNQN = hostNQN
	q.SubNQN = DiscoverySubNQN

	cqe, err := sendConnect(ctx, q, KeepAliveTimeoutMS)
	if err != nil {
		return err
	}
	if !cqe.Status().OK() {
		st := cqe.Status()
		if st.Code == StatusInvalidField && st.DNR {
			klog.V(3).Infof("nvmeof: %s rejected kato, retrying with kato=0", q.Endpoint)
			q.FailedKato = true
			cqe, err = sendConnect(ctx, q, 0)
			if err != nil {
				return err
			}
			if !cqe.Status().OK() {
				metrics.RecordDiscoveryCommand("connect", "failure")
				return &Error{Op: "fabric_connect", Status: cqe.Status()}
			}
		} else {
			metrics.RecordDiscoveryCommand("connect", "failure")
			return &Error{Op: "fabric_connect", Status: st}
		}
	}
	q.CntlID = uint16(cqe.Result)
	q.Connected = true
	metrics.RecordDiscoveryCommand("connect", "success")
	return nil
}

func sendConnect(ctx context.Context, q *Queue, kato uint32) (Completion, error) {
	cmd := Command{
		Opcode: OpcodeFabrics,
		Fctype: FctypeConnect,
		CID:    q.nextCID(),
		CDW10:  sqSizeDiscovery,
		CDW11:  kato,
	}
	data := ConnectData{CNTLID: 0xffff, SubNQN: q.SubNQN, HostNQN: q.HostNQN}
	dataBuf, err := data.MarshalBinary()
	if err != nil {
		return Completion{}, err
	}
	cmdBuf, err := cmd.MarshalBinary()
	if err != nil {
		return Completion{}, err
	}
	if err := q.Endpoint.SendMsg(ctx, append(cmdBuf, dataBuf...)); err != nil {
		return Completion{}, fmt.Errorf("nvmeof: send connect: %w", err)
	}
	return q.processResponse(ctx, cmd.CID)
}

// SendPropertySet writes a 32-bit value to a controller property, used to
// enable (CC=0x460001) and disable (CC=0x464001) the discovery controller
// at connect/disconnect time.
func SendPropertySet(ctx context.Context, q *Queue, offset uint32, value uint32) error {
	cmd := Command{
		Opcode: OpcodeFabrics,
		Fctype: FctypePropertySet,
		CID:    q.nextCID(),
		CDW10:  0x1, // attrib=1: 4-byte property access
		CDW11:  offset,
		CDW12:  value,
	}
	cqe, err := q.sendCommand(ctx, cmd)
	if err != nil {
		return err
	}
	if !cqe.Status().OK() {
		metrics.RecordDiscoveryCommand("property_set", "failure")
		return &Error{Op: "property_set", Status: cqe.Status()}
	}
	metrics.RecordDiscoveryCommand("property_set", "success")
	return nil
}

// SendGetProperty reads a controller property (CAP/VS/CSTS).
func SendGetProperty(ctx context.Context, q *Queue, offset uint32) (uint64, error) {
	cmd := Command{
		Opcode: OpcodeFabrics,
		Fctype: FctypePropertyGet,
		CID:    q.nextCID(),
		CDW10:  0x1,
		CDW11:  offset,
	}
	cqe, err := q.sendCommand(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if !cqe.Status().OK() {
		metrics.RecordDiscoveryCommand("property_get", "failure")
		return 0, &Error{Op: "property_get", Status: cqe.Status()}
	}
	metrics.RecordDiscoveryCommand("property_get", "success")
	return uint64(cqe.Result), nil
}

// SendIdentify issues Identify CNS=01 and reads back the abbreviated
// id_ctrl body the discovery controller writes in its response capsule:
// maxcmd, SGL support bits, and subnqn (spec §4.3).
func SendIdentify(ctx context.Context, q *Queue) (IdCtrl, error) {
	cmd := Command{
		Opcode: OpcodeIdentify,
		CID:    q.nextCID(),
		CDW10:  0x01, // CNS=01: controller
	}
	buf, err := cmd.MarshalBinary()
	if err != nil {
		return IdCtrl{}, err
	}
	if err := q.Endpoint.SendMsg(ctx, buf); err != nil {
		return IdCtrl{}, fmt.Errorf("nvmeof: send identify: %w", err)
	}
	_, body, err := q.Endpoint.PollForMsg(ctx)
	for errors.Is(err, transport.ErrTryAgain) {
		_, body, err = q.Endpoint.PollForMsg(ctx)
	}
	if err != nil {
		return IdCtrl{}, fmt.Errorf("nvmeof: identify response: %w", err)
	}
	if err := q.Endpoint.RepostRecv(ctx); err != nil {
		return IdCtrl{}, err
	}
	if len(body) == cqeLen {
		var cqe Completion
		if err := cqe.UnmarshalBinary(body); err == nil {
			return IdCtrl{}, &Error{Op: "identify", Status: cqe.Status()}
		}
	}
	var idCtrl IdCtrl
	if err := idCtrl.UnmarshalBinary(body); err != nil {
		return IdCtrl{}, err
	}
	return idCtrl, nil
}

// SendGetLogPage fetches the discovery log page in two phases: first a
// 16-byte read for genctr/numrec, then a full fetch sized 16+numrec*discRspEntryLen.
// Disagreement between the two numrec/genctr pairs fails InvalidField
// (spec §4.2).
func SendGetLogPage(ctx context.Context, q *Queue) ([]DiscRspEntry, error) {
	hdr, err := fetchDiscLog(ctx, q, discLogHeaderLen)
	if err != nil {
		return nil, err
	}
	var first DiscLogHeader
	if err := first.UnmarshalBinary(hdr); err != nil {
		return nil, err
	}
	if first.NumRec == 0 {
		return nil, nil
	}

	full, err := fetchDiscLog(ctx, q, discLogHeaderLen+int(first.NumRec)*discRspEntryLen)
	if err != nil {
		return nil, err
	}
	var second DiscLogHeader
	if err := second.UnmarshalBinary(full); err != nil {
		return nil, err
	}
	if second.NumRec != first.NumRec || second.GenCtr != first.GenCtr {
		metrics.RecordDiscoveryCommand("get_log_page", "failure")
		return nil, &Error{Op: "get_log_page", Status: Status{Code: StatusInvalidField}}
	}

	entries := make([]DiscRspEntry, 0, second.NumRec)
	body := full[discLogHeaderLen:]
	for i := uint64(0); i < second.NumRec; i++ {
		var e DiscRspEntry
		start := int(i) * discRspEntryLen
		if err := e.UnmarshalBinary(body[start : start+discRspEntryLen]); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	metrics.RecordDiscoveryCommand("get_log_page", "success")
	return entries, nil
}

func fetchDiscLog(ctx context.Context, q *Queue, length int) ([]byte, error) {
	cmd := Command{
		Opcode: OpcodeGetLogPage,
		CID:    q.nextCID(),
		CDW10:  uint32(LogPageIDDiscovery) | (uint32(length/4-1) << 16),
	}
	buf, err := cmd.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := q.Endpoint.SendMsg(ctx, buf); err != nil {
		return nil, fmt.Errorf("nvmeof: send get_log_page: %w", err)
	}
	_, body, err := q.Endpoint.PollForMsg(ctx)
	for errors.Is(err, transport.ErrTryAgain) {
		_, body, err = q.Endpoint.PollForMsg(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("nvmeof: get_log_page response: %w", err)
	}
	if err := q.Endpoint.RepostRecv(ctx); err != nil {
		return nil, err
	}
	if len(body) < length {
		return nil, fmt.Errorf("nvmeof: short get_log_page response (%d of %d)", len(body), length)
	}
	return body[:length], nil
}

// AsyncEventConfigFeatureID is fid=0x0B (async-event-config) per spec §4.2.
const AsyncEventConfigFeatureID uint32 = 0x0B

// SendGetFeatures reads a feature's current value.
func SendGetFeatures(ctx context.Context, q *Queue, fid uint32) (uint32, error) {
	cmd := Command{Opcode: OpcodeGetFeatures, CID: q.nextCID(), CDW10: fid}
	cqe, err := q.sendCommand(ctx, cmd)
	if err != nil {
		return 0, err
	}
	if !cqe.Status().OK() {
		return 0, &Error{Op: "get_features", Status: cqe.Status()}
	}
	return cqe.Result, nil
}

// SendSetFeatures writes a feature's value.
func SendSetFeatures(ctx context.Context, q *Queue, fid uint32, cdw11 uint32) error {
	cmd := Command{Opcode: OpcodeSetFeatures, CID: q.nextCID(), CDW10: fid, CDW11: cdw11}
	cqe, err := q.sendCommand(ctx, cmd)
	if err != nil {
		return err
	}
	if !cqe.Status().OK() {
		return &Error{Op: "set_features", Status: cqe.Status()}
	}
	return nil
}

// SendAsyncEventRequest posts a single AER, to be completed later out of
// band by the AEN notifier (spec §4.2, §4.8).
func SendAsyncEventRequest(ctx context.Context, q *Queue) error {
	cmd := Command{Opcode: OpcodeAsyncEventReq, CID: q.nextCID()}
	buf, err := cmd.MarshalBinary()
	if err != nil {
		return err
	}
	return q.Endpoint.SendMsg(ctx, buf)
}

// SendKeepAlive sends a periodic keep-alive. Callers must not call this on
// a queue with FailedKato set.
func SendKeepAlive(ctx context.Context, q *Queue) error {
	if q.FailedKato {
		return errors.New("nvmeof: keep-alive not supported on this queue")
	}
	cmd := Command{Opcode: OpcodeKeepAlive, CID: q.nextCID()}
	cqe, err := q.sendCommand(ctx, cmd)
	if err != nil {
		return err
	}
	if !cqe.Status().OK() {
		return &Error{Op: "keep_alive", Status: cqe.Status()}
	}
	return nil
}

// ProcessNvmeResponse waits bounded for the completion matching cid,
// reposts the receive slot, and returns (status>>1) plus the result field
// for features/property-get callers that need it.
func ProcessNvmeResponse(ctx context.Context, q *Queue, cid uint16) (Status, uint32, error) {
	cqe, err := q.processResponse(ctx, cid)
	if err != nil {
		return Status{}, 0, err
	}
	return cqe.Status(), cqe.Result, nil
}

// NextCID allocates the next command ID for q, for callers outside this
// package building their own vendor-specific commands (e.g. the
// in-band propagation dispatcher's resource_config requests).
func NextCID(q *Queue) uint16 {
	return q.nextCID()
}

// SendRaw marshals cmd, appends payload to its SGL-carried data, sends it
// on q, and waits for the matching completion. Used for vendor Fctypes
// that carry an op-specific packed payload instead of the fixed command
// bodies pkg/nvmeof already knows how to build.
func SendRaw(ctx context.Context, q *Queue, cmd Command, payload []byte) (Status, uint32, error) {
	buf, err := cmd.MarshalBinary()
	if err != nil {
		return Status{}, 0, err
	}
	buf = append(buf, payload...)
	if err := q.Endpoint.SendMsg(ctx, buf); err != nil {
		return Status{}, 0, err
	}
	return ProcessNvmeResponse(ctx, q, cmd.CID)
}
