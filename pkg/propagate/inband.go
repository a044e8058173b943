package propagate

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// inbandOp maps a propagate.Op to the vendor Fctype that reflects it onto a
// self-configuring target's resource table.
func inbandOp(op Op) uint8 {
	switch op {
	case OpResetConfig:
		return nvmeof.FctypeResourceConfigReset
	case OpDeleteSubsystem, OpDeletePortid, OpDeleteNamespace, OpUnlinkHost:
		return nvmeof.FctypeResourceConfigReset
	default:
		return nvmeof.FctypeResourceConfigSet
	}
}

// InBand dispatches a Change over the NVMe-oF admin channel to a target
// that self-configures itself: one vendor resource_config_{get,set,reset}
// Fabrics command per Change, sent over a persistent per-target queue kept
// open between calls.
type InBand struct {
	mgr        *model.Manager
	transports map[model.TrType]transport.Transport

	mu      sync.Mutex
	queues  map[string]*nvmeof.Queue
	timeout time.Duration
}

// NewInBand returns an InBand dispatcher using transports to reach each
// target's self-config Portid.
func NewInBand(mgr *model.Manager, transports map[model.TrType]transport.Transport) *InBand {
	return &InBand{
		mgr:        mgr,
		transports: transports,
		queues:     make(map[string]*nvmeof.Queue),
		timeout:    transport.MsgTimeout,
	}
}

func (ib *InBand) Dispatch(ctx context.Context, c Change) error {
	start := time.Now()
	q, err := ib.queueFor(ctx, c.Target)
	if err != nil {
		metrics.RecordPropagation(metrics.ModeInBand, string(c.Op), "error", time.Since(start))
		return err
	}

	payload := encodeResourceConfig(c)
	cmd := nvmeof.Command{
		Opcode: nvmeof.OpcodeFabrics,
		Fctype: inbandOp(c.Op),
		CID:    nvmeof.NextCID(q),
		CDW10:  uint32(len(payload)),
	}
	status, _, err := nvmeof.SendRaw(ctx, q, cmd, payload)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		ib.invalidate(c.Target)
	} else if !status.OK() {
		outcome = "rejected"
		err = &nvmeof.Error{Op: string(c.Op), Status: status}
	}
	metrics.RecordPropagation(metrics.ModeInBand, string(c.Op), outcome, time.Since(start))
	if err != nil {
		klog.Warningf("propagate: in-band %s on %s failed: %v", c.Op, c.Target, err)
	}
	return err
}

// queueFor returns the cached admin queue for target, connecting a new one
// through its self-config Portid if none is open yet.
func (ib *InBand) queueFor(ctx context.Context, target string) (*nvmeof.Queue, error) {
	ib.mu.Lock()
	if q, ok := ib.queues[target]; ok && q.Connected {
		ib.mu.Unlock()
		return q, nil
	}
	ib.mu.Unlock()

	t, err := ib.mgr.FindTarget(target)
	if err != nil {
		return nil, err
	}
	if t.Interface.Type == "" {
		return nil, fmt.Errorf("propagate: target %s has no self-config interface", target)
	}
	tp, ok := ib.transports[t.Interface.Type]
	if !ok {
		return nil, fmt.Errorf("propagate: no transport registered for %s", t.Interface.Type)
	}
	service := fmt.Sprintf("%s:%d", t.Interface.Address, t.Interface.TrsvcID)
	ep, err := tp.ClientConnect(ctx, service, tp.BuildConnectData(nvmeof.DiscoverySubNQN))
	if err != nil {
		return nil, fmt.Errorf("propagate: connect to %s: %w", service, err)
	}
	q := nvmeof.NewQueue(ep)
	if err := nvmeof.SendFabricConnect(ctx, q, nvmeof.DiscoverySubNQN); err != nil {
		return nil, fmt.Errorf("propagate: fabric connect to %s: %w", service, err)
	}
	if err := nvmeof.SendPropertySet(ctx, q, nvmeof.PropertyCC, nvmeof.CCEnable); err != nil {
		return nil, fmt.Errorf("propagate: enable %s: %w", service, err)
	}

	ib.mu.Lock()
	ib.queues[target] = q
	ib.mu.Unlock()
	return q, nil
}

func (ib *InBand) invalidate(target string) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	if q, ok := ib.queues[target]; ok {
		q.Endpoint.Close()
		delete(ib.queues, target)
	}
}

// encodeResourceConfig packs a Change into the little-endian resource entry
// the vendor command carries in its SGL payload: op-specific integer fields
// followed by the two NUL-free strings it names, each length-prefixed.
func encodeResourceConfig(c Change) []byte {
	buf := make([]byte, 0, 64)
	var head [12]byte
	binary.LittleEndian.PutUint32(head[0:4], uint32(c.Portid))
	binary.LittleEndian.PutUint32(head[4:8], uint32(c.NSID))
	binary.LittleEndian.PutUint32(head[8:12], 0)
	buf = append(buf, head[:]...)
	buf = appendLPString(buf, c.Subnqn)
	buf = appendLPString(buf, c.Host)
	return buf
}

func appendLPString(buf []byte, s string) []byte {
	var length [2]byte
	binary.LittleEndian.PutUint16(length[:], uint16(len(s)))
	buf = append(buf, length[:]...)
	return append(buf, s...)
}
