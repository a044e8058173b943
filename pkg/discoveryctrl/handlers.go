package discoveryctrl

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
)

func (c *Connection) handleFabrics(ctx context.Context, cmd nvmeof.Command, body []byte) error {
	switch cmd.Fctype {
	case nvmeof.FctypeConnect:
		return c.handleConnect(ctx, cmd, body)
	case nvmeof.FctypePropertySet:
		return c.handlePropertySet(ctx, cmd)
	case nvmeof.FctypePropertyGet:
		return c.handlePropertyGet(ctx, cmd)
	default:
		klog.V(4).Infof("discoveryctrl: %s: unknown fctype 0x%02x", c, cmd.Fctype)
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
}

func (c *Connection) handleConnect(ctx context.Context, cmd nvmeof.Command, body []byte) error {
	if c.state != StateIdle {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	var data nvmeof.ConnectData
	if len(body) < 64 {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	if err := data.UnmarshalBinary(body[64:]); err != nil {
		return c.respondDNR(ctx, cmd.CID, nvmeof.StatusConnectInvalidParam, 0)
	}
	if data.SubNQN != nvmeof.DiscoverySubNQN && data.SubNQN != nvmeof.DomainSubNQN {
		return c.respondDNR(ctx, cmd.CID, nvmeof.StatusConnectInvalidHost, 0)
	}
	if data.CNTLID != 0xFFFF {
		return c.respondDNR(ctx, cmd.CID, nvmeof.StatusConnectInvalidParam, 0)
	}

	kato := cmd.CDW11
	if kato == 0 {
		c.queue.FailedKato = true
		c.kato = 0
	}
	c.hostNQN = data.HostNQN
	c.queue.HostNQN = data.HostNQN
	c.queue.SubNQN = data.SubNQN
	c.state = StateAuthenticated

	cntlid := uint16(1)
	c.queue.CntlID = cntlid
	klog.V(3).Infof("discoveryctrl: %s connected hostnqn=%s kato=%dms", c, data.HostNQN, kato)
	return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, uint32(cntlid))
}

func (c *Connection) handlePropertySet(ctx context.Context, cmd nvmeof.Command) error {
	switch cmd.CDW12 {
	case nvmeof.CCEnable:
		if !c.state.canTransitionTo(StateEnabled) {
			return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
		}
		c.state = StateEnabled
	case nvmeof.CCDisable:
		if c.state == StateEnabled {
			c.state = StateDisabled
		}
	default:
		return c.respondDNR(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, 0)
}

func (c *Connection) handlePropertyGet(ctx context.Context, cmd nvmeof.Command) error {
	switch cmd.CDW11 {
	case nvmeof.PropertyCAP:
		return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, uint32(nvmeof.FixedCAP))
	case nvmeof.PropertyVS:
		return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, nvmeof.FixedVS)
	case nvmeof.PropertyCSTS:
		return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, 1) // RDY
	default:
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
}

// handleIdentify writes the abbreviated id_ctrl body (spec §4.3) back over
// the raw response path, the same rma_write pkg/nvmeof's SendIdentify
// expects to read its result from.
func (c *Connection) handleIdentify(ctx context.Context, cmd nvmeof.Command) error {
	if c.state != StateEnabled && c.state != StateAuthenticated {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	idCtrl := nvmeof.IdCtrl{
		MaxCmd:               nvmeof.FixedMaxCmd,
		SGLKeyed:             true,
		SGLInCapsule:         true,
		SGLTransportSpecific: true,
		SubNQN:               nvmeof.DiscoverySubNQN,
	}
	buf, err := idCtrl.MarshalBinary()
	if err != nil {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInternal, 0)
	}
	return c.queue.Endpoint.SendRsp(ctx, buf)
}

// handleGetLogPage serves the discovery log page filtered by the connected
// host's NQN and ACL membership (spec §4.3, §8 filter correctness), as the
// two-phase header-then-full-page fetch pkg/nvmeof's client side expects:
// it sends back raw `DiscLogHeader`+`DiscRspEntry` bytes truncated to the
// length the command's CDW10 requested, not a plain Completion.
func (c *Connection) handleGetLogPage(ctx context.Context, cmd nvmeof.Command) error {
	if c.state != StateEnabled {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	entries, err := buildDiscLog(c.mgr, c.hostNQN)
	if err != nil {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInternal, 0)
	}
	klog.V(5).Infof("discoveryctrl: %s get_log_page -> %d entries", c, len(entries))
	return c.sendDiscLog(ctx, cmd, entries)
}

// sendDiscLog packs entries into a disc-log-header-prefixed byte stream,
// truncates it to the length the requester asked for in CDW10, and writes
// it back as the raw response body.
func (c *Connection) sendDiscLog(ctx context.Context, cmd nvmeof.Command, entries []nvmeof.DiscRspEntry) error {
	requested := (int((cmd.CDW10>>16)&0xffff) + 1) * 4

	hdr := nvmeof.DiscLogHeader{GenCtr: c.mgr.GenCtr(), NumRec: uint64(len(entries))}
	buf, err := hdr.MarshalBinary()
	if err != nil {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInternal, 0)
	}
	for _, e := range entries {
		eb, err := e.MarshalBinary()
		if err != nil {
			return c.respond(ctx, cmd.CID, nvmeof.StatusInternal, 0)
		}
		buf = append(buf, eb...)
	}
	if requested < len(buf) {
		buf = buf[:requested]
	} else if requested > len(buf) {
		buf = append(buf, make([]byte, requested-len(buf))...)
	}
	return c.queue.Endpoint.SendRsp(ctx, buf)
}

func (c *Connection) handleGetFeatures(ctx context.Context, cmd nvmeof.Command) error {
	if cmd.CDW10 != nvmeof.AsyncEventConfigFeatureID {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, c.asyncEventConfig)
}

func (c *Connection) handleSetFeatures(ctx context.Context, cmd nvmeof.Command) error {
	if cmd.CDW10 != nvmeof.AsyncEventConfigFeatureID {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	c.asyncEventConfig = cmd.CDW11
	return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, 0)
}

// handleAER parks the request on the model so the AEN notifier can
// complete it later; no immediate response is sent, matching real
// asynchronous-event semantics (the completion arrives out of band).
func (c *Connection) handleAER(ctx context.Context, cmd nvmeof.Command) error {
	if c.hostNQN == "" {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	c.mgr.ParkAER(c.hostNQN, c)
	return nil
}

func (c *Connection) handleKeepAlive(ctx context.Context, cmd nvmeof.Command) error {
	if c.queue.FailedKato {
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidField, 0)
	}
	return c.respond(ctx, cmd.CID, nvmeof.StatusSuccess, 0)
}

var _ model.AEREndpoint = (*Connection)(nil)
