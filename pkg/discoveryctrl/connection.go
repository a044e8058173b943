package discoveryctrl

import (
	"context"
	"fmt"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// Connection is one host's discovery session: the NVMe-oF queue it
// connected with, and its position in the state machine.
type Connection struct {
	queue            *nvmeof.Queue
	mgr              *model.Manager
	state            ConnState
	hostNQN          string
	asyncEventConfig uint32
	kato             time.Duration
	lastSeen         time.Time
}

// newConnection wraps ep in a discovery session. Every connection serves the
// same federated view of mgr regardless of which target's listener accepted
// it (spec §1, §4.3): the discovery controller is one logical endpoint, not
// one per target.
func newConnection(ep transport.Endpoint, mgr *model.Manager) *Connection {
	return &Connection{
		queue: nvmeof.NewQueue(ep),
		mgr:   mgr,
		state: StateIdle,
		kato:  time.Duration(nvmeof.KeepAliveTimeoutMS) * time.Millisecond,
	}
}

// SendAENCompletion implements model.AEREndpoint: it posts the discovery
// log-page-changed completion on this connection's keep-alive/AER command.
func (c *Connection) SendAENCompletion(result uint32) error {
	cqe := nvmeof.Completion{Result: result, StatusRaw: nvmeof.StatusSuccess << 1}
	buf, err := cqe.MarshalBinary()
	if err != nil {
		return err
	}
	return c.queue.Endpoint.SendRsp(context.Background(), buf)
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s(%s)", c.queue.Endpoint, c.hostNQN)
}

// serve drives one connection through its entire lifecycle until the peer
// disconnects, a ProtocolError occurs, or ctx is cancelled. It never
// panics: any malformed command closes the connection and is logged
// (spec §7, ProtocolError).
func (c *Connection) serve(ctx context.Context) {
	defer c.close()
	metrics.SetDiscoveryConnections(c.queue.Endpoint.String(), 1)
	defer metrics.SetDiscoveryConnections(c.queue.Endpoint.String(), 0)

	c.lastSeen = time.Now()
	for c.state != StateClosed {
		if err := c.step(ctx); err != nil {
			klog.V(3).Infof("discoveryctrl: %s: %v", c, err)
			return
		}
		if c.kato > 0 && time.Since(c.lastSeen) > c.kato && !c.queue.FailedKato {
			klog.Warningf("discoveryctrl: %s: keep-alive timeout", c)
			return
		}
	}
}

func (c *Connection) close() {
	if id := c.hostNQN; id != "" {
		// Drop any AER parked for this connection; it is meaningless once closed.
		c.mgr.TakeAER(id)
	}
	c.state = StateClosed
	c.queue.Endpoint.Close()
}

// step polls for the next command and dispatches it. It returns an error
// only for conditions that should terminate the connection.
func (c *Connection) step(ctx context.Context) error {
	entry, body, err := c.queue.Endpoint.PollForMsg(ctx)
	if err == transport.ErrTryAgain {
		return nil
	}
	if err != nil {
		return err
	}
	if err := c.queue.Endpoint.RepostRecv(ctx); err != nil {
		return fmt.Errorf("repost recv: %w", err)
	}
	_ = entry
	c.lastSeen = time.Now()

	var cmd nvmeof.Command
	if err := cmd.UnmarshalBinary(body); err != nil {
		return fmt.Errorf("malformed command: %w", err)
	}

	switch cmd.Opcode {
	case nvmeof.OpcodeFabrics:
		return c.handleFabrics(ctx, cmd, body)
	case nvmeof.OpcodeIdentify:
		return c.handleIdentify(ctx, cmd)
	case nvmeof.OpcodeGetLogPage:
		return c.handleGetLogPage(ctx, cmd)
	case nvmeof.OpcodeGetFeatures:
		return c.handleGetFeatures(ctx, cmd)
	case nvmeof.OpcodeSetFeatures:
		return c.handleSetFeatures(ctx, cmd)
	case nvmeof.OpcodeAsyncEventReq:
		return c.handleAER(ctx, cmd)
	case nvmeof.OpcodeKeepAlive:
		return c.handleKeepAlive(ctx, cmd)
	default:
		klog.V(4).Infof("discoveryctrl: %s: unknown opcode 0x%02x", c, cmd.Opcode)
		return c.respond(ctx, cmd.CID, nvmeof.StatusInvalidOpcode, 0)
	}
}

func (c *Connection) respond(ctx context.Context, cid uint16, status uint16, result uint32) error {
	cqe := nvmeof.Completion{Result: result, CID: cid, StatusRaw: status << 1}
	buf, err := cqe.MarshalBinary()
	if err != nil {
		return err
	}
	return c.queue.Endpoint.SendRsp(ctx, buf)
}

// respondDNR is respond with the Do-Not-Retry bit set, for the rejections
// spec §4.3/§7 document as DNR (ConnectInvalidHost, ConnectInvalidParam,
// InvalidField on a malformed Property Set).
func (c *Connection) respondDNR(ctx context.Context, cid uint16, status uint16, result uint32) error {
	cqe := nvmeof.Completion{Result: result, CID: cid, StatusRaw: (status << 1) | 0x4000}
	buf, err := cqe.MarshalBinary()
	if err != nil {
		return err
	}
	return c.queue.Endpoint.SendRsp(ctx, buf)
}
