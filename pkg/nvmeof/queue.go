package nvmeof

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// Queue wraps a transport.Endpoint with the per-connection state C2 tracks:
// the next command ID and whether the target rejected a keep-alive Connect
// (spec §4.2, "flags the queue failed_kato").
type Queue struct {
	Endpoint   transport.Endpoint
	HostNQN    string
	SubNQN     string
	CntlID     uint16
	Connected  bool
	FailedKato bool

	cid uint32
}

// NewQueue wraps an already-connected transport.Endpoint.
func NewQueue(ep transport.Endpoint) *Queue {
	return &Queue{Endpoint: ep}
}

func (q *Queue) nextCID() uint16 {
	return uint16(atomic.AddUint32(&q.cid, 1))
}

// sendCommand marshals cmd, sends it, and waits for the matching
// completion, polling until transport.MsgTimeout has elapsed since
// PollForMsg may report "try again".
func (q *Queue) sendCommand(ctx context.Context, cmd Command) (Completion, error) {
	buf, err := cmd.MarshalBinary()
	if err != nil {
		return Completion{}, err
	}
	if err := q.Endpoint.SendMsg(ctx, buf); err != nil {
		return Completion{}, fmt.Errorf("nvmeof: send command: %w", err)
	}
	return q.processResponse(ctx, cmd.CID)
}

// processResponse implements process_nvme_rsp: wait bounded for a
// completion matching cid, repost the receive slot, and return it.
func (q *Queue) processResponse(ctx context.Context, cid uint16) (Completion, error) {
	deadline := time.Now().Add(transport.MsgTimeout)
	for time.Now().Before(deadline) {
		_, body, err := q.Endpoint.PollForMsg(ctx)
		if err == transport.ErrTryAgain {
			continue
		}
		if err != nil {
			return Completion{}, fmt.Errorf("nvmeof: poll: %w", err)
		}
		var cqe Completion
		if err := cqe.UnmarshalBinary(body); err != nil {
			return Completion{}, err
		}
		if err := q.Endpoint.RepostRecv(ctx); err != nil {
			return Completion{}, fmt.Errorf("nvmeof: repost recv: %w", err)
		}
		if cqe.CID != cid {
			// Stale completion for a retired command; keep waiting.
			continue
		}
		return cqe, nil
	}
	return Completion{}, transport.ErrTimeout
}
