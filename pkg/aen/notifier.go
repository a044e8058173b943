// Package aen implements the Asynchronous Event Notification dispatcher
// (C8): it owns no state of its own beyond an event queue, consuming
// AenEvents published by model mutations and firing completions on the
// pending AER parked for each affected host (spec §9, message-passing AENs
// in place of the original's direct-from-mutator-thread walk).
package aen

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
	"github.com/nvme-dem/nvme-dem/pkg/model"
)

// NoticeLogPageChange is the AER completion result the wire protocol uses
// to tell a host its discovery log page changed (spec §8, scenario 4).
const NoticeLogPageChange uint32 = 0x04

// Notifier consumes model.AenEvents on a bounded channel and fires the
// matching completions. Install it on a Manager with mgr.SetPublisher(n)
// before starting Run.
type Notifier struct {
	mgr    *model.Manager
	events chan model.AenEvent
}

// New returns a Notifier bound to mgr. Call mgr.SetPublisher(n) separately
// so construction order stays explicit at the call site.
func New(mgr *model.Manager) *Notifier {
	return &Notifier{
		mgr:    mgr,
		events: make(chan model.AenEvent, 256),
	}
}

// Publish implements model.Publisher. It never blocks the caller: a full
// queue drops the event and logs, since a dropped AEN is recovered by the
// host's next poll and the model itself is unaffected (spec §7).
func (n *Notifier) Publish(e model.AenEvent) {
	select {
	case n.events <- e:
	default:
		klog.Warningf("aen: event queue full, dropping notification for %d hosts", len(e.Hosts))
	}
}

// Run drains the event queue until ctx is cancelled. It is meant to run in
// its own goroutine for the lifetime of the daemon.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-n.events:
			n.deliver(e)
		}
	}
}

func (n *Notifier) deliver(e model.AenEvent) {
	for _, hostNQN := range e.Hosts {
		req, ok := n.mgr.TakeAER(hostNQN)
		if !ok {
			continue
		}
		if err := req.Endpoint.SendAENCompletion(NoticeLogPageChange); err != nil {
			klog.Warningf("aen: completion to %s failed: %v", req.Endpoint, err)
			continue
		}
		metrics.RecordAEN()
		klog.V(4).Infof("aen: %s notified (%s)", hostNQN, e.Kind)
	}
}

// Pending reports how many hosts currently have a parked AER.
func (n *Notifier) Pending() int {
	return n.mgr.PendingAERCount()
}
