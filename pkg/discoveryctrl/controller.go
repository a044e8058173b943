package discoveryctrl

import (
	"context"
	"fmt"
	"sync"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// Transports maps a Portid's TrType to the transport.Transport implementation
// that serves it (pkg/transport/tcp, pkg/transport/rdma).
type Transports map[model.TrType]transport.Transport

// Controller is the pseudo discovery controller: it binds one listener per
// configured Portid (every target's own discovery service endpoint, plus
// any host-facing interfaces a target advertises) and serves every inbound
// host connection against the shared configuration model. The listener a
// connection arrived on only decides which physical address the host
// dialed; buildDiscLog answers every connection with the federated view
// across all targets, filtered by the host's NQN and ACLs (spec §1, §4.3).
type Controller struct {
	mgr        *model.Manager
	transports Transports

	mu        sync.Mutex
	listeners []transport.Listener
}

// New returns a Controller bound to mgr, ready to Serve.
func New(mgr *model.Manager, transports Transports) *Controller {
	return &Controller{mgr: mgr, transports: transports}
}

// Serve binds a listener for every Portid of every Target and accepts
// connections until ctx is cancelled. Each accepted connection runs its
// own goroutine via Connection.serve.
func (ctl *Controller) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, t := range ctl.mgr.ListTargets() {
		for _, pid := range t.Portids {
			p, ok := ctl.mgr.PortidByID(pid)
			if !ok {
				continue
			}
			tp, ok := ctl.transports[p.TrType]
			if !ok {
				klog.Warningf("discoveryctrl: no transport registered for %s (target %s)", p.TrType, t.Alias)
				continue
			}
			service := fmt.Sprintf("%s:%d", p.Traddr, p.Trsvcid)
			ln, err := tp.InitListener(service)
			if err != nil {
				klog.Errorf("discoveryctrl: listen %s for target %s: %v", service, t.Alias, err)
				continue
			}
			ctl.mu.Lock()
			ctl.listeners = append(ctl.listeners, ln)
			ctl.mu.Unlock()

			wg.Add(1)
			go func(target string, ln transport.Listener) {
				defer wg.Done()
				ctl.acceptLoop(ctx, target, ln)
			}(t.Alias, ln)
		}
	}
	<-ctx.Done()
	ctl.Close()
	wg.Wait()
	return ctx.Err()
}

func (ctl *Controller) acceptLoop(ctx context.Context, target string, ln transport.Listener) {
	for {
		tok, err := ln.WaitForConnection(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			klog.Warningf("discoveryctrl: accept on target %s: %v", target, err)
			continue
		}
		ep, err := tok.Accept(ctx, 32)
		if err != nil {
			klog.Warningf("discoveryctrl: complete accept on target %s: %v", target, err)
			continue
		}
		conn := newConnection(ep, ctl.mgr)
		go conn.serve(ctx)
	}
}

// Close tears down every bound listener.
func (ctl *Controller) Close() {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	for _, ln := range ctl.listeners {
		ln.Close()
	}
	ctl.listeners = nil
}
