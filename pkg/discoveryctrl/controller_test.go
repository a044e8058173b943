package discoveryctrl

import (
	"context"
	"testing"
	"time"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
	"github.com/nvme-dem/nvme-dem/pkg/transport/rdma"
)

func TestControllerServesDiscoverySession(t *testing.T) {
	mgr := model.NewManager()
	if _, err := mgr.AddTarget("T1", model.MgmtLocal, 0, model.Interface{}); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if _, err := mgr.SetPortid("T1", 1, model.TrTypeRDMA, model.AdrFamIPv4, "10.0.0.1", 4420); err != nil {
		t.Fatalf("SetPortid: %v", err)
	}
	if _, err := mgr.AddSubsystem("T1", "nqn.x", model.AccessAllowAny); err != nil {
		t.Fatalf("AddSubsystem: %v", err)
	}

	tp := rdma.New()
	ctl := New(mgr, Transports{model.TrTypeRDMA: tp})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		ctl.Serve(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond) // let the listener bind

	ep, err := tp.ClientConnect(ctx, "10.0.0.1:4420", tp.BuildConnectData("nqn.host1"))
	if err != nil {
		t.Fatalf("ClientConnect: %v", err)
	}
	q := nvmeof.NewQueue(ep)

	if err := nvmeof.SendFabricConnect(ctx, q, "nqn.host1"); err != nil {
		t.Fatalf("SendFabricConnect: %v", err)
	}
	if err := nvmeof.SendPropertySet(ctx, q, nvmeof.PropertyCC, nvmeof.CCEnable); err != nil {
		t.Fatalf("SendPropertySet(enable): %v", err)
	}

	entries, err := nvmeof.SendGetLogPage(ctx, q)
	if err != nil {
		t.Fatalf("SendGetLogPage: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 visible subsystem, got %d", len(entries))
	}
	if entries[0].SubNQN != "nqn.x" {
		t.Fatalf("unexpected subnqn %q", entries[0].SubNQN)
	}

	cancel()
	<-done
	_ = transport.ErrTryAgain
}
