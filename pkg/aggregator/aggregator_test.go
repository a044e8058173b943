package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nvme-dem/nvme-dem/pkg/discoveryctrl"
	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
	"github.com/nvme-dem/nvme-dem/pkg/transport/rdma"
)

func TestAggregatorPopulatesLogPages(t *testing.T) {
	mgr := model.NewManager()
	_, err := mgr.AddTarget("T1", model.MgmtLocal, 1, model.Interface{})
	require.NoError(t, err)
	_, err = mgr.SetPortid("T1", 1, model.TrTypeRDMA, model.AdrFamIPv4, "10.0.1.1", 4420)
	require.NoError(t, err)
	_, err = mgr.AddSubsystem("T1", "nqn.agg-test", model.AccessAllowAny)
	require.NoError(t, err)

	tp := rdma.New()
	transports := map[model.TrType]transport.Transport{model.TrTypeRDMA: tp}
	ctl := discoveryctrl.New(mgr, discoveryctrl.Transports(transports))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		ctl.Serve(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	agg := New(mgr, transports)
	agg.refreshTarget(ctx, "T1")

	pages, err := mgr.TargetLogPages("T1")
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Equal(t, "nqn.agg-test", pages[0].SubNQN)
	require.Equal(t, model.LogPageValid, pages[0].State)

	cancel()
	<-done
}

func TestSchedulerRespectsRefreshInterval(t *testing.T) {
	mgr := model.NewManager()
	_, err := mgr.AddTarget("T1", model.MgmtLocal, 60, model.Interface{})
	require.NoError(t, err)

	agg := New(mgr, map[model.TrType]transport.Transport{})
	now := time.Now()
	agg.runDue(context.Background(), now)
	agg.mu.Lock()
	due := agg.due["T1"]
	agg.mu.Unlock()
	require.True(t, due.After(now))

	agg.runDue(context.Background(), now.Add(time.Second))
	agg.mu.Lock()
	stillDue := agg.due["T1"]
	agg.mu.Unlock()
	require.Equal(t, due, stillDue, "target polled again before its refresh interval elapsed")
}
