package propagate

import (
	"context"
	"testing"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	calls []Change
}

func (r *recordingDispatcher) Dispatch(_ context.Context, c Change) error {
	r.calls = append(r.calls, c)
	return nil
}

func TestRouterDispatchesByMgmtMode(t *testing.T) {
	mgr := model.NewManager()
	_, err := mgr.AddTarget("local1", model.MgmtLocal, 0, model.Interface{})
	require.NoError(t, err)
	_, err = mgr.AddTarget("ib1", model.MgmtInBand, 0, model.Interface{})
	require.NoError(t, err)
	_, err = mgr.AddTarget("oob1", model.MgmtOutOfBand, 0, model.Interface{})
	require.NoError(t, err)

	local := &recordingDispatcher{}
	inband := &recordingDispatcher{}
	oob := &recordingDispatcher{}
	r := NewRouter(mgr, local, inband, oob)

	require.NoError(t, r.Dispatch(context.Background(), Change{Target: "local1", Op: OpAddSubsystem}))
	require.NoError(t, r.Dispatch(context.Background(), Change{Target: "ib1", Op: OpAddSubsystem}))
	require.NoError(t, r.Dispatch(context.Background(), Change{Target: "oob1", Op: OpAddSubsystem}))

	require.Len(t, local.calls, 1)
	require.Len(t, inband.calls, 1)
	require.Len(t, oob.calls, 1)
}

func TestRouterUnknownTarget(t *testing.T) {
	mgr := model.NewManager()
	r := NewRouter(mgr, &recordingDispatcher{}, &recordingDispatcher{}, &recordingDispatcher{})
	err := r.Dispatch(context.Background(), Change{Target: "nope", Op: OpAddSubsystem})
	require.Error(t, err)
}

func TestLocalDispatchAlwaysSucceeds(t *testing.T) {
	l := NewLocal()
	err := l.Dispatch(context.Background(), Change{Target: "t1", Op: OpSetPortid})
	require.NoError(t, err)
}

func TestEncodeResourceConfigLongerThanHeader(t *testing.T) {
	c := Change{Portid: 3, NSID: 7, Subnqn: "nqn.test", Host: "nqn.host"}
	buf := encodeResourceConfig(c)
	require.Greater(t, len(buf), 12)
}
