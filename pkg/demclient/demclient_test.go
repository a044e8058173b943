package demclient_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvme-dem/nvme-dem/pkg/demclient"
	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/propagate"
	"github.com/nvme-dem/nvme-dem/pkg/restapi"
)

func newTestServer(t *testing.T) (*httptest.Server, *demclient.Client) {
	t.Helper()
	mgr := model.NewManager()
	local := propagate.NewLocal()
	router := propagate.NewRouter(mgr, local, local, local)
	sig := restapi.NewSignatureStore("")
	srv := restapi.NewServer(mgr, router, sig, "", nil, nil)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, demclient.New(ts.URL, "")
}

func TestTargetLifecycle(t *testing.T) {
	_, cl := newTestServer(t)
	ctx := context.Background()

	tgt, err := cl.CreateTarget(ctx, demclient.Target{Alias: "t1", MgmtMode: "outofband", Refresh: 5})
	require.NoError(t, err)
	require.Equal(t, "t1", tgt.Alias)

	got, err := cl.GetTarget(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, "outofband", got.MgmtMode)

	list, err := cl.ListTargets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, cl.DeleteTarget(ctx, "t1"))
	_, err = cl.GetTarget(ctx, "t1")
	require.Error(t, err)
}

func TestSubsystemAndNamespace(t *testing.T) {
	_, cl := newTestServer(t)
	ctx := context.Background()

	_, err := cl.CreateTarget(ctx, demclient.Target{Alias: "t1", MgmtMode: "local"})
	require.NoError(t, err)

	sub, err := cl.SetSubsystem(ctx, "t1", demclient.Subsystem{SubNQN: "nqn.test", AllowAnyHost: true})
	require.NoError(t, err)
	require.True(t, sub.AllowAnyHost)

	_, err = cl.SetNamespace(ctx, "t1", "nqn.test", demclient.Namespace{NSID: 1, DevID: 10, DevNSID: 1})
	require.NoError(t, err)

	require.NoError(t, cl.DeleteNamespace(ctx, "t1", "nqn.test", 1))
	require.NoError(t, cl.DeleteSubsystem(ctx, "t1", "nqn.test"))
}

func TestHostAndGroup(t *testing.T) {
	_, cl := newTestServer(t)
	ctx := context.Background()

	h, err := cl.CreateHost(ctx, demclient.Host{Alias: "h1", HostNQN: "nqn.host1"})
	require.NoError(t, err)
	require.Equal(t, "h1", h.Alias)

	g, err := cl.CreateGroup(ctx, "g1")
	require.NoError(t, err)
	require.Equal(t, "g1", g.Name)

	require.NoError(t, cl.LinkGroupHost(ctx, "g1", "h1"))
	got, err := cl.GetGroup(ctx, "g1")
	require.NoError(t, err)
	require.Contains(t, got.Hosts, "h1")

	require.NoError(t, cl.UnlinkGroupHost(ctx, "g1", "h1"))
	require.NoError(t, cl.DeleteGroup(ctx, "g1"))
	require.NoError(t, cl.DeleteHost(ctx, "h1"))
}

func TestAuthMismatch(t *testing.T) {
	mgr := model.NewManager()
	local := propagate.NewLocal()
	router := propagate.NewRouter(mgr, local, local, local)
	sig := restapi.NewSignatureStore("secret")
	srv := restapi.NewServer(mgr, router, sig, "", nil, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	cl := demclient.New(ts.URL, "wrong")
	_, err := cl.ListTargets(context.Background())
	require.Error(t, err)

	var apiErr *demclient.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 403, apiErr.Status)
}
