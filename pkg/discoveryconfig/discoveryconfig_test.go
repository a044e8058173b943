package discoveryconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvme-dem/nvme-dem/pkg/model"
)

func writeConf(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadParsesInterfaces(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "01-rdma.conf", "# rdma listener\ntype=rdma\nfamily=ipv4\naddress=\"192.168.1.1\"\ntrsvcid=4420\n")
	writeConf(t, dir, "02-tcp.conf", "type=tcp\nfamily=ipv4\naddress=0.0.0.0\ntrsvcid=8009\n")
	writeConf(t, dir, "readme.txt", "not a conf file")

	listeners, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, listeners, 2)

	require.Equal(t, model.TrTypeRDMA, listeners[0].Type)
	require.Equal(t, "192.168.1.1", listeners[0].Address)
	require.EqualValues(t, 4420, listeners[0].Trsvcid)

	require.Equal(t, model.TrTypeTCP, listeners[1].Type)
	require.EqualValues(t, 8009, listeners[1].Trsvcid)
}

func TestLoadRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "bad.conf", "family=ipv4\n")

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoadRejectsBadTrsvcid(t *testing.T) {
	dir := t.TempDir()
	writeConf(t, dir, "bad.conf", "type=tcp\naddress=0.0.0.0\ntrsvcid=notanumber\n")

	_, err := Load(dir)
	require.Error(t, err)
}
