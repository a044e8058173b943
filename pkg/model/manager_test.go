package model

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager()
}

func TestTargetUniqueness(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)

	_, err = m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.Error(t, err)
	var merr *Error
	require.True(t, errors.As(err, &merr))
	require.Equal(t, ErrExists, merr.Kind)
}

func TestPortidAndSubnqnUniquePerTarget(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)
	_, err = m.AddTarget("T2", MgmtLocal, 0, Interface{})
	require.NoError(t, err)

	_, err = m.SetPortid("T1", 1, TrTypeTCP, AdrFamIPv4, "10.0.0.1", 4420)
	require.NoError(t, err)
	// Same portid number on a different target is fine.
	_, err = m.SetPortid("T2", 1, TrTypeTCP, AdrFamIPv4, "10.0.0.2", 4420)
	require.NoError(t, err)

	_, err = m.AddSubsystem("T1", "nqn.x", AccessAllowAny)
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.x", AccessAllowAny)
	require.Error(t, err)
	// Same subnqn on a different target is fine.
	_, err = m.AddSubsystem("T2", "nqn.x", AccessAllowAny)
	require.NoError(t, err)
}

func TestNamespaceUniquePerSubsystem(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.x", AccessAllowAny)
	require.NoError(t, err)

	_, err = m.SetNamespace("T1", "nqn.x", 1, 0, 0)
	require.NoError(t, err)
	// A second SetNamespace with the same nsid updates in place, not an error.
	_, err = m.SetNamespace("T1", "nqn.x", 1, 5, 5)
	require.NoError(t, err)
	ns, err := m.FindNS("T1", "nqn.x", 1)
	require.NoError(t, err)
	require.Equal(t, 5, ns.DeviceID)
}

func TestHostAndGroupUniqueness(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddHost("H1", "nqn.host1")
	require.NoError(t, err)
	_, err = m.AddHost("H1", "nqn.host2")
	require.Error(t, err)
	_, err = m.AddHost("H2", "nqn.host1")
	require.Error(t, err)

	_, err = m.AddGroup("G1")
	require.NoError(t, err)
	_, err = m.AddGroup("G1")
	require.Error(t, err)
}

func TestCascadeDeleteTarget(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)
	_, err = m.SetPortid("T1", 1, TrTypeTCP, AdrFamIPv4, "10.0.0.1", 4420)
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.x", AccessAllowAny)
	require.NoError(t, err)
	_, err = m.AddGroup("G1")
	require.NoError(t, err)
	require.NoError(t, m.LinkGroupTarget("G1", "T1"))

	require.NoError(t, m.DeleteTarget("T1"))

	_, err = m.FindTarget("T1")
	require.Error(t, err)
	_, err = m.FindSubsys("T1", "nqn.x")
	require.Error(t, err)
	_, err = m.FindPortid("T1", 1)
	require.Error(t, err)
	g, err := m.FindGroup("G1")
	require.NoError(t, err)
	require.Empty(t, g.Targets)
}

func TestCascadeDeleteHost(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.x", AccessRestricted)
	require.NoError(t, err)
	_, err = m.AddHost("H1", "nqn.h1")
	require.NoError(t, err)
	require.NoError(t, m.LinkHost("T1", "nqn.x", "H1"))
	_, err = m.AddGroup("G1")
	require.NoError(t, err)
	require.NoError(t, m.LinkGroupHost("G1", "H1"))

	require.NoError(t, m.DeleteHost("H1"))

	s, err := m.FindSubsys("T1", "nqn.x")
	require.NoError(t, err)
	require.Empty(t, s.Hosts)
	g, err := m.FindGroup("G1")
	require.NoError(t, err)
	require.Empty(t, g.Hosts)
}

func TestIdempotentLinkHost(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.x", AccessRestricted)
	require.NoError(t, err)
	_, err = m.AddHost("H1", "nqn.h1")
	require.NoError(t, err)

	require.NoError(t, m.LinkHost("T1", "nqn.x", "H1"))
	err = m.LinkHost("T1", "nqn.x", "H1")
	require.Error(t, err)

	require.NoError(t, m.UnlinkHost("T1", "nqn.x", "H1"))
	require.NoError(t, m.LinkHost("T1", "nqn.x", "H1"))

	s, err := m.FindSubsys("T1", "nqn.x")
	require.NoError(t, err)
	require.Len(t, s.Hosts, 1)
}

func TestFilterCorrectness(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.restricted", AccessRestricted)
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.open", AccessAllowAny)
	require.NoError(t, err)
	_, err = m.AddHost("H1", "nqn.h1")
	require.NoError(t, err)
	_, err = m.AddHost("H2", "nqn.h2")
	require.NoError(t, err)

	// H1 is ACL'd directly; H2 gets in via a shared group.
	require.NoError(t, m.LinkHost("T1", "nqn.restricted", "H1"))
	_, err = m.AddGroup("G1")
	require.NoError(t, err)
	require.NoError(t, m.LinkGroupHost("G1", "H2"))
	require.NoError(t, m.LinkGroupTarget("G1", "T1"))

	visH1, err := m.VisibleSubsystems("T1", "nqn.h1")
	require.NoError(t, err)
	require.Len(t, visH1, 2) // restricted (ACL) + open (allow-any)

	visH2, err := m.VisibleSubsystems("T1", "nqn.h2")
	require.NoError(t, err)
	require.Len(t, visH2, 2) // restricted (shared group) + open (allow-any)

	_, err = m.AddHost("H3", "nqn.h3")
	require.NoError(t, err)
	visH3, err := m.VisibleSubsystems("T1", "nqn.h3")
	require.NoError(t, err)
	require.Len(t, visH3, 1) // only allow-any
}

func TestRoundTripPersistence(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtOutOfBand, 5, Interface{Type: TrTypeTCP, Family: AdrFamIPv4, Address: "10.0.0.9", TrsvcID: 8009})
	require.NoError(t, err)
	_, err = m.SetPortid("T1", 1, TrTypeTCP, AdrFamIPv4, "10.0.0.1", 4420)
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.x", AccessRestricted)
	require.NoError(t, err)
	_, err = m.AddHost("H1", "nqn.h1")
	require.NoError(t, err)
	require.NoError(t, m.LinkHost("T1", "nqn.x", "H1"))
	_, err = m.SetNamespace("T1", "nqn.x", 1, 2, 3)
	require.NoError(t, err)
	_, err = m.AddGroup("G1")
	require.NoError(t, err)
	require.NoError(t, m.LinkGroupTarget("G1", "T1"))
	require.NoError(t, m.LinkGroupHost("G1", "H1"))

	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	require.NoError(t, m.Save(path))

	m2 := NewManager()
	require.NoError(t, m2.Load(path))

	path2 := filepath.Join(dir, "store2.json")
	require.NoError(t, m2.Save(path2))

	data1, err := os.ReadFile(path)
	require.NoError(t, err)
	data2, err := os.ReadFile(path2)
	require.NoError(t, err)

	var r1, r2 persistedRoot
	require.NoError(t, json.Unmarshal(data1, &r1))
	require.NoError(t, json.Unmarshal(data2, &r2))
	require.ElementsMatch(t, r1.Targets, r2.Targets)
	require.ElementsMatch(t, r1.Hosts, r2.Hosts)
	require.ElementsMatch(t, r1.Groups, r2.Groups)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.Load(filepath.Join(t.TempDir(), "absent.json")))
}

func TestRenameCascade(t *testing.T) {
	m := newTestManager(t)
	_, err := m.AddTarget("T1", MgmtLocal, 0, Interface{})
	require.NoError(t, err)
	_, err = m.AddSubsystem("T1", "nqn.x", AccessRestricted)
	require.NoError(t, err)
	_, err = m.AddHost("H1", "nqn.h1")
	require.NoError(t, err)
	require.NoError(t, m.LinkHost("T1", "nqn.x", "H1"))
	_, err = m.AddGroup("G1")
	require.NoError(t, err)
	require.NoError(t, m.LinkGroupHost("G1", "H1"))

	_, err = m.RenameHost("H1", "H2")
	require.NoError(t, err)

	s, err := m.FindSubsys("T1", "nqn.x")
	require.NoError(t, err)
	h2, err := m.FindHost("H2")
	require.NoError(t, err)
	require.True(t, containsID(s.Hosts, h2.ID))

	g, err := m.FindGroup("G1")
	require.NoError(t, err)
	require.True(t, containsID(g.Hosts, h2.ID))

	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	require.NoError(t, m.Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "H2")
	require.NotContains(t, string(data), "\"H1\"")
}
