package discoveryctrl

import (
	"testing"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
)

func TestBuildDiscLogFederatesAcrossTargets(t *testing.T) {
	mgr := model.NewManager()
	if _, err := mgr.AddTarget("T1", model.MgmtLocal, 0, model.Interface{}); err != nil {
		t.Fatalf("AddTarget T1: %v", err)
	}
	if _, err := mgr.AddTarget("T2", model.MgmtLocal, 0, model.Interface{}); err != nil {
		t.Fatalf("AddTarget T2: %v", err)
	}
	if _, err := mgr.SetPortid("T1", 1, model.TrTypeTCP, model.AdrFamIPv4, "10.0.0.1", 4420); err != nil {
		t.Fatalf("SetPortid T1: %v", err)
	}
	if _, err := mgr.SetPortid("T2", 1, model.TrTypeTCP, model.AdrFamIPv4, "10.0.0.2", 4420); err != nil {
		t.Fatalf("SetPortid T2: %v", err)
	}
	if _, err := mgr.AddSubsystem("T1", "nqn.t1", model.AccessAllowAny); err != nil {
		t.Fatalf("AddSubsystem T1: %v", err)
	}
	if _, err := mgr.AddSubsystem("T2", "nqn.t2", model.AccessAllowAny); err != nil {
		t.Fatalf("AddSubsystem T2: %v", err)
	}

	entries, err := buildDiscLog(mgr, "nqn.host1")
	if err != nil {
		t.Fatalf("buildDiscLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected entries from both targets, got %d: %+v", len(entries), entries)
	}
	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.SubNQN] = true
	}
	if !seen["nqn.t1"] || !seen["nqn.t2"] {
		t.Fatalf("expected both targets' subsystems in the federated page, got %+v", seen)
	}
}

func TestBuildDiscLogFiltersByACLAcrossTargets(t *testing.T) {
	mgr := model.NewManager()
	if _, err := mgr.AddTarget("T1", model.MgmtLocal, 0, model.Interface{}); err != nil {
		t.Fatalf("AddTarget T1: %v", err)
	}
	if _, err := mgr.AddTarget("T2", model.MgmtLocal, 0, model.Interface{}); err != nil {
		t.Fatalf("AddTarget T2: %v", err)
	}
	if _, err := mgr.SetPortid("T1", 1, model.TrTypeTCP, model.AdrFamIPv4, "10.0.0.1", 4420); err != nil {
		t.Fatalf("SetPortid T1: %v", err)
	}
	if _, err := mgr.SetPortid("T2", 1, model.TrTypeTCP, model.AdrFamIPv4, "10.0.0.2", 4420); err != nil {
		t.Fatalf("SetPortid T2: %v", err)
	}
	if _, err := mgr.AddSubsystem("T1", "nqn.open", model.AccessAllowAny); err != nil {
		t.Fatalf("AddSubsystem T1: %v", err)
	}
	if _, err := mgr.AddSubsystem("T2", "nqn.restricted", model.AccessRestricted); err != nil {
		t.Fatalf("AddSubsystem T2: %v", err)
	}

	entries, err := buildDiscLog(mgr, "nqn.host1")
	if err != nil {
		t.Fatalf("buildDiscLog: %v", err)
	}
	if len(entries) != 1 || entries[0].SubNQN != "nqn.open" {
		t.Fatalf("expected only the open subsystem to be visible, got %+v", entries)
	}

	if _, err := mgr.AddHost("H1", "nqn.host1"); err != nil {
		t.Fatalf("AddHost: %v", err)
	}
	if err := mgr.LinkHost("T2", "nqn.restricted", "H1"); err != nil {
		t.Fatalf("LinkHost: %v", err)
	}

	entries, err = buildDiscLog(mgr, "nqn.host1")
	if err != nil {
		t.Fatalf("buildDiscLog after ACL link: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both subsystems visible after ACL link, got %+v", entries)
	}
}

func TestBuildDiscLogAggregatorSeesEverything(t *testing.T) {
	mgr := model.NewManager()
	if _, err := mgr.AddTarget("T1", model.MgmtLocal, 0, model.Interface{}); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if _, err := mgr.SetPortid("T1", 1, model.TrTypeTCP, model.AdrFamIPv4, "10.0.0.1", 4420); err != nil {
		t.Fatalf("SetPortid: %v", err)
	}
	if _, err := mgr.AddSubsystem("T1", "nqn.restricted", model.AccessRestricted); err != nil {
		t.Fatalf("AddSubsystem: %v", err)
	}

	entries, err := buildDiscLog(mgr, nvmeof.AggregatorHostNQN)
	if err != nil {
		t.Fatalf("buildDiscLog: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected aggregator to see restricted subsystem, got %+v", entries)
	}
}
