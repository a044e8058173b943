package model

import "testing"

func TestLogPageAttachAndLifecycle(t *testing.T) {
	m := NewManager()
	if _, err := m.AddTarget("T1", MgmtInBand, 1, Interface{}); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if _, err := m.AddSubsystem("T1", "nqn.x", AccessAllowAny); err != nil {
		t.Fatalf("AddSubsystem: %v", err)
	}

	key := LogPageKey{Portid: 1, Traddr: "10.0.0.1", Trsvcid: 4420, TrType: TrTypeTCP, AdrFam: AdrFamIPv4}
	lp, err := m.AddLogPage("T1", key, "nqn.x")
	if err != nil {
		t.Fatalf("AddLogPage: %v", err)
	}
	if lp.Subsys == NoID {
		t.Fatalf("expected logpage attached to subsystem")
	}
	if lp.State != LogPageNew {
		t.Fatalf("expected LogPageNew, got %v", lp.State)
	}

	m.SetLogPageState(lp.ID, LogPageValid)

	pages, err := m.TargetLogPages("T1")
	if err != nil {
		t.Fatalf("TargetLogPages: %v", err)
	}
	if len(pages) != 1 || pages[0].State != LogPageValid {
		t.Fatalf("expected one valid logpage, got %+v", pages)
	}

	m.DeleteLogPage(lp.ID)
	pages, err = m.TargetLogPages("T1")
	if err != nil {
		t.Fatalf("TargetLogPages: %v", err)
	}
	if len(pages) != 0 {
		t.Fatalf("expected no logpages after delete, got %d", len(pages))
	}
}

func TestLogPageUnattachedWhenSubnqnUnknown(t *testing.T) {
	m := NewManager()
	if _, err := m.AddTarget("T1", MgmtInBand, 1, Interface{}); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	key := LogPageKey{Portid: 1, Traddr: "10.0.0.1", Trsvcid: 4420, TrType: TrTypeTCP, AdrFam: AdrFamIPv4}
	lp, err := m.AddLogPage("T1", key, "nqn.unknown")
	if err != nil {
		t.Fatalf("AddLogPage: %v", err)
	}
	if lp.Subsys != NoID {
		t.Fatalf("expected unattached logpage, got subsys %v", lp.Subsys)
	}
}
