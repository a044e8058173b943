package model

import "testing"

type recordingPublisher struct {
	events []AenEvent
}

func (p *recordingPublisher) Publish(e AenEvent) {
	p.events = append(p.events, e)
}

func TestAENFiresOnVisibilityChange(t *testing.T) {
	m := NewManager()
	pub := &recordingPublisher{}
	m.SetPublisher(pub)

	if _, err := m.AddTarget("T1", MgmtLocal, 0, Interface{}); err != nil {
		t.Fatalf("AddTarget: %v", err)
	}
	if _, err := m.AddHost("H1", "nqn.h1"); err != nil {
		t.Fatalf("AddHost: %v", err)
	}
	if _, err := m.AddSubsystem("T1", "nqn.x", AccessRestricted); err != nil {
		t.Fatalf("AddSubsystem: %v", err)
	}

	pub.events = nil
	if err := m.LinkHost("T1", "nqn.x", "H1"); err != nil {
		t.Fatalf("LinkHost: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one AenEvent, got %d", len(pub.events))
	}
	if pub.events[0].Kind != AenHostLinkChanged {
		t.Fatalf("expected AenHostLinkChanged, got %v", pub.events[0].Kind)
	}
	if len(pub.events[0].Hosts) != 1 || pub.events[0].Hosts[0] != "nqn.h1" {
		t.Fatalf("expected affected host nqn.h1, got %v", pub.events[0].Hosts)
	}
}

func TestPendingAERLifecycle(t *testing.T) {
	m := NewManager()
	ep := &fakeEndpoint{}
	m.ParkAER("nqn.h1", ep)
	if m.PendingAERCount() != 1 {
		t.Fatalf("expected 1 pending AER")
	}
	req, ok := m.TakeAER("nqn.h1")
	if !ok {
		t.Fatalf("expected pending AER")
	}
	if req.Endpoint != ep {
		t.Fatalf("endpoint mismatch")
	}
	if m.PendingAERCount() != 0 {
		t.Fatalf("expected 0 pending AER after take")
	}
	if _, ok := m.TakeAER("nqn.h1"); ok {
		t.Fatalf("expected no pending AER on second take")
	}
}

type fakeEndpoint struct {
	completed uint32
	called    bool
}

func (f *fakeEndpoint) SendAENCompletion(result uint32) error {
	f.completed = result
	f.called = true
	return nil
}

func (f *fakeEndpoint) String() string { return "fake-endpoint" }
