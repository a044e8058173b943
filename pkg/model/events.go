package model

// AenEventKind names the class of mutation that triggered an AenEvent.
type AenEventKind string

const (
	AenSubsystemChanged AenEventKind = "subsystem_changed"
	AenTargetChanged    AenEventKind = "target_changed"
	AenHostLinkChanged  AenEventKind = "host_link_changed"
	AenGroupChanged     AenEventKind = "group_changed"
)

// AenEvent is published by a model mutation for every host whose visible
// discovery log-page set may have changed. pkg/aen consumes these; pkg/model
// never touches a host's connection directly (spec §9, message-passing AENs).
type AenEvent struct {
	Hosts []string // HostNQNs
	Kind  AenEventKind
}

// Publisher receives AenEvents emitted by model mutations. Dependency is
// inverted here (pkg/aen implements Publisher and is injected into the
// Manager) so pkg/model never imports pkg/aen.
type Publisher interface {
	Publish(AenEvent)
}

type noopPublisher struct{}

func (noopPublisher) Publish(AenEvent) {}

// SetPublisher installs the AEN event sink. Safe to call once at startup,
// before the manager is shared with other goroutines.
func (m *Manager) SetPublisher(p Publisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

func (m *Manager) publish(kind AenEventKind, hosts []string) {
	m.genCtr++
	if len(hosts) == 0 {
		return
	}
	m.publisher.Publish(AenEvent{Hosts: hosts, Kind: kind})
}

// GenCtr returns the current discovery log-page generation counter: the
// number of visibility-affecting mutations published so far. Two Get Log
// Page fetches made against an unchanged model observe the same value,
// which is what the two-phase fetch's disagreement check relies on.
func (m *Manager) GenCtr() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.genCtr
}
