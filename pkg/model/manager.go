// Package model implements the configuration model and in-memory store
// (C4): Targets, Subsystems, Portids, Namespaces, Hosts, Groups and their
// ACLs, guarded by a single reader/writer lock rather than the spinlock the
// original daemon used, so Get Log Page filtering reads don't serialize
// against the REST mutation path.
package model

import (
	"sort"
	"sync"
)

// Manager is the single in-memory owner of every Target/Subsystem/Portid/
// Namespace/Host/Group node, keyed by arena ID so entities never hold
// owning pointers to each other.
type Manager struct {
	mu sync.RWMutex

	ids *idAllocator

	targets       map[ID]*Target
	targetByAlias map[string]ID

	subsystems map[ID]*Subsystem
	// subsystemByKey[targetID][subnqn] -> subsystem ID; SubNQN is unique
	// only within the owning Target, not globally.
	subsystemByKey map[ID]map[string]ID
	subsysOwner    map[ID]ID // subsystem ID -> owning target ID

	portids    map[ID]*Portid
	portidKey  map[ID]map[int]ID // target ID -> portid number -> ID
	portidOwner map[ID]ID         // portid ID -> owning target ID

	namespaces    map[ID]*Namespace
	namespaceKey  map[ID]map[int]ID // subsystem ID -> NSID -> ID
	namespaceOwner map[ID]ID        // namespace ID -> owning subsystem ID

	hosts      map[ID]*Host
	hostAlias  map[string]ID
	hostByNQN  map[string]ID

	groups     map[ID]*Group
	groupName  map[string]ID

	logpages   map[ID]*LogPage

	aerRequests map[string]*AerRequest // keyed by HostNQN, one pending AER per host

	publisher Publisher
	genCtr    uint64 // bumped on every published mutation; discovery log-page GenCtr source
}

// NewManager returns an empty Manager ready for use.
func NewManager() *Manager {
	return &Manager{
		ids:            newIDAllocator(),
		targets:        make(map[ID]*Target),
		targetByAlias:  make(map[string]ID),
		subsystems:     make(map[ID]*Subsystem),
		subsystemByKey: make(map[ID]map[string]ID),
		subsysOwner:    make(map[ID]ID),
		portids:        make(map[ID]*Portid),
		portidKey:      make(map[ID]map[int]ID),
		portidOwner:    make(map[ID]ID),
		namespaces:     make(map[ID]*Namespace),
		namespaceKey:   make(map[ID]map[int]ID),
		namespaceOwner: make(map[ID]ID),
		hosts:          make(map[ID]*Host),
		hostAlias:      make(map[string]ID),
		hostByNQN:      make(map[string]ID),
		groups:         make(map[ID]*Group),
		groupName:      make(map[string]ID),
		logpages:       make(map[ID]*LogPage),
		aerRequests:    make(map[string]*AerRequest),
		publisher:      noopPublisher{},
	}
}

// FindTarget looks up a Target by alias.
func (m *Manager) FindTarget(alias string) (*Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findTargetLocked(alias)
}

func (m *Manager) findTargetLocked(alias string) (*Target, error) {
	id, ok := m.targetByAlias[alias]
	if !ok {
		return nil, notFound("Target", alias)
	}
	return m.targets[id], nil
}

// FindSubsys looks up a Subsystem by the alias of its owning Target and its SubNQN.
func (m *Manager) FindSubsys(target, subnqn string) (*Subsystem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findSubsysLocked(target, subnqn)
}

func (m *Manager) findSubsysLocked(target, subnqn string) (*Subsystem, error) {
	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	byKey, ok := m.subsystemByKey[t.ID]
	if !ok {
		return nil, notFound("Subsystem", subnqn+" in Target "+target)
	}
	id, ok := byKey[subnqn]
	if !ok {
		return nil, notFound("Subsystem", subnqn+" in Target "+target)
	}
	return m.subsystems[id], nil
}

// FindPortid looks up a Portid by the alias of its owning Target and portid number.
func (m *Manager) FindPortid(target string, portid int) (*Portid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	byKey, ok := m.portidKey[t.ID]
	if !ok {
		return nil, notFound("Portid", target)
	}
	id, ok := byKey[portid]
	if !ok {
		return nil, notFound("Portid", target)
	}
	return m.portids[id], nil
}

// FindNS looks up a Namespace within a Subsystem by NSID. target is the owning
// target alias; subnqn identifies the Subsystem within that Target.
func (m *Manager) FindNS(target, subnqn string, nsid int) (*Namespace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, err := m.findSubsysLocked(target, subnqn)
	if err != nil {
		return nil, err
	}
	byKey, ok := m.namespaceKey[s.ID]
	if !ok {
		return nil, notFound("Namespace", subnqn)
	}
	id, ok := byKey[nsid]
	if !ok {
		return nil, notFound("Namespace", subnqn)
	}
	return m.namespaces[id], nil
}

// FindGroup looks up a Group by name.
func (m *Manager) FindGroup(name string) (*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findGroupLocked(name)
}

func (m *Manager) findGroupLocked(name string) (*Group, error) {
	id, ok := m.groupName[name]
	if !ok {
		return nil, notFound("Group", name)
	}
	return m.groups[id], nil
}

// FindHost looks up a Host by alias.
func (m *Manager) FindHost(alias string) (*Host, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findHostLocked(alias)
}

func (m *Manager) findHostLocked(alias string) (*Host, error) {
	id, ok := m.hostAlias[alias]
	if !ok {
		return nil, notFound("Host", alias)
	}
	return m.hosts[id], nil
}

// ListTargets returns every Target ordered by alias.
func (m *Manager) ListTargets() []*Target {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Target, 0, len(m.targets))
	for _, t := range m.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// ListHosts returns every Host ordered by alias.
func (m *Manager) ListHosts() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Host, 0, len(m.hosts))
	for _, h := range m.hosts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// ListGroups returns every Group ordered by name.
func (m *Manager) ListGroups() []*Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// hostNQNsLocked resolves a set of Host IDs to their HostNQNs, skipping any
// stale reference (should not happen, but cheap to guard).
func (m *Manager) hostNQNsLocked(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if h, ok := m.hosts[id]; ok {
			out = append(out, h.HostNQN)
		}
	}
	return out
}

func removeID(ids []ID, id ID) []ID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []ID, id ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
