package model

import "sort"

// Views resolve a node's ID-keyed relationships to the alias strings the
// REST surface (pkg/restapi) and CLI (cmd/dem-cli) present, without
// exposing arena IDs outside this package.

// GroupView is a read-only projection of a Group with alias-resolved
// membership.
type GroupView struct {
	Name    string
	Hosts   []string
	Targets []string
}

// GroupByName returns a GroupView for name.
func (m *Manager) GroupByName(name string) (GroupView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, err := m.findGroupLocked(name)
	if err != nil {
		return GroupView{}, err
	}
	return GroupView{
		Name:    g.Name,
		Hosts:   m.hostAliasesLocked(g.Hosts),
		Targets: m.targetAliasesLocked(g.Targets),
	}, nil
}

// ListGroupViews returns every Group as a GroupView, sorted by name.
func (m *Manager) ListGroupViews() []GroupView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	groups := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupView{
			Name:    g.Name,
			Hosts:   m.hostAliasesLocked(g.Hosts),
			Targets: m.targetAliasesLocked(g.Targets),
		})
	}
	return out
}

// SubsystemView is a read-only projection of a Subsystem with alias-resolved
// ACL membership and its Namespace list.
type SubsystemView struct {
	SubNQN       string
	AllowAnyHost bool
	Hosts        []string
	Namespaces   []Namespace
}

// SubsystemByName returns a SubsystemView of subnqn on target.
func (m *Manager) SubsystemByName(target, subnqn string) (SubsystemView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.findTargetLocked(target)
	if err != nil {
		return SubsystemView{}, err
	}
	sid, ok := m.subsystemByKey[t.ID][subnqn]
	if !ok {
		return SubsystemView{}, notFound("Subsystem", subnqn+" in Target "+target)
	}
	s := m.subsystems[sid]
	return m.subsystemViewLocked(s), nil
}

// TargetSubsystemViews returns every Subsystem of target as a SubsystemView.
func (m *Manager) TargetSubsystemViews(target string) ([]SubsystemView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	out := make([]SubsystemView, 0, len(t.Subsystems))
	for _, sid := range t.Subsystems {
		out = append(out, m.subsystemViewLocked(m.subsystems[sid]))
	}
	return out, nil
}

func (m *Manager) subsystemViewLocked(s *Subsystem) SubsystemView {
	ns := make([]Namespace, 0, len(s.Namespaces))
	for _, nid := range s.Namespaces {
		ns = append(ns, *m.namespaces[nid])
	}
	return SubsystemView{
		SubNQN:       s.SubNQN,
		AllowAnyHost: s.Access == AccessAllowAny,
		Hosts:        m.hostAliasesLocked(s.Hosts),
		Namespaces:   ns,
	}
}
