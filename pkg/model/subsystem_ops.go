package model

// AddSubsystem creates a Subsystem under a Target. SubNQN is unique within
// the Target, not globally.
func (m *Manager) AddSubsystem(target, subnqn string, access Access) (*Subsystem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	if subnqn == "" {
		return nil, invalid("Subsystem", "subnqn required")
	}
	if _, ok := m.subsystemByKey[t.ID][subnqn]; ok {
		return nil, exists("Subsystem", subnqn+" in Target "+target)
	}

	s := &Subsystem{
		ID:     m.ids.alloc(),
		SubNQN: subnqn,
		Access: access,
	}
	m.subsystems[s.ID] = s
	m.subsysOwner[s.ID] = t.ID
	m.subsystemByKey[t.ID][subnqn] = s.ID
	m.namespaceKey[s.ID] = make(map[int]ID)
	t.Subsystems = append(t.Subsystems, s.ID)

	m.publish(AenSubsystemChanged, m.visibleHostNQNsLocked(t, s))
	return s, nil
}

// SetSubsysAccess changes the Access rule for a Subsystem and notifies every
// host whose visibility changes as a result (the union of old and new sets).
func (m *Manager) SetSubsysAccess(target, subnqn string, access Access) (*Subsystem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	s, err := m.findSubsysLocked(target, subnqn)
	if err != nil {
		return nil, err
	}
	before := m.visibleHostNQNsLocked(t, s)
	s.Access = access
	after := m.visibleHostNQNsLocked(t, s)
	m.publish(AenSubsystemChanged, unionStrings(before, after))
	return s, nil
}

// DeleteSubsystem removes a Subsystem and its Namespaces.
func (m *Manager) DeleteSubsystem(target, subnqn string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(target)
	if err != nil {
		return err
	}
	s, err := m.findSubsysLocked(target, subnqn)
	if err != nil {
		return err
	}
	affected := m.visibleHostNQNsLocked(t, s)
	m.deleteSubsysLocked(t, s)
	m.publish(AenSubsystemChanged, affected)
	return nil
}

// deleteSubsysLocked removes s's Namespaces and unlinks it from its Target.
// Caller holds m.mu.
func (m *Manager) deleteSubsysLocked(t *Target, s *Subsystem) {
	for _, nsid := range s.Namespaces {
		delete(m.namespaces, nsid)
	}
	delete(m.namespaceKey, s.ID)
	delete(m.namespaceOwner, s.ID)
	for _, lid := range s.LogPages {
		delete(m.logpages, lid)
	}
	delete(m.subsystemByKey[t.ID], s.SubNQN)
	delete(m.subsysOwner, s.ID)
	delete(m.subsystems, s.ID)
	t.Subsystems = removeID(t.Subsystems, s.ID)
}

// LinkHost adds a Host to a restricted Subsystem's ACL.
func (m *Manager) LinkHost(target, subnqn, hostAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.findTargetLocked(target); err != nil {
		return err
	}
	s, err := m.findSubsysLocked(target, subnqn)
	if err != nil {
		return err
	}
	h, err := m.findHostLocked(hostAlias)
	if err != nil {
		return err
	}
	if containsID(s.Hosts, h.ID) {
		return exists("Host", hostAlias+" on Subsystem "+subnqn)
	}
	s.Hosts = append(s.Hosts, h.ID)
	m.publish(AenHostLinkChanged, []string{h.HostNQN})
	return nil
}

// UnlinkHost removes a Host from a Subsystem's ACL.
func (m *Manager) UnlinkHost(target, subnqn, hostAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.findTargetLocked(target); err != nil {
		return err
	}
	s, err := m.findSubsysLocked(target, subnqn)
	if err != nil {
		return err
	}
	h, err := m.findHostLocked(hostAlias)
	if err != nil {
		return err
	}
	if !containsID(s.Hosts, h.ID) {
		return notFound("Host", hostAlias+" on Subsystem "+subnqn)
	}
	s.Hosts = removeID(s.Hosts, h.ID)
	m.publish(AenHostLinkChanged, []string{h.HostNQN})
	return nil
}

// visibleHostNQNsLocked returns the HostNQNs that may currently see s's
// discovery log-page entry: every host when Access is AllowAny, otherwise
// the explicit ACL plus any host sharing a Group with the owning Target
// (spec §4.3's "indirect shared group" rule). Caller holds m.mu (R or W).
func (m *Manager) visibleHostNQNsLocked(t *Target, s *Subsystem) []string {
	if s.Access == AccessAllowAny {
		out := make([]string, 0, len(m.hosts))
		for _, h := range m.hosts {
			out = append(out, h.HostNQN)
		}
		return out
	}
	seen := make(map[ID]struct{}, len(s.Hosts))
	out := make([]string, 0, len(s.Hosts))
	for _, hid := range s.Hosts {
		if _, ok := seen[hid]; ok {
			continue
		}
		seen[hid] = struct{}{}
		if h, ok := m.hosts[hid]; ok {
			out = append(out, h.HostNQN)
		}
	}
	for _, g := range m.groups {
		if !containsID(g.Targets, t.ID) {
			continue
		}
		for _, hid := range g.Hosts {
			if _, ok := seen[hid]; ok {
				continue
			}
			seen[hid] = struct{}{}
			if h, ok := m.hosts[hid]; ok {
				out = append(out, h.HostNQN)
			}
		}
	}
	return out
}

// VisibleSubsystems returns, for a connected host, the Subsystems of target
// whose Get Log Page entry that host may see under the allow-any/ACL/
// indirect-shared-group rule (spec §4.3).
func (m *Manager) VisibleSubsystems(target string, hostNQN string) ([]*Subsystem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	h, hostKnown := m.hosts[m.hostByNQN[hostNQN]]

	var out []*Subsystem
	for _, sid := range t.Subsystems {
		s := m.subsystems[sid]
		if s.Access == AccessAllowAny {
			out = append(out, s)
			continue
		}
		if !hostKnown {
			continue
		}
		if containsID(s.Hosts, h.ID) {
			out = append(out, s)
			continue
		}
		if m.sharesGroupLocked(t.ID, h.ID) {
			out = append(out, s)
		}
	}
	return out, nil
}

// AllSubsystems returns every Subsystem of target regardless of Access or
// ACL, for internal administrative readers (the log-page aggregator) that
// are not subject to the per-host filter-correctness rule.
func (m *Manager) AllSubsystems(target string) ([]*Subsystem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	out := make([]*Subsystem, 0, len(t.Subsystems))
	for _, sid := range t.Subsystems {
		out = append(out, m.subsystems[sid])
	}
	return out, nil
}

func (m *Manager) sharesGroupLocked(targetID, hostID ID) bool {
	for _, g := range m.groups {
		if containsID(g.Targets, targetID) && containsID(g.Hosts, hostID) {
			return true
		}
	}
	return false
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
