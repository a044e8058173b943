package model

// AddHost creates a new Host. Alias and HostNQN must each be unique.
func (m *Manager) AddHost(alias, hostNQN string) (*Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alias == "" || hostNQN == "" {
		return nil, invalid("Host", "alias and hostnqn required")
	}
	if _, ok := m.hostAlias[alias]; ok {
		return nil, exists("Host", alias)
	}
	if _, ok := m.hostByNQN[hostNQN]; ok {
		return nil, exists("Host", hostNQN)
	}

	h := &Host{
		ID:      m.ids.alloc(),
		Alias:   alias,
		HostNQN: hostNQN,
	}
	m.hosts[h.ID] = h
	m.hostAlias[alias] = h.ID
	m.hostByNQN[hostNQN] = h.ID
	return h, nil
}

// RenameHost changes a Host's alias, rewriting the alias index.
func (m *Manager) RenameHost(oldAlias, newAlias string) (*Host, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if newAlias == "" {
		return nil, invalid("Host", "alias required")
	}
	h, err := m.findHostLocked(oldAlias)
	if err != nil {
		return nil, err
	}
	if oldAlias == newAlias {
		return h, nil
	}
	if _, ok := m.hostAlias[newAlias]; ok {
		return nil, exists("Host", newAlias)
	}
	delete(m.hostAlias, oldAlias)
	h.Alias = newAlias
	m.hostAlias[newAlias] = h.ID
	return h, nil
}

// DeleteHost removes a Host and cascades: it is struck from every
// Subsystem's ACL, every Group's host list, and any parked AER is dropped.
func (m *Manager) DeleteHost(alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, err := m.findHostLocked(alias)
	if err != nil {
		return err
	}

	for _, s := range m.subsystems {
		s.Hosts = removeID(s.Hosts, h.ID)
	}
	for _, g := range m.groups {
		g.Hosts = removeID(g.Hosts, h.ID)
	}
	delete(m.aerRequests, h.HostNQN)

	delete(m.hosts, h.ID)
	delete(m.hostAlias, h.Alias)
	delete(m.hostByNQN, h.HostNQN)
	return nil
}
