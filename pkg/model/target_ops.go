package model

// AddTarget creates a new Target. Alias must be unique.
func (m *Manager) AddTarget(alias string, mode MgmtMode, refresh int, iface Interface) (*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if alias == "" {
		return nil, invalid("Target", "alias required")
	}
	if _, ok := m.targetByAlias[alias]; ok {
		return nil, exists("Target", alias)
	}

	t := &Target{
		ID:        m.ids.alloc(),
		Alias:     alias,
		MgmtMode:  mode,
		Refresh:   refresh,
		Interface: iface,
	}
	m.targets[t.ID] = t
	m.targetByAlias[alias] = t.ID
	m.subsystemByKey[t.ID] = make(map[string]ID)
	m.portidKey[t.ID] = make(map[int]ID)
	return t, nil
}

// UpdateTarget replaces the mutable fields of a Target (refresh interval,
// management interface). MgmtMode changes go through SetMgmtMode since they
// affect the propagation dispatcher's routing.
func (m *Manager) UpdateTarget(alias string, refresh int, iface Interface) (*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(alias)
	if err != nil {
		return nil, err
	}
	t.Refresh = refresh
	t.Interface = iface
	return t, nil
}

// SetMgmtMode changes how the dispatcher reaches a Target.
func (m *Manager) SetMgmtMode(alias string, mode MgmtMode) (*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(alias)
	if err != nil {
		return nil, err
	}
	t.MgmtMode = mode
	return t, nil
}

// SetTargetConnected records the in-band discovery-queue connectivity state
// observed by the pseudo discovery controller (C3). It does not persist.
func (m *Manager) SetTargetConnected(alias string, connected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.findTargetLocked(alias)
	if err != nil {
		return err
	}
	t.Connected = connected
	return nil
}

// DeleteTarget removes a Target and cascades to its Portids, Subsystems (and
// their Namespaces), unattached LogPages, and its membership in any Group.
func (m *Manager) DeleteTarget(alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(alias)
	if err != nil {
		return err
	}

	for _, sid := range append([]ID(nil), t.Subsystems...) {
		m.deleteSubsysLocked(t, m.subsystems[sid])
	}
	for _, pid := range append([]ID(nil), t.Portids...) {
		delete(m.portids, pid)
	}
	delete(m.portidKey, t.ID)
	delete(m.portidOwner, t.ID)
	for _, lid := range t.LogPages {
		delete(m.logpages, lid)
	}
	delete(m.subsystemByKey, t.ID)

	for _, g := range m.groups {
		g.Targets = removeID(g.Targets, t.ID)
	}

	delete(m.targets, t.ID)
	delete(m.targetByAlias, t.Alias)
	return nil
}

// RenameTarget changes a Target's alias, rewriting the alias index. Group
// membership is unaffected since it is ID-keyed.
func (m *Manager) RenameTarget(oldAlias, newAlias string) (*Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if newAlias == "" {
		return nil, invalid("Target", "alias required")
	}
	t, err := m.findTargetLocked(oldAlias)
	if err != nil {
		return nil, err
	}
	if oldAlias == newAlias {
		return t, nil
	}
	if _, ok := m.targetByAlias[newAlias]; ok {
		return nil, exists("Target", newAlias)
	}
	delete(m.targetByAlias, oldAlias)
	t.Alias = newAlias
	m.targetByAlias[newAlias] = t.ID
	return t, nil
}

// SetTargetUsage records the devices and fabric interfaces a target has
// reported as available, replacing the previous snapshot.
func (m *Manager) SetTargetUsage(alias string, devices []NsDev, ifaces []FabricIface) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.findTargetLocked(alias)
	if err != nil {
		return err
	}
	t.NsDevices = devices
	t.Interfaces = ifaces
	return nil
}
