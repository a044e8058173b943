package model

// AddGroup creates a new, empty Group.
func (m *Manager) AddGroup(name string) (*Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return nil, invalid("Group", "name required")
	}
	if _, ok := m.groupName[name]; ok {
		return nil, exists("Group", name)
	}
	g := &Group{ID: m.ids.alloc(), Name: name}
	m.groups[g.ID] = g
	m.groupName[name] = g.ID
	return g, nil
}

// RenameGroup changes a Group's name, rewriting the name index.
func (m *Manager) RenameGroup(oldName, newName string) (*Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if newName == "" {
		return nil, invalid("Group", "name required")
	}
	g, err := m.findGroupLocked(oldName)
	if err != nil {
		return nil, err
	}
	if oldName == newName {
		return g, nil
	}
	if _, ok := m.groupName[newName]; ok {
		return nil, exists("Group", newName)
	}
	delete(m.groupName, oldName)
	g.Name = newName
	m.groupName[newName] = g.ID
	return g, nil
}

// DeleteGroup removes a Group. Host and Target membership elsewhere is
// unaffected; only the Group node itself and its membership lists go away.
func (m *Manager) DeleteGroup(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.findGroupLocked(name)
	if err != nil {
		return err
	}
	affected := m.hostNQNsLocked(g.Hosts)
	delete(m.groups, g.ID)
	delete(m.groupName, g.Name)
	m.publish(AenGroupChanged, affected)
	return nil
}

// LinkGroupHost adds a Host to a Group, granting it indirect shared-group
// visibility into every restricted Subsystem of the Group's Targets.
func (m *Manager) LinkGroupHost(group, hostAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.findGroupLocked(group)
	if err != nil {
		return err
	}
	h, err := m.findHostLocked(hostAlias)
	if err != nil {
		return err
	}
	if containsID(g.Hosts, h.ID) {
		return exists("Host", hostAlias+" in Group "+group)
	}
	g.Hosts = append(g.Hosts, h.ID)
	m.publish(AenGroupChanged, []string{h.HostNQN})
	return nil
}

// UnlinkGroupHost removes a Host from a Group.
func (m *Manager) UnlinkGroupHost(group, hostAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.findGroupLocked(group)
	if err != nil {
		return err
	}
	h, err := m.findHostLocked(hostAlias)
	if err != nil {
		return err
	}
	if !containsID(g.Hosts, h.ID) {
		return notFound("Host", hostAlias+" in Group "+group)
	}
	g.Hosts = removeID(g.Hosts, h.ID)
	m.publish(AenGroupChanged, []string{h.HostNQN})
	return nil
}

// LinkGroupTarget adds a Target to a Group.
func (m *Manager) LinkGroupTarget(group, targetAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.findGroupLocked(group)
	if err != nil {
		return err
	}
	t, err := m.findTargetLocked(targetAlias)
	if err != nil {
		return err
	}
	if containsID(g.Targets, t.ID) {
		return exists("Target", targetAlias+" in Group "+group)
	}
	g.Targets = append(g.Targets, t.ID)
	m.publish(AenGroupChanged, m.hostNQNsLocked(g.Hosts))
	return nil
}

// UnlinkGroupTarget removes a Target from a Group.
func (m *Manager) UnlinkGroupTarget(group, targetAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.findGroupLocked(group)
	if err != nil {
		return err
	}
	t, err := m.findTargetLocked(targetAlias)
	if err != nil {
		return err
	}
	if !containsID(g.Targets, t.ID) {
		return notFound("Target", targetAlias+" in Group "+group)
	}
	g.Targets = removeID(g.Targets, t.ID)
	m.publish(AenGroupChanged, m.hostNQNsLocked(g.Hosts))
	return nil
}
