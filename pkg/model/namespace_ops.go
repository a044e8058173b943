package model

// SetNamespace creates or updates a Namespace's device mapping within a
// Subsystem, keyed by NSID.
func (m *Manager) SetNamespace(target, subnqn string, nsid, deviceID, devNsid int) (*Namespace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.findSubsysLocked(target, subnqn)
	if err != nil {
		return nil, err
	}
	if nsid <= 0 {
		return nil, invalid("Namespace", "nsid must be positive")
	}

	if id, ok := m.namespaceKey[s.ID][nsid]; ok {
		ns := m.namespaces[id]
		ns.DeviceID = deviceID
		ns.DevNSID = devNsid
		return ns, nil
	}

	ns := &Namespace{
		ID:       m.ids.alloc(),
		NSID:     nsid,
		DeviceID: deviceID,
		DevNSID:  devNsid,
	}
	m.namespaces[ns.ID] = ns
	m.namespaceOwner[ns.ID] = s.ID
	m.namespaceKey[s.ID][nsid] = ns.ID
	s.Namespaces = append(s.Namespaces, ns.ID)

	m.publishNamespaceChangeLocked(target, s)
	return ns, nil
}

// DeleteNamespace removes a Namespace from its Subsystem.
func (m *Manager) DeleteNamespace(target, subnqn string, nsid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.findSubsysLocked(target, subnqn)
	if err != nil {
		return err
	}
	id, ok := m.namespaceKey[s.ID][nsid]
	if !ok {
		return notFound("Namespace", subnqn)
	}
	s.Namespaces = removeID(s.Namespaces, id)
	delete(m.namespaceKey[s.ID], nsid)
	delete(m.namespaceOwner, id)
	delete(m.namespaces, id)

	m.publishNamespaceChangeLocked(target, s)
	return nil
}

// publishNamespaceChangeLocked notifies every host that can currently see s
// that its namespace set changed. Caller holds m.mu.
func (m *Manager) publishNamespaceChangeLocked(target string, s *Subsystem) {
	t, err := m.findTargetLocked(target)
	if err != nil {
		return
	}
	m.publish(AenSubsystemChanged, m.visibleHostNQNsLocked(t, s))
}
