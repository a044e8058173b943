package model

// SetPortid creates or reconfigures a Target's Portid. Per spec §9, setting
// an existing portid unlinks it from the target's live Portids slice,
// rewrites its fields in place, and relinks it, rather than allocating a new
// ID — callers holding the *Portid see the new field values, since it is the
// same struct.
func (m *Manager) SetPortid(target string, portid int, trtype TrType, adrfam AdrFam, traddr string, trsvcid uint16) (*Portid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(target)
	if err != nil {
		return nil, err
	}
	if portid <= 0 {
		return nil, invalid("Portid", "portid must be positive")
	}

	if id, ok := m.portidKey[t.ID][portid]; ok {
		t.Portids = removeID(t.Portids, id)
		p := m.portids[id]
		p.TrType = trtype
		p.AdrFam = adrfam
		p.Traddr = traddr
		p.Trsvcid = trsvcid
		t.Portids = append(t.Portids, id)
		return p, nil
	}

	p := &Portid{
		ID:      m.ids.alloc(),
		Portid:  portid,
		TrType:  trtype,
		AdrFam:  adrfam,
		Traddr:  traddr,
		Trsvcid: trsvcid,
	}
	m.portids[p.ID] = p
	m.portidOwner[p.ID] = t.ID
	m.portidKey[t.ID][portid] = p.ID
	t.Portids = append(t.Portids, p.ID)
	return p, nil
}

// PortidByID resolves a Portid directly by its arena ID, for callers (such
// as the discovery controller's listener bring-up) that only hold the ID
// from a Target's Portids slice.
func (m *Manager) PortidByID(id ID) (*Portid, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.portids[id]
	return p, ok
}

// DeletePortid removes a Portid from its Target.
func (m *Manager) DeletePortid(target string, portid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(target)
	if err != nil {
		return err
	}
	id, ok := m.portidKey[t.ID][portid]
	if !ok {
		return notFound("Portid", target)
	}
	t.Portids = removeID(t.Portids, id)
	delete(m.portidKey[t.ID], portid)
	delete(m.portidOwner, id)
	delete(m.portids, id)
	return nil
}
