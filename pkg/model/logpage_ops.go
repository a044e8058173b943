package model

// The LogPage cache is populated exclusively by the aggregator (C7): it is
// re-derived from periodic Get Log Page fetches and never persisted. The
// Manager only owns the storage arena so discovery-controller filtering
// (pkg/discoveryctrl) and the REST usage endpoint can read it consistently.

// AddLogPage creates a new cached log-page entry for target, attaching it to
// the Subsystem identified by subnqn if the target owns one with that SubNQN,
// or leaving it unattached (subnqn unknown to the model) otherwise.
func (m *Manager) AddLogPage(targetAlias string, key LogPageKey, subnqn string) (*LogPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, err := m.findTargetLocked(targetAlias)
	if err != nil {
		return nil, err
	}

	lp := &LogPage{
		ID:      m.ids.alloc(),
		Target:  t.ID,
		Portid:  key.Portid,
		Traddr:  key.Traddr,
		Trsvcid: key.Trsvcid,
		TrType:  key.TrType,
		AdrFam:  key.AdrFam,
		SubNQN:  subnqn,
		State:   LogPageNew,
	}
	m.logpages[lp.ID] = lp

	if sid, ok := m.subsystemByKey[t.ID][subnqn]; ok {
		lp.Subsys = sid
		s := m.subsystems[sid]
		s.LogPages = append(s.LogPages, lp.ID)
	} else {
		t.LogPages = append(t.LogPages, lp.ID)
	}
	return lp, nil
}

// SetLogPageState transitions a cached entry's lifecycle state.
func (m *Manager) SetLogPageState(id ID, state LogPageState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lp, ok := m.logpages[id]; ok {
		lp.State = state
	}
}

// DeleteLogPage removes a cached entry from storage and from its owning
// Subsystem or Target list.
func (m *Manager) DeleteLogPage(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lp, ok := m.logpages[id]
	if !ok {
		return
	}
	if lp.Subsys != NoID {
		if s, ok := m.subsystems[lp.Subsys]; ok {
			s.LogPages = removeID(s.LogPages, id)
		}
	} else if t, ok := m.targets[lp.Target]; ok {
		t.LogPages = removeID(t.LogPages, id)
	}
	delete(m.logpages, id)
}

// TargetLogPages returns every cached entry currently owned by target,
// attached or not, for the aggregator's refresh-cycle diff.
func (m *Manager) TargetLogPages(targetAlias string) ([]*LogPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, err := m.findTargetLocked(targetAlias)
	if err != nil {
		return nil, err
	}
	out := make([]*LogPage, 0, len(t.LogPages))
	for _, id := range t.LogPages {
		out = append(out, m.logpages[id])
	}
	for _, sid := range t.Subsystems {
		s := m.subsystems[sid]
		for _, id := range s.LogPages {
			out = append(out, m.logpages[id])
		}
	}
	return out, nil
}
