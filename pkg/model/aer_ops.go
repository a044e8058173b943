package model

// ParkAER records a pending Async Event Request for a host connection. A
// second AER from the same host replaces the parked one (the previous
// endpoint is simply dropped, mirroring the one-pending-per-host wire rule).
func (m *Manager) ParkAER(hostNQN string, endpoint AEREndpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aerRequests[hostNQN] = &AerRequest{HostNQN: hostNQN, Endpoint: endpoint}
}

// TakeAER removes and returns the parked AER for a host, if any.
func (m *Manager) TakeAER(hostNQN string) (*AerRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.aerRequests[hostNQN]
	if ok {
		delete(m.aerRequests, hostNQN)
	}
	return req, ok
}

// PendingAERCount reports how many hosts currently have a parked AER.
func (m *Manager) PendingAERCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aerRequests)
}
