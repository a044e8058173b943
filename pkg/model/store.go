package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
)

// The JSON file is the external contract of spec §6: top level
// {"Targets":[…], "Hosts":[…], "Groups":[…]}, with exact field casing below.
// Unknown keys are ignored on read (external contract; Go's json package
// already does this for free).

type persistedPortid struct {
	Portid  int    `json:"PORTID"`
	TrType  TrType `json:"TRTYPE"`
	AdrFam  AdrFam `json:"ADRFAM"`
	Traddr  string `json:"TRADDR"`
	Trsvcid uint16 `json:"TRSVCID"`
}

type persistedNSID struct {
	NSID       int `json:"NSID"`
	DeviceID   int `json:"DeviceID"`
	DeviceNSID int `json:"DeviceNSID"`
}

type persistedSubsystem struct {
	SUBNQN       string          `json:"SUBNQN"`
	AllowAnyHost bool            `json:"AllowAnyHost"`
	Hosts        []string        `json:"Hosts"`
	NSIDs        []persistedNSID `json:"NSIDs"`
}

type persistedNsDev struct {
	DeviceID int  `json:"DeviceID"`
	NSID     int  `json:"NSID"`
	Valid    bool `json:"Valid"`
}

type persistedFabricIface struct {
	Type    TrType `json:"Type"`
	Family  AdrFam `json:"Family"`
	Address string `json:"Address"`
	Valid   bool   `json:"Valid"`
}

type persistedTarget struct {
	Alias      string                 `json:"Alias"`
	MgmtMode   MgmtMode               `json:"MgmtMode"`
	Refresh    int                    `json:"Refresh"`
	Interface  Interface              `json:"Interface"`
	PortIDs    []persistedPortid      `json:"PortIDs"`
	Subsystems []persistedSubsystem   `json:"Subsystems"`
	NSDevices  []persistedNsDev       `json:"NSDevices"`
	Interfaces []persistedFabricIface `json:"Interfaces"`
}

type persistedHost struct {
	Alias   string `json:"Alias"`
	HOSTNQN string `json:"HOSTNQN"`
}

type persistedGroup struct {
	Name    string   `json:"Name"`
	Targets []string `json:"Targets"`
	Hosts   []string `json:"Hosts"`
}

type persistedRoot struct {
	Targets []persistedTarget `json:"Targets"`
	Hosts   []persistedHost   `json:"Hosts"`
	Groups  []persistedGroup  `json:"Groups"`
}

// Save serialises the model to path, replacing the previous contents
// atomically (write to a temp file in the same directory, then rename).
// A failed Save is logged and returned to the caller but never rolls the
// in-memory model back (spec §7, PersistenceError).
func (m *Manager) Save(path string) error {
	start := time.Now()
	err := m.save(path)
	metrics.RecordStoreWrite(time.Since(start), err)
	if err != nil {
		klog.Errorf("model: persist %s failed: %v", path, err)
	}
	return err
}

func (m *Manager) save(path string) error {
	m.mu.RLock()
	root := m.snapshotLocked()
	m.mu.RUnlock()

	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp store file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp store file: %w", err)
	}
	return nil
}

func (m *Manager) snapshotLocked() persistedRoot {
	root := persistedRoot{
		Targets: make([]persistedTarget, 0, len(m.targets)),
		Hosts:   make([]persistedHost, 0, len(m.hosts)),
		Groups:  make([]persistedGroup, 0, len(m.groups)),
	}
	for _, t := range m.targets {
		pt := persistedTarget{
			Alias:     t.Alias,
			MgmtMode:  t.MgmtMode,
			Refresh:   t.Refresh,
			Interface: t.Interface,
		}
		for _, pid := range t.Portids {
			p := m.portids[pid]
			pt.PortIDs = append(pt.PortIDs, persistedPortid{
				Portid: p.Portid, TrType: p.TrType, AdrFam: p.AdrFam,
				Traddr: p.Traddr, Trsvcid: p.Trsvcid,
			})
		}
		for _, sid := range t.Subsystems {
			s := m.subsystems[sid]
			ps := persistedSubsystem{
				SUBNQN:       s.SubNQN,
				AllowAnyHost: s.Access == AccessAllowAny,
				Hosts:        m.hostAliasesLocked(s.Hosts),
			}
			for _, nid := range s.Namespaces {
				ns := m.namespaces[nid]
				ps.NSIDs = append(ps.NSIDs, persistedNSID{
					NSID: ns.NSID, DeviceID: ns.DeviceID, DeviceNSID: ns.DevNSID,
				})
			}
			pt.Subsystems = append(pt.Subsystems, ps)
		}
		for _, d := range t.NsDevices {
			pt.NSDevices = append(pt.NSDevices, persistedNsDev{
				DeviceID: d.DeviceID, NSID: d.NSID, Valid: d.Valid,
			})
		}
		for _, f := range t.Interfaces {
			pt.Interfaces = append(pt.Interfaces, persistedFabricIface{
				Type: f.Type, Family: f.Family, Address: f.Address, Valid: f.Valid,
			})
		}
		root.Targets = append(root.Targets, pt)
	}
	for _, h := range m.hosts {
		root.Hosts = append(root.Hosts, persistedHost{Alias: h.Alias, HOSTNQN: h.HostNQN})
	}
	for _, g := range m.groups {
		root.Groups = append(root.Groups, persistedGroup{
			Name:    g.Name,
			Targets: m.targetAliasesLocked(g.Targets),
			Hosts:   m.hostAliasesLocked(g.Hosts),
		})
	}
	return root
}

func (m *Manager) hostAliasesLocked(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if h, ok := m.hosts[id]; ok {
			out = append(out, h.Alias)
		}
	}
	return out
}

func (m *Manager) targetAliasesLocked(ids []ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.targets[id]; ok {
			out = append(out, t.Alias)
		}
	}
	return out
}

// Load reads path and replaces m's entire contents. It is intended for
// startup only: callers must not share m with other goroutines until Load
// returns. Entity order in the file does not affect the resulting model
// (spec §8, round-trip persistence is order-independent).
func (m *Manager) Load(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}

	var root persistedRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("invalid json syntax: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()

	for _, ph := range root.Hosts {
		if _, err := m.addHostLocked(ph.Alias, ph.HOSTNQN); err != nil {
			return err
		}
	}
	for _, pt := range root.Targets {
		t, err := m.addTargetLocked(pt.Alias, pt.MgmtMode, pt.Refresh, pt.Interface)
		if err != nil {
			return err
		}
		for _, pp := range pt.PortIDs {
			if _, err := m.setPortidLocked(t, pp.Portid, pp.TrType, pp.AdrFam, pp.Traddr, pp.Trsvcid); err != nil {
				return err
			}
		}
		for _, ps := range pt.Subsystems {
			access := AccessRestricted
			if ps.AllowAnyHost {
				access = AccessAllowAny
			}
			s, err := m.addSubsystemLocked(t, ps.SUBNQN, access)
			if err != nil {
				return err
			}
			for _, alias := range ps.Hosts {
				h, ok := m.hosts[m.hostAlias[alias]]
				if !ok {
					continue
				}
				s.Hosts = append(s.Hosts, h.ID)
			}
			for _, pn := range ps.NSIDs {
				if _, err := m.setNamespaceLocked(s, pn.NSID, pn.DeviceID, pn.DeviceNSID); err != nil {
					return err
				}
			}
		}
		for _, d := range pt.NSDevices {
			t.NsDevices = append(t.NsDevices, NsDev{DeviceID: d.DeviceID, NSID: d.NSID, Valid: d.Valid})
		}
		for _, f := range pt.Interfaces {
			t.Interfaces = append(t.Interfaces, FabricIface{Type: f.Type, Family: f.Family, Address: f.Address, Valid: f.Valid})
		}
	}
	for _, pg := range root.Groups {
		g, err := m.addGroupLocked(pg.Name)
		if err != nil {
			return err
		}
		for _, alias := range pg.Hosts {
			if id, ok := m.hostAlias[alias]; ok {
				g.Hosts = append(g.Hosts, id)
			}
		}
		for _, alias := range pg.Targets {
			if id, ok := m.targetByAlias[alias]; ok {
				g.Targets = append(g.Targets, id)
			}
		}
	}
	return nil
}

// The addXLocked/setXLocked helpers below duplicate the validation-free
// core of their exported Add*/Set* counterparts for Load's exclusive use:
// Load already holds m.mu and must not fire AenEvents while reconstructing
// a snapshot that was, by definition, already observed by every host.

func (m *Manager) addHostLocked(alias, hostNQN string) (*Host, error) {
	if _, ok := m.hostAlias[alias]; ok {
		return nil, exists("Host", alias)
	}
	h := &Host{ID: m.ids.alloc(), Alias: alias, HostNQN: hostNQN}
	m.hosts[h.ID] = h
	m.hostAlias[alias] = h.ID
	m.hostByNQN[hostNQN] = h.ID
	return h, nil
}

func (m *Manager) addTargetLocked(alias string, mode MgmtMode, refresh int, iface Interface) (*Target, error) {
	if _, ok := m.targetByAlias[alias]; ok {
		return nil, exists("Target", alias)
	}
	t := &Target{ID: m.ids.alloc(), Alias: alias, MgmtMode: mode, Refresh: refresh, Interface: iface}
	m.targets[t.ID] = t
	m.targetByAlias[alias] = t.ID
	m.subsystemByKey[t.ID] = make(map[string]ID)
	m.portidKey[t.ID] = make(map[int]ID)
	return t, nil
}

func (m *Manager) setPortidLocked(t *Target, portid int, trtype TrType, adrfam AdrFam, traddr string, trsvcid uint16) (*Portid, error) {
	p := &Portid{ID: m.ids.alloc(), Portid: portid, TrType: trtype, AdrFam: adrfam, Traddr: traddr, Trsvcid: trsvcid}
	m.portids[p.ID] = p
	m.portidOwner[p.ID] = t.ID
	m.portidKey[t.ID][portid] = p.ID
	t.Portids = append(t.Portids, p.ID)
	return p, nil
}

func (m *Manager) addSubsystemLocked(t *Target, subnqn string, access Access) (*Subsystem, error) {
	if _, ok := m.subsystemByKey[t.ID][subnqn]; ok {
		return nil, exists("Subsystem", subnqn+" in Target "+t.Alias)
	}
	s := &Subsystem{ID: m.ids.alloc(), SubNQN: subnqn, Access: access}
	m.subsystems[s.ID] = s
	m.subsysOwner[s.ID] = t.ID
	m.subsystemByKey[t.ID][subnqn] = s.ID
	m.namespaceKey[s.ID] = make(map[int]ID)
	t.Subsystems = append(t.Subsystems, s.ID)
	return s, nil
}

func (m *Manager) setNamespaceLocked(s *Subsystem, nsid, deviceID, devNsid int) (*Namespace, error) {
	ns := &Namespace{ID: m.ids.alloc(), NSID: nsid, DeviceID: deviceID, DevNSID: devNsid}
	m.namespaces[ns.ID] = ns
	m.namespaceOwner[ns.ID] = s.ID
	m.namespaceKey[s.ID][nsid] = ns.ID
	s.Namespaces = append(s.Namespaces, ns.ID)
	return ns, nil
}

func (m *Manager) addGroupLocked(name string) (*Group, error) {
	if _, ok := m.groupName[name]; ok {
		return nil, exists("Group", name)
	}
	g := &Group{ID: m.ids.alloc(), Name: name}
	m.groups[g.ID] = g
	m.groupName[name] = g.ID
	return g, nil
}

// resetLocked clears every registry so Load can rebuild from scratch.
// Caller holds m.mu.
func (m *Manager) resetLocked() {
	m.ids = newIDAllocator()
	m.targets = make(map[ID]*Target)
	m.targetByAlias = make(map[string]ID)
	m.subsystems = make(map[ID]*Subsystem)
	m.subsystemByKey = make(map[ID]map[string]ID)
	m.subsysOwner = make(map[ID]ID)
	m.portids = make(map[ID]*Portid)
	m.portidKey = make(map[ID]map[int]ID)
	m.portidOwner = make(map[ID]ID)
	m.namespaces = make(map[ID]*Namespace)
	m.namespaceKey = make(map[ID]map[int]ID)
	m.namespaceOwner = make(map[ID]ID)
	m.hosts = make(map[ID]*Host)
	m.hostAlias = make(map[string]ID)
	m.hostByNQN = make(map[string]ID)
	m.groups = make(map[ID]*Group)
	m.groupName = make(map[string]ID)
	m.logpages = make(map[ID]*LogPage)
	m.aerRequests = make(map[string]*AerRequest)
}
