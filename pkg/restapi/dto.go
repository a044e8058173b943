package restapi

import "github.com/nvme-dem/nvme-dem/pkg/model"

// Request/response bodies, field names as enumerated in spec §4.5.

type interfaceDTO struct {
	Type    string `json:"type,omitempty"`
	Family  string `json:"family,omitempty"`
	Address string `json:"address,omitempty"`
	Trsvcid uint16 `json:"trsvcid,omitempty"`
}

func (d interfaceDTO) toModel() model.Interface {
	return model.Interface{
		Type:    model.TrType(d.Type),
		Family:  model.AdrFam(d.Family),
		Address: d.Address,
		TrsvcID: d.Trsvcid,
	}
}

func fromModelInterface(i model.Interface) interfaceDTO {
	return interfaceDTO{
		Type:    string(i.Type),
		Family:  string(i.Family),
		Address: i.Address,
		Trsvcid: i.TrsvcID,
	}
}

type targetDTO struct {
	Alias     string       `json:"alias"`
	MgmtMode  string       `json:"mgmt_mode,omitempty"`
	Refresh   int          `json:"refresh,omitempty"`
	Interface interfaceDTO `json:"interface,omitempty"`
	Connected bool         `json:"connected,omitempty"`
}

func fromModelTarget(t *model.Target) targetDTO {
	return targetDTO{
		Alias:     t.Alias,
		MgmtMode:  string(t.MgmtMode),
		Refresh:   t.Refresh,
		Interface: fromModelInterface(t.Interface),
		Connected: t.Connected,
	}
}

type portidDTO struct {
	Portid  int    `json:"portid"`
	Type    string `json:"type"`
	Family  string `json:"family"`
	Address string `json:"address"`
	Trsvcid uint16 `json:"trsvcid"`
}

type subsystemDTO struct {
	SubNQN       string   `json:"subnqn"`
	AllowAnyHost bool     `json:"allow_any_host"`
	Hosts        []string `json:"hosts,omitempty"`
}

func fromSubsystemView(v model.SubsystemView) subsystemDTO {
	return subsystemDTO{SubNQN: v.SubNQN, AllowAnyHost: v.AllowAnyHost, Hosts: v.Hosts}
}

type namespaceDTO struct {
	NSID    int `json:"nsid"`
	DevID   int `json:"devid"`
	DevNSID int `json:"devnsid"`
}

type hostDTO struct {
	Alias   string `json:"alias"`
	HostNQN string `json:"hostnqn"`
}

func fromModelHost(h *model.Host) hostDTO {
	return hostDTO{Alias: h.Alias, HostNQN: h.HostNQN}
}

type groupDTO struct {
	Name    string   `json:"name"`
	Targets []string `json:"targets,omitempty"`
	Hosts   []string `json:"hosts,omitempty"`
}

func fromGroupView(v model.GroupView) groupDTO {
	return groupDTO{Name: v.Name, Targets: v.Targets, Hosts: v.Hosts}
}

type hostLinkDTO struct {
	HostNQN string `json:"hostnqn"`
}

type signatureDTO struct {
	Old string `json:"old"`
	New string `json:"new"`
}
