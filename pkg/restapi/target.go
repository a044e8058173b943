package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/propagate"
)

func (s *Server) listTargets(w http.ResponseWriter, r *http.Request) {
	targets := s.mgr.ListTargets()
	out := make([]targetDTO, 0, len(targets))
	for _, t := range targets {
		out = append(out, fromModelTarget(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTarget(w http.ResponseWriter, r *http.Request) {
	var body targetDTO
	if !decodeBody(w, r, &body) {
		return
	}
	mode := model.MgmtMode(body.MgmtMode)
	if mode == "" {
		mode = model.MgmtOutOfBand
	}
	t, err := s.mgr.AddTarget(body.Alias, mode, body.Refresh, body.Interface.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist()
	writeJSON(w, http.StatusCreated, fromModelTarget(t))
}

func (s *Server) showTarget(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "target")
	t, err := s.mgr.FindTarget(alias)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromModelTarget(t))
}

type targetOpDTO struct {
	Op string `json:"op"`
}

// postTarget performs a Target-level action that isn't a field update —
// today just "reset", which re-dispatches the target's full configuration
// (spec §4.5 POST /target/{a}, mirroring the dem-cli "reset" verb).
func (s *Server) postTarget(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "target")
	var body targetOpDTO
	if !decodeBody(w, r, &body) {
		return
	}
	if _, err := s.mgr.FindTarget(alias); err != nil {
		writeError(w, err)
		return
	}
	switch body.Op {
	case "reset", "":
		s.afterMutation(r, propagate.Change{Target: alias, Op: propagate.OpResetConfig})
		writeOK(w)
	default:
		badRequest(w, "unknown op: "+body.Op)
	}
}

func (s *Server) updateTarget(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "target")
	var body targetDTO
	if !decodeBody(w, r, &body) {
		return
	}
	t, err := s.mgr.UpdateTarget(alias, body.Refresh, body.Interface.toModel())
	if err != nil {
		writeError(w, err)
		return
	}
	if body.MgmtMode != "" {
		t, err = s.mgr.SetMgmtMode(alias, model.MgmtMode(body.MgmtMode))
		if err != nil {
			writeError(w, err)
			return
		}
	}
	s.persist()
	writeJSON(w, http.StatusOK, fromModelTarget(t))
}

func (s *Server) renameTarget(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "target")
	var body targetDTO
	if !decodeBody(w, r, &body) {
		return
	}
	t, err := s.mgr.RenameTarget(alias, body.Alias)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist()
	writeJSON(w, http.StatusOK, fromModelTarget(t))
}

func (s *Server) deleteTarget(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "target")
	if err := s.mgr.DeleteTarget(alias); err != nil {
		writeError(w, err)
		return
	}
	s.persist()
	writeOK(w)
}

type usageDTO struct {
	Devices    []model.NsDev      `json:"devices,omitempty"`
	Interfaces []model.FabricIface `json:"interfaces,omitempty"`
}

// targetUsage reports the devices/interfaces a target last self-reported as
// available, used by dem-cli's "usage" verb (spec §4.5 GET /target/{a}/usage).
func (s *Server) targetUsage(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "target")
	t, err := s.mgr.FindTarget(alias)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usageDTO{Devices: t.NsDevices, Interfaces: t.Interfaces})
}

type logPageEntryDTO struct {
	TrType  string `json:"trtype"`
	AdrFam  string `json:"adrfam"`
	Portid  int    `json:"portid"`
	Traddr  string `json:"traddr"`
	Trsvcid uint16 `json:"trsvcid"`
	SubNQN  string `json:"subnqn"`
	State   string `json:"state"`
}

// targetLogPage reports the aggregator's cached discovery log page for
// target, the human/monitor view of spec §4.7 (GET /target/{a}/logpage).
func (s *Server) targetLogPage(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "target")
	pages, err := s.mgr.TargetLogPages(alias)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]logPageEntryDTO, 0, len(pages))
	for _, p := range pages {
		out = append(out, logPageEntryDTO{
			TrType:  string(p.TrType),
			AdrFam:  string(p.AdrFam),
			Portid:  p.Portid,
			Traddr:  p.Traddr,
			Trsvcid: p.Trsvcid,
			SubNQN:  p.SubNQN,
			State:   logPageStateName(p.State),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func logPageStateName(st model.LogPageState) string {
	switch st {
	case model.LogPageNew:
		return "new"
	case model.LogPageValid:
		return "valid"
	case model.LogPageDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
