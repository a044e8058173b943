package restapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/propagate"
)

func (s *Server) setPortid(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	portid, err := strconv.Atoi(chi.URLParam(r, "portid"))
	if err != nil {
		badRequest(w, "invalid portid: "+err.Error())
		return
	}
	var body portidDTO
	if !decodeBody(w, r, &body) {
		return
	}
	p, err := s.mgr.SetPortid(target, portid, model.TrType(body.Type), model.AdrFam(body.Family), body.Address, body.Trsvcid)
	if err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpSetPortid, Portid: portid, Payload: p})
	writeJSON(w, http.StatusOK, portidDTO{Portid: p.Portid, Type: string(p.TrType), Family: string(p.AdrFam), Address: p.Traddr, Trsvcid: p.Trsvcid})
}

func (s *Server) deletePortid(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	portid, err := strconv.Atoi(chi.URLParam(r, "portid"))
	if err != nil {
		badRequest(w, "invalid portid: "+err.Error())
		return
	}
	if err := s.mgr.DeletePortid(target, portid); err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpDeletePortid, Portid: portid})
	writeOK(w)
}
