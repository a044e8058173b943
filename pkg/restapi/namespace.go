package restapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nvme-dem/nvme-dem/pkg/propagate"
)

func (s *Server) setNamespace(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	subnqn := chi.URLParam(r, "subnqn")
	nsid, err := strconv.Atoi(chi.URLParam(r, "nsid"))
	if err != nil {
		badRequest(w, "invalid nsid: "+err.Error())
		return
	}
	var body namespaceDTO
	if !decodeBody(w, r, &body) {
		return
	}
	ns, err := s.mgr.SetNamespace(target, subnqn, nsid, body.DevID, body.DevNSID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpSetNamespace, Subnqn: subnqn, NSID: nsid})
	writeJSON(w, http.StatusOK, namespaceDTO{NSID: ns.NSID, DevID: ns.DeviceID, DevNSID: ns.DevNSID})
}

func (s *Server) deleteNamespace(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	subnqn := chi.URLParam(r, "subnqn")
	nsid, err := strconv.Atoi(chi.URLParam(r, "nsid"))
	if err != nil {
		badRequest(w, "invalid nsid: "+err.Error())
		return
	}
	if err := s.mgr.DeleteNamespace(target, subnqn, nsid); err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpDeleteNamespace, Subnqn: subnqn, NSID: nsid})
	writeOK(w)
}
