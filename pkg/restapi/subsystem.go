package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/propagate"
)

func (s *Server) setSubsystem(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	subnqn := chi.URLParam(r, "subnqn")
	var body subsystemDTO
	if !decodeBody(w, r, &body) {
		return
	}
	access := model.AccessRestricted
	if body.AllowAnyHost {
		access = model.AccessAllowAny
	}

	if _, err := s.mgr.FindSubsys(target, subnqn); err != nil {
		if _, aerr := s.mgr.AddSubsystem(target, subnqn, access); aerr != nil {
			writeError(w, aerr)
			return
		}
	} else if _, serr := s.mgr.SetSubsysAccess(target, subnqn, access); serr != nil {
		writeError(w, serr)
		return
	}

	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpAddSubsystem, Subnqn: subnqn})
	v, err := s.mgr.SubsystemByName(target, subnqn)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromSubsystemView(v))
}

func (s *Server) renameSubsystem(w http.ResponseWriter, r *http.Request) {
	// Subsystem NQN is the wire identity hosts connect with and cannot be
	// renamed in place; callers delete and re-create under the new NQN.
	badRequest(w, "subsystem NQN cannot be renamed; delete and re-create")
}

func (s *Server) deleteSubsystem(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	subnqn := chi.URLParam(r, "subnqn")
	if err := s.mgr.DeleteSubsystem(target, subnqn); err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpDeleteSubsystem, Subnqn: subnqn})
	writeOK(w)
}

func (s *Server) linkSubsysHost(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	subnqn := chi.URLParam(r, "subnqn")
	host := chi.URLParam(r, "host")
	if err := s.mgr.LinkHost(target, subnqn, host); err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpLinkHost, Subnqn: subnqn, Host: host})
	writeOK(w)
}

func (s *Server) unlinkSubsysHost(w http.ResponseWriter, r *http.Request) {
	target := chi.URLParam(r, "target")
	subnqn := chi.URLParam(r, "subnqn")
	host := chi.URLParam(r, "host")
	if err := s.mgr.UnlinkHost(target, subnqn, host); err != nil {
		writeError(w, err)
		return
	}
	s.afterMutation(r, propagate.Change{Target: target, Op: propagate.OpUnlinkHost, Subnqn: subnqn, Host: host})
	writeOK(w)
}
