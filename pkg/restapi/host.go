package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listHosts(w http.ResponseWriter, r *http.Request) {
	hosts := s.mgr.ListHosts()
	out := make([]hostDTO, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, fromModelHost(h))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createHost(w http.ResponseWriter, r *http.Request) {
	var body hostDTO
	if !decodeBody(w, r, &body) {
		return
	}
	h, err := s.mgr.AddHost(body.Alias, body.HostNQN)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist()
	writeJSON(w, http.StatusCreated, fromModelHost(h))
}

func (s *Server) showHost(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "host")
	h, err := s.mgr.FindHost(alias)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fromModelHost(h))
}

// replaceHost re-registers an existing host under a (possibly new) HostNQN.
// Aliases are immutable by PUT; use PATCH to rename.
func (s *Server) replaceHost(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "host")
	var body hostDTO
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.mgr.DeleteHost(alias); err != nil {
		writeError(w, err)
		return
	}
	h, err := s.mgr.AddHost(alias, body.HostNQN)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist()
	writeJSON(w, http.StatusOK, fromModelHost(h))
}

func (s *Server) renameHost(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "host")
	var body hostDTO
	if !decodeBody(w, r, &body) {
		return
	}
	h, err := s.mgr.RenameHost(alias, body.Alias)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist()
	writeJSON(w, http.StatusOK, fromModelHost(h))
}

func (s *Server) deleteHost(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "host")
	if err := s.mgr.DeleteHost(alias); err != nil {
		writeError(w, err)
		return
	}
	s.persist()
	writeOK(w)
}
