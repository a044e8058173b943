// Package restapi implements the REST/JSON management surface (C5): the
// resource/verb table of spec §4.5, routed with go-chi/chi the way the
// pack's marmos91-dittofs control plane routes its own API (one handler
// type per resource, nested param routes for child collections).
package restapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/propagate"
)

// Server bundles the dependencies every handler needs.
type Server struct {
	mgr        *model.Manager
	dispatch   *propagate.Router
	sig        *SignatureStore
	storePath  string
	shutdownFn func()
	listeners  []model.Interface
}

// NewServer returns a Server wired against mgr and dispatch, persisting to
// storePath after every mutation and invoking shutdownFn on POST /dem
// {"op":"shutdown"}. listeners is reported verbatim by GET /dem.
func NewServer(mgr *model.Manager, dispatch *propagate.Router, sig *SignatureStore, storePath string, shutdownFn func(), listeners []model.Interface) *Server {
	return &Server{mgr: mgr, dispatch: dispatch, sig: sig, storePath: storePath, shutdownFn: shutdownFn, listeners: listeners}
}

// Router builds the full chi.Router for the management surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(CORS)
	r.Use(Metrics)
	r.Use(Auth(s.sig))

	r.Route("/dem", func(r chi.Router) {
		r.Get("/", s.listDem)
		r.Post("/", s.postDem)
		r.Post("/signature", s.postSignature)
	})

	r.Route("/group", func(r chi.Router) {
		r.Get("/", s.listGroups)
		r.Post("/", s.createGroup)
		r.Route("/{group}", func(r chi.Router) {
			r.Get("/", s.showGroup)
			r.Put("/", s.replaceGroup)
			r.Patch("/", s.renameGroup)
			r.Delete("/", s.deleteGroup)
			r.Post("/target/{target}", s.linkGroupTarget)
			r.Delete("/target/{target}", s.unlinkGroupTarget)
			r.Post("/host/{host}", s.linkGroupHost)
			r.Delete("/host/{host}", s.unlinkGroupHost)
		})
	})

	r.Route("/host", func(r chi.Router) {
		r.Get("/", s.listHosts)
		r.Post("/", s.createHost)
		r.Route("/{host}", func(r chi.Router) {
			r.Get("/", s.showHost)
			r.Put("/", s.replaceHost)
			r.Patch("/", s.renameHost)
			r.Delete("/", s.deleteHost)
		})
	})

	r.Route("/target", func(r chi.Router) {
		r.Get("/", s.listTargets)
		r.Post("/", s.createTarget)
		r.Route("/{target}", func(r chi.Router) {
			r.Get("/", s.showTarget)
			r.Post("/", s.postTarget) // refresh, reconfigure, rename
			r.Put("/", s.updateTarget)
			r.Patch("/", s.renameTarget)
			r.Delete("/", s.deleteTarget)
			r.Get("/usage", s.targetUsage)
			r.Get("/logpage", s.targetLogPage)

			r.Route("/portid/{portid}", func(r chi.Router) {
				r.Put("/", s.setPortid)
				r.Delete("/", s.deletePortid)
			})

			r.Route("/subsystem/{subnqn}", func(r chi.Router) {
				r.Put("/", s.setSubsystem)
				r.Patch("/", s.renameSubsystem)
				r.Delete("/", s.deleteSubsystem)

				r.Route("/ns/{nsid}", func(r chi.Router) {
					r.Put("/", s.setNamespace)
					r.Delete("/", s.deleteNamespace)
				})
				r.Route("/host/{host}", func(r chi.Router) {
					r.Put("/", s.linkSubsysHost)
					r.Delete("/", s.unlinkSubsysHost)
				})
			})
		})
	})

	return r
}
