package restapi

import (
	"net/http"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/propagate"
)

// persist saves the model to the JSON store, matching the "persist JSON"
// step common to every mutation in spec §3's flow (validate -> mutate model
// -> persist JSON -> propagate -> AEN). Host and Group mutations stop here:
// they have no single Target to propagate to.
func (s *Server) persist() {
	if s.storePath == "" {
		return
	}
	if err := s.mgr.Save(s.storePath); err != nil {
		klog.Errorf("restapi: persist store: %v", err)
	}
}

// afterMutation persists the model and dispatches a propagation Change for
// a Target-scoped mutation. A propagation failure is logged but never rolls
// the model back or fails the HTTP response — the model is the truth of
// intent (spec §4.6).
func (s *Server) afterMutation(r *http.Request, c propagate.Change) {
	s.persist()
	if s.dispatch == nil {
		return
	}
	if err := s.dispatch.Dispatch(r.Context(), c); err != nil {
		klog.Warningf("restapi: propagate %s on %s: %v", c.Op, c.Target, err)
	}
}
