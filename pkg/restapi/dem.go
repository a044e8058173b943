package restapi

import "net/http"

// demListenerDTO describes one listening interface this daemon accepts
// discovery/admin connections on.
type demListenerDTO struct {
	Type    string `json:"type"`
	Family  string `json:"family"`
	Address string `json:"address"`
	Trsvcid uint16 `json:"trsvcid"`
}

// listDem returns the interface list the Server was built with, one entry
// per interface in s.listeners (spec §4.5 GET /dem).
func (s *Server) listDem(w http.ResponseWriter, r *http.Request) {
	out := make([]demListenerDTO, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, demListenerDTO{
			Type:    string(l.Type),
			Family:  string(l.Family),
			Address: l.Address,
			Trsvcid: l.TrsvcID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type demOpDTO struct {
	Op string `json:"op"`
}

// postDem performs a daemon-level action; today the only op is "shutdown",
// invoking the shutdownFn cmd/dem-server wired in (spec §4.5 POST /dem).
func (s *Server) postDem(w http.ResponseWriter, r *http.Request) {
	var body demOpDTO
	if !decodeBody(w, r, &body) {
		return
	}
	switch body.Op {
	case "shutdown":
		if s.shutdownFn != nil {
			go s.shutdownFn()
		}
		writeOK(w)
	default:
		badRequest(w, "unknown op: "+body.Op)
	}
}

// postSignature rotates the auth signature compared against the
// Authorization header, requiring the current one to be presented first.
func (s *Server) postSignature(w http.ResponseWriter, r *http.Request) {
	var body signatureDTO
	if !decodeBody(w, r, &body) {
		return
	}
	if !s.sig.Rotate(body.Old, body.New) {
		forbidden(w, "signature mismatch")
		return
	}
	writeOK(w)
}
