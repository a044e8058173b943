// Package propagate implements the propagation dispatcher (C6): it
// translates a model mutation into the remote operation that actually
// reconfigures a target, over the in-band admin channel, an out-of-band
// REST call, or a local no-op for targets this manager programs directly
// via kernel configfs (spec §4.6, out of scope here per spec §1).
package propagate

import (
	"context"

	"github.com/nvme-dem/nvme-dem/pkg/model"
)

// Op names the kind of configuration change being propagated, mirroring
// the REST verbs (spec §9, design note on dynamic dispatch).
type Op string

const (
	OpAddSubsystem    Op = "add_subsystem"
	OpSetSubsysAccess Op = "set_subsystem_access"
	OpDeleteSubsystem Op = "delete_subsystem"
	OpSetPortid       Op = "set_portid"
	OpDeletePortid    Op = "delete_portid"
	OpSetNamespace    Op = "set_namespace"
	OpDeleteNamespace Op = "delete_namespace"
	OpLinkHost        Op = "link_host"
	OpUnlinkHost      Op = "unlink_host"
	OpResetConfig     Op = "reset_config"
)

// Change is the unit of work a Dispatcher propagates: a mutation already
// committed (and persisted) to the configuration model, needing reflection
// onto the physical target.
type Change struct {
	Target string
	Op     Op
	Subnqn string
	Portid int
	NSID   int
	Host   string
	// Payload carries op-specific packed data for the in-band dispatcher
	// (e.g. the new Portid/Subsystem/Namespace fields); out-of-band and
	// local dispatchers re-derive what they need from the model instead.
	Payload any
}

// Dispatcher reflects a Change onto its target. Mutations always flow
// validate -> mutate model -> persist JSON -> propagate -> AEN (spec §3);
// a Dispatcher failure must never roll the model back.
type Dispatcher interface {
	Dispatch(ctx context.Context, c Change) error
}

// Router picks the right Dispatcher for a target based on its MgmtMode and
// dispatches through it. It is the component cmd/dem-server wires between
// pkg/restapi's mutation handlers and the model.
type Router struct {
	mgr       *model.Manager
	local     Dispatcher
	inband    Dispatcher
	outofband Dispatcher
}

// NewRouter returns a Router dispatching to local, inband or outofband
// according to each target's management mode.
func NewRouter(mgr *model.Manager, local, inband, outofband Dispatcher) *Router {
	return &Router{mgr: mgr, local: local, inband: inband, outofband: outofband}
}

// Dispatch resolves c.Target's MgmtMode and forwards to the matching
// Dispatcher.
func (r *Router) Dispatch(ctx context.Context, c Change) error {
	t, err := r.mgr.FindTarget(c.Target)
	if err != nil {
		return err
	}
	switch t.MgmtMode {
	case model.MgmtLocal:
		return r.local.Dispatch(ctx, c)
	case model.MgmtInBand:
		return r.inband.Dispatch(ctx, c)
	case model.MgmtOutOfBand:
		return r.outofband.Dispatch(ctx, c)
	default:
		return r.local.Dispatch(ctx, c)
	}
}
