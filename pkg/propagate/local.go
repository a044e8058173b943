package propagate

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
)

// Local is the Dispatcher for targets this manager programs directly
// through the host's NVMe target subsystem (configfs), rather than over
// the network. Actually touching configfs is out of scope (spec §1
// Non-goals: "no kernel nvmet configfs programming"); Local only logs and
// records the change as applied, standing in for that write.
type Local struct{}

// NewLocal returns a Local dispatcher.
func NewLocal() *Local { return &Local{} }

func (l *Local) Dispatch(_ context.Context, c Change) error {
	start := time.Now()
	klog.V(4).Infof("propagate: local %s target=%s subnqn=%s", c.Op, c.Target, c.Subnqn)
	metrics.RecordPropagation(metrics.ModeLocal, string(c.Op), "ok", time.Since(start))
	return nil
}
