// Package aggregator implements the log-page aggregator (C7): for each
// configured Target it periodically opens a discovery queue to every
// distinct Portid, fetches the discovery log page, and diffs it against
// the cached model.LogPage list so the REST surface and the AEN notifier
// can observe what a target's own discovery controller is actually
// presenting, as distinct from the desired-state configuration in the
// model.
package aggregator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/metrics"
	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// DefaultRefresh is used for targets configured with a zero or negative
// Refresh interval.
const DefaultRefresh = 5 * time.Minute

// tick is how often the scheduler wakes to check which targets are due;
// it is independent of any individual target's refresh interval.
const tick = 1 * time.Second

// Aggregator owns the periodic per-target refresh task.
type Aggregator struct {
	mgr        *model.Manager
	transports map[model.TrType]transport.Transport

	mu   sync.Mutex
	due  map[string]time.Time
	dial func(ctx context.Context, tp transport.Transport, service string) (transport.Endpoint, error)
}

// New returns an Aggregator polling targets through transports.
func New(mgr *model.Manager, transports map[model.TrType]transport.Transport) *Aggregator {
	return &Aggregator{
		mgr:        mgr,
		transports: transports,
		due:        make(map[string]time.Time),
		dial:       dialDiscoveryQueue,
	}
}

// Run drives the refresh scheduler until ctx is cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.runDue(ctx, now)
		}
	}
}

func (a *Aggregator) runDue(ctx context.Context, now time.Time) {
	for _, t := range a.mgr.ListTargets() {
		interval := time.Duration(t.Refresh) * time.Minute
		if interval <= 0 {
			interval = DefaultRefresh
		}
		a.mu.Lock()
		next, seen := a.due[t.Alias]
		a.mu.Unlock()
		if seen && now.Before(next) {
			continue
		}
		a.mu.Lock()
		a.due[t.Alias] = now.Add(interval)
		a.mu.Unlock()
		a.refreshTarget(ctx, t.Alias)
	}
}

// refreshTarget fetches and diffs every distinct Portid of a single
// target sequentially, never holding the model lock across the network
// round trip (spec requirement: "An aggregator pass never holds the model
// lock while waiting on the transport").
func (a *Aggregator) refreshTarget(ctx context.Context, alias string) {
	start := time.Now()
	t, err := a.mgr.FindTarget(alias)
	if err != nil {
		return
	}
	var allEntries []nvmeof.DiscRspEntry
	for _, pid := range t.Portids {
		p, ok := a.mgr.PortidByID(pid)
		if !ok {
			continue
		}
		entries, err := a.fetchOnePortid(ctx, p)
		if err != nil {
			klog.V(3).Infof("aggregator: target %s portid %d: %v", alias, p.Portid, err)
			continue
		}
		allEntries = append(allEntries, entries...)
	}
	stale, err := a.diff(alias, allEntries)
	if err != nil {
		klog.Warningf("aggregator: target %s: diff failed: %v", alias, err)
		return
	}
	metrics.RecordLogpageFetch(alias, time.Since(start))
	if stale > 0 {
		metrics.RecordLogpageStale(alias, stale)
	}
}

func (a *Aggregator) fetchOnePortid(ctx context.Context, p *model.Portid) ([]nvmeof.DiscRspEntry, error) {
	tp, ok := a.transports[p.TrType]
	if !ok {
		return nil, fmt.Errorf("no transport registered for %s", p.TrType)
	}
	service := fmt.Sprintf("%s:%d", p.Traddr, p.Trsvcid)
	ep, err := a.dial(ctx, tp, service)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", service, err)
	}
	defer ep.Close()

	q := nvmeof.NewQueue(ep)
	if err := nvmeof.SendFabricConnect(ctx, q, nvmeof.AggregatorHostNQN); err != nil {
		return nil, fmt.Errorf("fabric connect: %w", err)
	}
	if err := nvmeof.SendPropertySet(ctx, q, nvmeof.PropertyCC, nvmeof.CCEnable); err != nil {
		return nil, fmt.Errorf("enable: %w", err)
	}
	// Per spec §4.7 step 5, a queue that rejected keep-alive is disconnected
	// right after its fetch rather than kept open; the deferred Close above
	// already does that for every queue, so failed_kato needs no extra step
	// here since this aggregator never keeps a queue open between passes.
	return nvmeof.SendGetLogPage(ctx, q)
}

func dialDiscoveryQueue(ctx context.Context, tp transport.Transport, service string) (transport.Endpoint, error) {
	return tp.ClientConnect(ctx, service, tp.BuildConnectData(nvmeof.AggregatorHostNQN))
}

// diff implements spec §4.7 steps 3-4: mark everything stale, match
// fetched entries by key (creating or reviving as needed), and leave
// anything unmatched in the Deleted state for monitor/AEN consumers to
// surface.
func (a *Aggregator) diff(alias string, entries []nvmeof.DiscRspEntry) (int, error) {
	cached, err := a.mgr.TargetLogPages(alias)
	if err != nil {
		return 0, err
	}
	byKey := make(map[model.LogPageKey]*model.LogPage, len(cached))
	wasDeleted := make(map[model.ID]bool, len(cached))
	for _, lp := range cached {
		byKey[lp.Key()] = lp
		wasDeleted[lp.ID] = lp.State == model.LogPageDeleted
		a.mgr.SetLogPageState(lp.ID, model.LogPageDeleted)
	}

	for _, e := range entries {
		key := model.LogPageKey{
			Portid:  int(e.Portid),
			Traddr:  e.Traddr,
			Trsvcid: decodeTrsvcid(e.Trsvcid),
			TrType:  decodeTrType(e.TrType),
			AdrFam:  decodeAdrFam(e.AdrFam),
		}
		if lp, ok := byKey[key]; ok {
			a.mgr.SetLogPageState(lp.ID, model.LogPageValid)
			continue
		}
		if _, err := a.mgr.AddLogPage(alias, key, e.SubNQN); err != nil {
			klog.V(4).Infof("aggregator: target %s: add log page: %v", alias, err)
		}
	}

	stale := 0
	for _, lp := range cached {
		if lp.State == model.LogPageDeleted && !wasDeleted[lp.ID] {
			stale++
		}
	}
	return stale, nil
}
