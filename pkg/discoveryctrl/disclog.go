package discoveryctrl

import (
	"strconv"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/nvmeof"
)

// Inverse of pkg/aggregator's wire-code tables: the discovery log page
// encodes TRTYPE/ADRFAM as the NVMe-oF spec's byte codes and TRSVCID as a
// decimal string, while the model keeps the same string enums and numeric
// port used everywhere else in this repo.
var trTypeCodes = map[model.TrType]uint8{
	model.TrTypeRDMA: 1,
	model.TrTypeTCP:  3,
	model.TrTypeFC:   4,
	model.TrTypeLoop: 254,
}

var adrFamCodes = map[model.AdrFam]uint8{
	model.AdrFamIPv4: 1,
	model.AdrFamIPv6: 2,
	model.AdrFamFC:   3,
}

// buildDiscLog enumerates every (Portid, Subsystem) pair visible to hostNQN
// across every target this manager knows about: the federated discovery log
// page a real NVMe-oF discovery controller returns regardless of which
// target's listener the host happened to connect through (spec §1, §4.3 —
// the page reflects the whole C4/C7 cache, filtered by host NQN and ACL).
func buildDiscLog(mgr *model.Manager, hostNQN string) ([]nvmeof.DiscRspEntry, error) {
	var entries []nvmeof.DiscRspEntry
	for _, t := range mgr.ListTargets() {
		var subs []*model.Subsystem
		var err error
		if hostNQN == nvmeof.AggregatorHostNQN {
			subs, err = mgr.AllSubsystems(t.Alias)
		} else {
			subs, err = mgr.VisibleSubsystems(t.Alias, hostNQN)
		}
		if err != nil {
			return nil, err
		}
		if len(subs) == 0 {
			continue
		}
		for _, pid := range t.Portids {
			p, ok := mgr.PortidByID(pid)
			if !ok {
				continue
			}
			for _, s := range subs {
				entries = append(entries, nvmeof.DiscRspEntry{
					TrType:  trTypeCodes[p.TrType],
					AdrFam:  adrFamCodes[p.AdrFam],
					Portid:  uint16(p.Portid),
					SubNQN:  s.SubNQN,
					Traddr:  p.Traddr,
					Trsvcid: strconv.FormatUint(uint64(p.Trsvcid), 10),
				})
			}
		}
	}
	return entries, nil
}
