package aggregator

import (
	"fmt"
	"strconv"

	"github.com/nvme-dem/nvme-dem/pkg/model"
)

// The wire discovery log-page entry encodes TRTYPE/ADRFAM as the byte codes
// from the NVMe-oF spec and TRSVCID as a decimal string; the model keeps
// them as the same string enums and numeric port used everywhere else in
// this repo. These tables translate between the two at the aggregator
// boundary, the only place both representations meet.
var trTypeCodes = map[uint8]model.TrType{
	1: model.TrTypeRDMA,
	3: model.TrTypeTCP,
	4: model.TrTypeFC,
	254: model.TrTypeLoop,
}

var adrFamCodes = map[uint8]model.AdrFam{
	1: model.AdrFamIPv4,
	2: model.AdrFamIPv6,
	3: model.AdrFamFC,
}

func decodeTrType(code uint8) model.TrType {
	if t, ok := trTypeCodes[code]; ok {
		return t
	}
	return model.TrType(fmt.Sprintf("unknown-%d", code))
}

func decodeAdrFam(code uint8) model.AdrFam {
	if f, ok := adrFamCodes[code]; ok {
		return f
	}
	return model.AdrFam(fmt.Sprintf("unknown-%d", code))
}

func decodeTrsvcid(s string) uint16 {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}
