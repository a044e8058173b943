package nvmeof

import (
	"encoding/binary"
	"fmt"
)

// Opcodes (spec §6, "Wire (host-facing)").
const (
	OpcodeFabrics          uint8 = 0x7F
	OpcodeGetLogPage       uint8 = 0x02
	OpcodeIdentify         uint8 = 0x06
	OpcodeSetFeatures      uint8 = 0x09
	OpcodeGetFeatures      uint8 = 0x0A
	OpcodeAsyncEventReq    uint8 = 0x0C
	OpcodeKeepAlive        uint8 = 0x18
)

// Fabrics command types (fctype), including the vendor in-band self-config
// extension (spec §6, "Wire (in-band self-config)"); numeric values are
// chosen locally since the original's values are vendor-private.
const (
	FctypeConnect             uint8 = 0x01
	FctypePropertySet         uint8 = 0x00
	FctypePropertyGet         uint8 = 0x04
	FctypeResourceConfigGet   uint8 = 0xC0
	FctypeResourceConfigSet   uint8 = 0xC1
	FctypeResourceConfigReset uint8 = 0xC2
)

// LID values for Get Log Page.
const LogPageIDDiscovery uint8 = 0x70

// Fixed discovery-controller field values (spec §6). DomainSubNQN is the
// well-known "domain" subsystem NQN a Connect may also target (spec §4.3);
// this controller treats it identically to DiscoverySubNQN.
const (
	DiscoverySubNQN = "nqn.2014-08.org.nvmexpress.discovery"
	DomainSubNQN    = "nqn.2014-08.org.nvmexpress.domain"
	FixedCAP        uint64 = 0x20_0F_0003FF
	FixedVS         uint32 = 0x010201
	FixedMaxCmd     uint16 = 2
)

// AggregatorHostNQN is the identity the log-page aggregator (pkg/aggregator)
// connects with when it polls a target's own discovery controller: an
// internal administrative session, not a real host, so Get Log Page
// filtering (spec §4.3, §8) must treat it as seeing every Subsystem
// regardless of ACL.
const AggregatorHostNQN = "nqn.2014-08.org.nvmexpress:dem-aggregator"

// Property offsets used by send_get_property/send_property_set.
const (
	PropertyCAP  uint32 = 0x00
	PropertyVS   uint32 = 0x08
	PropertyCC   uint32 = 0x14
	PropertyCSTS uint32 = 0x1C
)

// CC values the discovery controller toggles (spec §4.2).
const (
	CCEnable  uint32 = 0x460001
	CCDisable uint32 = 0x464001
)

const sqeLen = 64

// Command is a 64-byte submission queue entry. Only the fields the
// discovery controller and its client actually use are exposed; the rest
// of the wire layout (SGL descriptor, metadata pointer) is fixed at
// marshal time since this engine never transfers namespace data.
type Command struct {
	Opcode uint8
	Fctype uint8 // meaningful only when Opcode == OpcodeFabrics
	CID    uint16
	NSID   uint32
	CDW10  uint32
	CDW11  uint32
	CDW12  uint32
	CDW13  uint32
	CDW14  uint32
	CDW15  uint32
}

// MarshalBinary encodes the command into a fixed 64-byte SQE.
func (c Command) MarshalBinary() ([]byte, error) {
	buf := make([]byte, sqeLen)
	buf[0] = c.Opcode
	buf[1] = c.Fctype
	binary.LittleEndian.PutUint16(buf[2:], c.CID)
	binary.LittleEndian.PutUint32(buf[4:], c.NSID)
	binary.LittleEndian.PutUint32(buf[40:], c.CDW10)
	binary.LittleEndian.PutUint32(buf[44:], c.CDW11)
	binary.LittleEndian.PutUint32(buf[48:], c.CDW12)
	binary.LittleEndian.PutUint32(buf[52:], c.CDW13)
	binary.LittleEndian.PutUint32(buf[56:], c.CDW14)
	binary.LittleEndian.PutUint32(buf[60:], c.CDW15)
	return buf, nil
}

// UnmarshalBinary decodes a 64-byte SQE.
func (c *Command) UnmarshalBinary(buf []byte) error {
	if len(buf) < sqeLen {
		return fmt.Errorf("nvmeof: short command (%d bytes)", len(buf))
	}
	c.Opcode = buf[0]
	c.Fctype = buf[1]
	c.CID = binary.LittleEndian.Uint16(buf[2:])
	c.NSID = binary.LittleEndian.Uint32(buf[4:])
	c.CDW10 = binary.LittleEndian.Uint32(buf[40:])
	c.CDW11 = binary.LittleEndian.Uint32(buf[44:])
	c.CDW12 = binary.LittleEndian.Uint32(buf[48:])
	c.CDW13 = binary.LittleEndian.Uint32(buf[52:])
	c.CDW14 = binary.LittleEndian.Uint32(buf[56:])
	c.CDW15 = binary.LittleEndian.Uint32(buf[60:])
	return nil
}

const cqeLen = 16

// Completion is a 16-byte completion queue entry.
type Completion struct {
	Result    uint32
	SQHD      uint16
	SQID      uint16
	CID       uint16
	StatusRaw uint16
}

// MarshalBinary encodes the completion into a fixed 16-byte CQE.
func (c Completion) MarshalBinary() ([]byte, error) {
	buf := make([]byte, cqeLen)
	binary.LittleEndian.PutUint32(buf[0:], c.Result)
	binary.LittleEndian.PutUint16(buf[4:], c.SQHD)
	binary.LittleEndian.PutUint16(buf[6:], c.SQID)
	binary.LittleEndian.PutUint16(buf[8:], c.CID)
	binary.LittleEndian.PutUint16(buf[10:], c.StatusRaw)
	return buf, nil
}

// UnmarshalBinary decodes a 16-byte CQE.
func (c *Completion) UnmarshalBinary(buf []byte) error {
	if len(buf) < cqeLen {
		return fmt.Errorf("nvmeof: short completion (%d bytes)", len(buf))
	}
	c.Result = binary.LittleEndian.Uint32(buf[0:])
	c.SQHD = binary.LittleEndian.Uint16(buf[4:])
	c.SQID = binary.LittleEndian.Uint16(buf[6:])
	c.CID = binary.LittleEndian.Uint16(buf[8:])
	c.StatusRaw = binary.LittleEndian.Uint16(buf[10:])
	return nil
}

// Status decodes this completion's (status>>1) field.
func (c Completion) Status() Status { return decodeStatus(c.StatusRaw) }

const connectDataLen = 16 + 2 + 2 + 256 + 256

// ConnectData is the data payload a Fabrics Connect command points its SGL
// at: host identifier, requested controller ID, subsystem and host NQNs.
type ConnectData struct {
	HostID  [16]byte
	CNTLID  uint16
	SubNQN  string
	HostNQN string
}

// MarshalBinary encodes the Connect data payload.
func (d ConnectData) MarshalBinary() ([]byte, error) {
	buf := make([]byte, connectDataLen)
	copy(buf[0:16], d.HostID[:])
	binary.LittleEndian.PutUint16(buf[16:], d.CNTLID)
	copy(buf[20:276], d.SubNQN)
	copy(buf[276:532], d.HostNQN)
	return buf, nil
}

// UnmarshalBinary decodes a Connect data payload.
func (d *ConnectData) UnmarshalBinary(buf []byte) error {
	if len(buf) < connectDataLen {
		return fmt.Errorf("nvmeof: short connect data (%d bytes)", len(buf))
	}
	copy(d.HostID[:], buf[0:16])
	d.CNTLID = binary.LittleEndian.Uint16(buf[16:])
	d.SubNQN = cString(buf[20:276])
	d.HostNQN = cString(buf[276:532])
	return nil
}

func cString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

const idCtrlLen = 16 + 256 + 4

// IdCtrl is the abbreviated Identify controller-data structure the
// discovery controller returns: maxcmd, SGL support bits, and subnqn.
type IdCtrl struct {
	MaxCmd  uint16
	SGLKeyed          bool
	SGLInCapsule      bool
	SGLTransportSpecific bool
	SubNQN  string
}

// SGL support bit positions within the packed SGLS field.
const (
	sglBitKeyed     = 1 << 0
	sglBitInCapsule = 1 << 1
	sglBitTransport = 1 << 2
)

// MarshalBinary encodes the abbreviated id_ctrl structure.
func (c IdCtrl) MarshalBinary() ([]byte, error) {
	buf := make([]byte, idCtrlLen)
	binary.LittleEndian.PutUint16(buf[0:], c.MaxCmd)
	var sgls uint32
	if c.SGLKeyed {
		sgls |= sglBitKeyed
	}
	if c.SGLInCapsule {
		sgls |= sglBitInCapsule
	}
	if c.SGLTransportSpecific {
		sgls |= sglBitTransport
	}
	binary.LittleEndian.PutUint32(buf[2:], sgls)
	copy(buf[6:262], c.SubNQN)
	return buf, nil
}

// UnmarshalBinary decodes the abbreviated id_ctrl structure.
func (c *IdCtrl) UnmarshalBinary(buf []byte) error {
	if len(buf) < idCtrlLen {
		return fmt.Errorf("nvmeof: short id_ctrl (%d bytes)", len(buf))
	}
	c.MaxCmd = binary.LittleEndian.Uint16(buf[0:])
	sgls := binary.LittleEndian.Uint32(buf[2:])
	c.SGLKeyed = sgls&sglBitKeyed != 0
	c.SGLInCapsule = sgls&sglBitInCapsule != 0
	c.SGLTransportSpecific = sgls&sglBitTransport != 0
	c.SubNQN = cString(buf[6:262])
	return nil
}

const discRspEntryLen = 4 + 224 + 24 + 12

// DiscRspEntry is one NVMe-oF discovery log-page entry (spec §3/§8, the
// `(portid, nvmf_disc_rsp_page_entry)` pair).
type DiscRspEntry struct {
	TrType  uint8
	AdrFam  uint8
	Portid  uint16
	SubNQN  string
	Traddr  string
	Trsvcid string
}

// MarshalBinary encodes one discovery response page entry.
func (e DiscRspEntry) MarshalBinary() ([]byte, error) {
	buf := make([]byte, discRspEntryLen)
	buf[0] = e.TrType
	buf[1] = e.AdrFam
	binary.LittleEndian.PutUint16(buf[2:], e.Portid)
	copy(buf[4:4+224], e.SubNQN)
	// traddr/trsvcid packed in a real response page's fixed-size fields;
	// trimmed to what the aggregator needs for diff-matching.
	copy(buf[228:228+24], e.Traddr)
	copy(buf[252:252+12], e.Trsvcid)
	return buf, nil
}

// UnmarshalBinary decodes one discovery response page entry.
func (e *DiscRspEntry) UnmarshalBinary(buf []byte) error {
	if len(buf) < discRspEntryLen {
		return fmt.Errorf("nvmeof: short disc_rsp_entry (%d bytes)", len(buf))
	}
	e.TrType = buf[0]
	e.AdrFam = buf[1]
	e.Portid = binary.LittleEndian.Uint16(buf[2:])
	e.SubNQN = cString(buf[4 : 4+224])
	e.Traddr = cString(buf[228 : 228+24])
	e.Trsvcid = cString(buf[252 : 252+12])
	return nil
}

// DiscLogHeader is the 16-byte header a Get Log Page(LID=DISC) fetch reads
// first: genctr and numrec, needed before sizing the full fetch (spec §4.2).
type DiscLogHeader struct {
	GenCtr uint64
	NumRec uint64
}

const discLogHeaderLen = 16

// MarshalBinary encodes the discovery log header.
func (h DiscLogHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, discLogHeaderLen)
	binary.LittleEndian.PutUint64(buf[0:], h.GenCtr)
	binary.LittleEndian.PutUint64(buf[8:], h.NumRec)
	return buf, nil
}

// UnmarshalBinary decodes the discovery log header.
func (h *DiscLogHeader) UnmarshalBinary(buf []byte) error {
	if len(buf) < discLogHeaderLen {
		return fmt.Errorf("nvmeof: short disc_log_header (%d bytes)", len(buf))
	}
	h.GenCtr = binary.LittleEndian.Uint64(buf[0:])
	h.NumRec = binary.LittleEndian.Uint64(buf[8:])
	return nil
}
