// Package tcp implements the transport capability set (pkg/transport) over
// NVMe/TCP: real PDU framing on a net.Conn, including the IC Request/
// Response handshake this transport owns (spec §4.1).
package tcp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// PDU types (spec §6, "Wire (TCP transport)").
const (
	PduTypeICReq       uint8 = 0
	PduTypeICResp      uint8 = 1
	PduTypeCapsuleCmd  uint8 = 4
	PduTypeCapsuleResp uint8 = 5
	PduTypeH2CData     uint8 = 7
	PduTypeC2HData     uint8 = 8
)

// commonHeaderLen is the 8-byte header every PDU carries: type, flags,
// hlen, pdo, plen.
const commonHeaderLen = 8

type commonHeader struct {
	PduType uint8
	Flags   uint8
	HLen    uint8
	PDO     uint8
	PLen    uint32
}

func (h commonHeader) marshal() []byte {
	buf := make([]byte, commonHeaderLen)
	buf[0] = h.PduType
	buf[1] = h.Flags
	buf[2] = h.HLen
	buf[3] = h.PDO
	binary.LittleEndian.PutUint32(buf[4:], h.PLen)
	return buf
}

func unmarshalCommonHeader(buf []byte) (commonHeader, error) {
	if len(buf) < commonHeaderLen {
		return commonHeader{}, fmt.Errorf("tcp: short pdu header (%d bytes)", len(buf))
	}
	return commonHeader{
		PduType: buf[0],
		Flags:   buf[1],
		HLen:    buf[2],
		PDO:     buf[3],
		PLen:    binary.LittleEndian.Uint32(buf[4:]),
	}, nil
}

// icReqBodyLen is the fixed length of an ICReq PDU body (after the common header):
// pfv(2) + hpda(1) + digest(1) + maxr2t(4) + reserved(8).
const icReqBodyLen = 16

type icReq struct {
	PFV    uint16
	HPDA   uint8
	Digest uint8
	MaxR2T uint32
}

func (r icReq) marshal() []byte {
	hdr := commonHeader{PduType: PduTypeICReq, HLen: commonHeaderLen + icReqBodyLen, PLen: commonHeaderLen + icReqBodyLen}
	buf := bytes.NewBuffer(hdr.marshal())
	body := make([]byte, icReqBodyLen)
	binary.LittleEndian.PutUint16(body[0:], r.PFV)
	body[2] = r.HPDA
	body[3] = r.Digest
	binary.LittleEndian.PutUint32(body[4:], r.MaxR2T)
	buf.Write(body)
	return buf.Bytes()
}

func unmarshalICReqBody(buf []byte) (icReq, error) {
	if len(buf) < icReqBodyLen {
		return icReq{}, fmt.Errorf("tcp: short ic_req body")
	}
	return icReq{
		PFV:    binary.LittleEndian.Uint16(buf[0:]),
		HPDA:   buf[2],
		Digest: buf[3],
		MaxR2T: binary.LittleEndian.Uint32(buf[4:]),
	}, nil
}

// icRespBodyLen: pfv(2) + cpda(1) + digest(1) + maxdata(4) + reserved(8).
const icRespBodyLen = 16

type icResp struct {
	PFV     uint16
	CPDA    uint8
	Digest  uint8
	MaxData uint32
}

func (r icResp) marshal() []byte {
	hdr := commonHeader{PduType: PduTypeICResp, HLen: commonHeaderLen + icRespBodyLen, PLen: commonHeaderLen + icRespBodyLen}
	buf := bytes.NewBuffer(hdr.marshal())
	body := make([]byte, icRespBodyLen)
	binary.LittleEndian.PutUint16(body[0:], r.PFV)
	body[2] = r.CPDA
	body[3] = r.Digest
	binary.LittleEndian.PutUint32(body[4:], r.MaxData)
	buf.Write(body)
	return buf.Bytes()
}

func unmarshalICRespBody(buf []byte) (icResp, error) {
	if len(buf) < icRespBodyLen {
		return icResp{}, fmt.Errorf("tcp: short ic_resp body")
	}
	return icResp{
		PFV:     binary.LittleEndian.Uint16(buf[0:]),
		CPDA:    buf[2],
		Digest:  buf[3],
		MaxData: binary.LittleEndian.Uint32(buf[4:]),
	}, nil
}

// dataPduHeaderLen: cccid(2) + ttag(2) + data_offset(4) + data_length(4).
const dataPduHeaderLen = 12

type dataPduHeader struct {
	CCCID      uint16
	TTag       uint16
	DataOffset uint32
	DataLength uint32
}

func (h dataPduHeader) marshal(pduType uint8) []byte {
	total := commonHeaderLen + dataPduHeaderLen
	hdr := commonHeader{PduType: pduType, HLen: uint8(total), PDO: uint8(total), PLen: uint32(total) + h.DataLength}
	buf := bytes.NewBuffer(hdr.marshal())
	body := make([]byte, dataPduHeaderLen)
	binary.LittleEndian.PutUint16(body[0:], h.CCCID)
	binary.LittleEndian.PutUint16(body[2:], h.TTag)
	binary.LittleEndian.PutUint32(body[4:], h.DataOffset)
	binary.LittleEndian.PutUint32(body[8:], h.DataLength)
	buf.Write(body)
	return buf.Bytes()
}

func unmarshalDataPduHeader(buf []byte) (dataPduHeader, error) {
	if len(buf) < dataPduHeaderLen {
		return dataPduHeader{}, fmt.Errorf("tcp: short data pdu header")
	}
	return dataPduHeader{
		CCCID:      binary.LittleEndian.Uint16(buf[0:]),
		TTag:       binary.LittleEndian.Uint16(buf[2:]),
		DataOffset: binary.LittleEndian.Uint32(buf[4:]),
		DataLength: binary.LittleEndian.Uint32(buf[8:]),
	}, nil
}

// capsuleHeaderLen wraps a 64-byte NVMe command/response with no extra framing
// beyond the common header; pdo marks where the capsule body begins.
const capsuleHeaderLen = commonHeaderLen

func marshalCapsule(pduType uint8, capsule []byte) []byte {
	total := capsuleHeaderLen + len(capsule)
	hdr := commonHeader{PduType: pduType, HLen: capsuleHeaderLen, PDO: capsuleHeaderLen, PLen: uint32(total)}
	buf := bytes.NewBuffer(hdr.marshal())
	buf.Write(capsule)
	return buf.Bytes()
}
