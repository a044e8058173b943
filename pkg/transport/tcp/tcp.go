package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// ErrInvalidParameter is returned when an IC handshake field this transport
// owns (hlen, pfv, digest, hpda/cpda) mismatches the fixed values the
// pseudo discovery controller requires (spec §4.1).
var ErrInvalidParameter = errors.New("tcp: invalid parameter")

// Transport implements transport.Transport over NVMe/TCP.
type Transport struct{}

// New returns a ready-to-use NVMe/TCP transport.
func New() *Transport { return &Transport{} }

func (*Transport) Name() string { return "tcp" }

func (*Transport) BuildConnectData(hostNQN string) []byte {
	data := make([]byte, 256)
	copy(data, hostNQN)
	return data
}

func (*Transport) InitEndpoint(depth int) (transport.Endpoint, error) {
	return nil, errors.New("tcp: InitEndpoint requires an accepted or dialed connection")
}

func (t *Transport) InitListener(service string) (transport.Listener, error) {
	ln, err := net.Listen("tcp", service)
	if err != nil {
		return nil, fmt.Errorf("tcp: listen %s: %w", service, err)
	}
	return &listener{ln: ln}, nil
}

func (t *Transport) ClientConnect(ctx context.Context, dest string, connectData []byte) (transport.Endpoint, error) {
	d := net.Dialer{Timeout: transport.MsgTimeout}
	conn, err := d.DialContext(ctx, "tcp", dest)
	if err != nil {
		return nil, fmt.Errorf("tcp: dial %s: %w", dest, err)
	}
	if err := clientHandshake(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return newEndpoint(conn), nil
}

type listener struct {
	ln net.Listener
}

func (l *listener) Close() error { return l.ln.Close() }

func (l *listener) WaitForConnection(ctx context.Context) (transport.AcceptToken, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := l.ln.Accept()
		ch <- result{conn, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return &acceptToken{conn: r.conn}, nil
	}
}

// acceptToken performs the server side of the IC handshake on Accept, since
// the private "connect data" for NVMe/TCP arrives as the first Fabrics
// Connect capsule rather than out-of-band like RDMA's private data.
type acceptToken struct {
	conn net.Conn
	data []byte
}

func (a *acceptToken) ConnectData() []byte { return a.data }

func (a *acceptToken) Accept(ctx context.Context, depth int) (transport.Endpoint, error) {
	if err := serverHandshake(a.conn); err != nil {
		return nil, err
	}
	ep := newEndpoint(a.conn)
	capsule, err := ep.readCapsule(ctx)
	if err != nil {
		ep.Close()
		return nil, err
	}
	a.data = capsule
	ep.pending = capsule
	return ep, nil
}

func (a *acceptToken) Reject(ctx context.Context, data []byte) error {
	defer a.conn.Close()
	_, err := a.conn.Write(data)
	return err
}

func clientHandshake(conn net.Conn) error {
	req := icReq{PFV: 0, HPDA: 0, Digest: 0, MaxR2T: 4}
	if _, err := conn.Write(req.marshal()); err != nil {
		return fmt.Errorf("tcp: write ic_req: %w", err)
	}
	hdr, body, err := readPdu(conn)
	if err != nil {
		return err
	}
	if hdr.PduType != PduTypeICResp {
		return fmt.Errorf("%w: expected ic_resp, got pdu type %d", ErrInvalidParameter, hdr.PduType)
	}
	resp, err := unmarshalICRespBody(body)
	if err != nil {
		return err
	}
	if resp.PFV != 0 || resp.CPDA != 0 || resp.Digest != 0 {
		return fmt.Errorf("%w: ic_resp pfv/cpda/digest", ErrInvalidParameter)
	}
	return nil
}

func serverHandshake(conn net.Conn) error {
	hdr, body, err := readPdu(conn)
	if err != nil {
		return err
	}
	if hdr.PduType != PduTypeICReq || hdr.HLen != commonHeaderLen+icReqBodyLen {
		return fmt.Errorf("%w: ic_req hlen/type", ErrInvalidParameter)
	}
	req, err := unmarshalICReqBody(body)
	if err != nil {
		return err
	}
	if req.PFV != 0 || req.HPDA != 0 || req.Digest != 0 {
		return fmt.Errorf("%w: ic_req pfv/hpda/digest", ErrInvalidParameter)
	}
	resp := icResp{PFV: 0, CPDA: 0, Digest: 0, MaxData: 8192}
	if _, err := conn.Write(resp.marshal()); err != nil {
		return fmt.Errorf("tcp: write ic_resp: %w", err)
	}
	return nil
}

func readPdu(conn net.Conn) (commonHeader, []byte, error) {
	_ = conn.SetReadDeadline(time.Now().Add(transport.MsgTimeout))
	hdrBuf := make([]byte, commonHeaderLen)
	if _, err := readFull(conn, hdrBuf); err != nil {
		return commonHeader{}, nil, err
	}
	hdr, err := unmarshalCommonHeader(hdrBuf)
	if err != nil {
		return commonHeader{}, nil, err
	}
	if hdr.PLen < commonHeaderLen {
		return commonHeader{}, nil, fmt.Errorf("%w: plen underflow", ErrInvalidParameter)
	}
	rest := make([]byte, hdr.PLen-commonHeaderLen)
	if _, err := readFull(conn, rest); err != nil {
		return commonHeader{}, nil, err
	}
	return hdr, rest, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// endpoint implements transport.Endpoint over a single net.Conn.
type endpoint struct {
	conn    net.Conn
	mu      sync.Mutex
	pending []byte // a capsule read ahead by Accept/PollForMsg
	cccid   uint16
}

func newEndpoint(conn net.Conn) *endpoint {
	return &endpoint{conn: conn}
}

func (e *endpoint) String() string { return e.conn.RemoteAddr().String() }

func (e *endpoint) Close() error { return e.conn.Close() }

func (e *endpoint) readCapsule(ctx context.Context) ([]byte, error) {
	hdr, body, err := readPdu(e.conn)
	if err != nil {
		return nil, err
	}
	if hdr.PduType != PduTypeCapsuleCmd {
		return nil, fmt.Errorf("tcp: expected capsule_cmd, got pdu type %d", hdr.PduType)
	}
	return body, nil
}

func (e *endpoint) PostMsg(ctx context.Context, buf []byte) error {
	return e.SendMsg(ctx, buf)
}

func (e *endpoint) SendMsg(ctx context.Context, buf []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(transport.MsgTimeout))
	pdu := marshalCapsule(PduTypeCapsuleCmd, buf)
	_, err := e.conn.Write(pdu)
	return err
}

func (e *endpoint) SendRsp(ctx context.Context, buf []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(transport.MsgTimeout))
	pdu := marshalCapsule(PduTypeCapsuleResp, buf)
	_, err := e.conn.Write(pdu)
	return err
}

func (e *endpoint) RepostRecv(ctx context.Context) error {
	return nil
}

func (e *endpoint) PollForMsg(ctx context.Context) (transport.QueueEntry, []byte, error) {
	e.mu.Lock()
	if e.pending != nil {
		body := e.pending
		e.pending = nil
		e.mu.Unlock()
		return transport.QueueEntry{Index: 0, Length: len(body)}, body, nil
	}
	e.mu.Unlock()

	_ = e.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	hdr, body, err := readPdu(e.conn)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return transport.QueueEntry{}, nil, transport.ErrTryAgain
		}
		return transport.QueueEntry{}, nil, err
	}
	if hdr.PduType != PduTypeCapsuleCmd {
		klog.V(5).Infof("tcp: unexpected pdu type %d polled from %s", hdr.PduType, e)
		return transport.QueueEntry{}, nil, transport.ErrTryAgain
	}
	return transport.QueueEntry{Index: 0, Length: len(body)}, body, nil
}

// tcpMemoryRegion is a no-op registration: NVMe/TCP has no remote key, and
// RMA is implemented by writing a data PDU header then the payload inline.
type tcpMemoryRegion struct{}

func (tcpMemoryRegion) RemoteKey() uint32 { return 0 }

func (e *endpoint) AllocKey(buf []byte) (transport.MemoryRegion, error) {
	return tcpMemoryRegion{}, nil
}

func (e *endpoint) DeallocKey(transport.MemoryRegion) {}

func (e *endpoint) RMARead(ctx context.Context, buf []byte, remoteAddr uint64, length int, remoteKey uint32, mr transport.MemoryRegion) error {
	// TCP has no remote-key based RMA: the peer pushes an H2CData PDU header
	// followed by the payload, which we read here in place of a verbs read.
	hdr, body, err := readPdu(e.conn)
	if err != nil {
		return err
	}
	if hdr.PduType != PduTypeH2CData {
		return fmt.Errorf("tcp: expected h2c_data, got pdu type %d", hdr.PduType)
	}
	dh, err := unmarshalDataPduHeader(body[:dataPduHeaderLen])
	if err != nil {
		return err
	}
	payload := body[dataPduHeaderLen:]
	n := copy(buf, payload)
	_ = dh
	if n < length {
		return fmt.Errorf("tcp: short h2c_data payload (%d of %d)", n, length)
	}
	return nil
}

func (e *endpoint) RMAWrite(ctx context.Context, buf []byte, remoteAddr uint64, remoteKey uint32, mr transport.MemoryRegion, dir transport.Direction) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.conn.SetWriteDeadline(time.Now().Add(transport.MsgTimeout))

	pduType := PduTypeC2HData
	if dir == transport.DirectionHostToController {
		pduType = PduTypeH2CData
	}
	dh := dataPduHeader{CCCID: e.cccid, TTag: 0, DataOffset: 0, DataLength: uint32(len(buf))}
	pdu := dh.marshal(pduType)
	pdu = append(pdu, buf...)
	_, err := e.conn.Write(pdu)
	return err
}
