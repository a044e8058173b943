// Package rdma is a software stand-in for the RDMA verbs transport.
//
// The original discovery daemon links against libibverbs/librdmacm; those
// bindings require cgo and a kernel driver, neither available to this
// module (recorded as an Open Question resolution in DESIGN.md). This
// package preserves the verbs-shaped capability surface — registered
// memory regions with synthetic remote keys, RMA read/write against those
// keys — over an in-process connection, so pkg/discoveryctrl and
// pkg/nvmeof are written once against transport.Transport and exercise
// real RDMA semantics (remote_key, rma_read/rma_write) in tests without
// needing real fabric hardware.
package rdma

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nvme-dem/nvme-dem/pkg/transport"
)

// registry simulates the fabric: a named listener accepts Dial calls
// against the same service name via an in-process net.Pipe.
var (
	registryMu sync.Mutex
	registry   = map[string]*Transport{}
)

// Transport implements transport.Transport with software RDMA semantics.
type Transport struct {
	mu       sync.Mutex
	service  string
	pending  chan pendingConn
	listener bool
}

// pendingConn carries an accepted connection plus the region table shared
// with its peer: since there is no real remote memory, RMA read/write on a
// software connection resolve against the region the OTHER end registered,
// looked up in this shared, rkey-keyed table.
type pendingConn struct {
	conn   net.Conn
	shared *sharedRegions
}

// sharedRegions is the rkey table a connected pair of endpoints both see,
// standing in for real fabric-addressable memory.
type sharedRegions struct {
	mu      sync.Mutex
	regions map[uint32]*region
}

// New returns a fresh software-RDMA transport, not yet bound to a service.
func New() *Transport {
	return &Transport{}
}

func (*Transport) Name() string { return "rdma" }

func (*Transport) BuildConnectData(hostNQN string) []byte {
	data := make([]byte, 256)
	copy(data, hostNQN)
	return data
}

func (t *Transport) InitEndpoint(depth int) (transport.Endpoint, error) {
	return nil, errors.New("rdma: InitEndpoint requires an accepted or dialed connection")
}

func (t *Transport) InitListener(service string) (transport.Listener, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[service]; ok {
		return nil, fmt.Errorf("rdma: service %q already bound", service)
	}
	t.service = service
	t.pending = make(chan pendingConn, 16)
	t.listener = true
	registry[service] = t
	return &listener{t: t}, nil
}

func (t *Transport) ClientConnect(ctx context.Context, dest string, connectData []byte) (transport.Endpoint, error) {
	registryMu.Lock()
	target, ok := registry[dest]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("rdma: no listener bound for %q", dest)
	}

	client, server := net.Pipe()
	shared := &sharedRegions{regions: make(map[uint32]*region)}
	select {
	case target.pending <- pendingConn{conn: server, shared: shared}:
	case <-ctx.Done():
		client.Close()
		server.Close()
		return nil, ctx.Err()
	}
	ep := newEndpoint(client, dest, shared)
	ep.connectData = connectData
	return ep, nil
}

type listener struct {
	t *Transport
}

func (l *listener) Close() error {
	registryMu.Lock()
	delete(registry, l.t.service)
	registryMu.Unlock()
	return nil
}

func (l *listener) WaitForConnection(ctx context.Context) (transport.AcceptToken, error) {
	select {
	case pc := <-l.t.pending:
		return &acceptToken{t: l.t, pc: pc}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type acceptToken struct {
	t  *Transport
	pc pendingConn
}

func (a *acceptToken) ConnectData() []byte { return nil }

func (a *acceptToken) Accept(ctx context.Context, depth int) (transport.Endpoint, error) {
	return newEndpoint(a.pc.conn, "accepted", a.pc.shared), nil
}

func (a *acceptToken) Reject(ctx context.Context, data []byte) error {
	defer a.pc.conn.Close()
	_, err := a.pc.conn.Write(data)
	return err
}

// region is a registered memory buffer with a synthetic remote key,
// standing in for a verbs memory region.
type region struct {
	key uint32
	buf []byte
	mu  sync.Mutex
}

func (r *region) RemoteKey() uint32 { return r.key }

type endpoint struct {
	conn        net.Conn
	peer        string
	connectData []byte
	shared      *sharedRegions
}

func newEndpoint(conn net.Conn, peer string, shared *sharedRegions) *endpoint {
	return &endpoint{conn: conn, peer: peer, shared: shared}
}

func (e *endpoint) String() string { return "rdma:" + e.peer }

func (e *endpoint) Close() error { return e.conn.Close() }

func (e *endpoint) PostMsg(ctx context.Context, buf []byte) error {
	return e.SendMsg(ctx, buf)
}

func (e *endpoint) SendMsg(ctx context.Context, buf []byte) error {
	_ = e.conn.SetWriteDeadline(time.Now().Add(transport.MsgTimeout))
	_, err := e.conn.Write(buf)
	return err
}

func (e *endpoint) SendRsp(ctx context.Context, buf []byte) error {
	return e.SendMsg(ctx, buf)
}

func (e *endpoint) RepostRecv(ctx context.Context) error { return nil }

func (e *endpoint) PollForMsg(ctx context.Context) (transport.QueueEntry, []byte, error) {
	_ = e.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	buf := make([]byte, 4096)
	n, err := e.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return transport.QueueEntry{}, nil, transport.ErrTryAgain
		}
		return transport.QueueEntry{}, nil, err
	}
	return transport.QueueEntry{Index: 0, Length: n}, buf[:n], nil
}

var globalRkey uint32

func (e *endpoint) AllocKey(buf []byte) (transport.MemoryRegion, error) {
	key := atomic.AddUint32(&globalRkey, 1)
	r := &region{key: key, buf: buf}
	e.shared.mu.Lock()
	e.shared.regions[key] = r
	e.shared.mu.Unlock()
	return r, nil
}

func (e *endpoint) DeallocKey(mr transport.MemoryRegion) {
	r, ok := mr.(*region)
	if !ok {
		return
	}
	e.shared.mu.Lock()
	delete(e.shared.regions, r.key)
	e.shared.mu.Unlock()
}

// RMARead copies from the region identified by remoteKey into buf,
// mirroring a verbs RDMA_READ against a region the peer had registered and
// advertised. The region table is shared with the peer endpoint (see
// sharedRegions) since software loopback has no real remote memory.
func (e *endpoint) RMARead(ctx context.Context, buf []byte, remoteAddr uint64, length int, remoteKey uint32, mr transport.MemoryRegion) error {
	e.shared.mu.Lock()
	r, ok := e.shared.regions[remoteKey]
	e.shared.mu.Unlock()
	if !ok {
		return fmt.Errorf("rdma: unknown remote key %d", remoteKey)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := copy(buf, r.buf)
	if n < length {
		return fmt.Errorf("rdma: short region (%d of %d)", n, length)
	}
	return nil
}

// RMAWrite copies buf into the locally-registered region identified by
// remoteKey, mirroring a verbs RDMA_WRITE. dir is accepted for interface
// symmetry with the TCP transport; RDMA needs no direction hint since the
// verb itself (read vs write) already encodes it.
func (e *endpoint) RMAWrite(ctx context.Context, buf []byte, remoteAddr uint64, remoteKey uint32, mr transport.MemoryRegion, dir transport.Direction) error {
	e.shared.mu.Lock()
	r, ok := e.shared.regions[remoteKey]
	e.shared.mu.Unlock()
	if !ok {
		return fmt.Errorf("rdma: unknown remote key %d", remoteKey)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.buf, buf)
	return nil
}
