// Package transport defines the capability set C2 and C3 are written
// against: a uniform endpoint/listener/memory-region/queue abstraction over
// RDMA verbs and NVMe/TCP (spec §4.1). It moves bytes and registers memory;
// it never interprets NVMe command bodies.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrTryAgain is returned by PollForMsg when no message is currently
// available; callers poll again on their own schedule rather than block.
var ErrTryAgain = errors.New("transport: try again")

// ErrTimeout is returned when an operation exceeds its bounded timeout.
var ErrTimeout = errors.New("transport: timeout")

// Direction tells the transport which way an inline-data command moves
// payload, so opcode semantics stay in the protocol engine (spec §9, "TCP
// inline data direction").
type Direction int

const (
	DirectionNone Direction = iota
	DirectionHostToController
	DirectionControllerToHost
)

// MsgTimeout bounds every blocking send/receive operation.
const MsgTimeout = 5 * time.Second

// QueueEntry is a completion-queue style marker returned by PollForMsg,
// carrying just enough to let the protocol engine repost the right slot.
type QueueEntry struct {
	Index  int
	Length int
}

// MemoryRegion is a registered buffer. RDMA's RemoteKey returns the verbs
// rkey; TCP's always returns 0 (spec §4.1).
type MemoryRegion interface {
	RemoteKey() uint32
}

// Endpoint is a single connection's data-plane handle.
type Endpoint interface {
	// PostMsg queues buf for transmission without waiting for completion.
	PostMsg(ctx context.Context, buf []byte) error
	// SendMsg sends buf and waits for local completion.
	SendMsg(ctx context.Context, buf []byte) error
	// SendRsp sends a response capsule for the command most recently polled.
	SendRsp(ctx context.Context, buf []byte) error
	// RepostRecv must be called exactly once per consumed queue entry
	// before the receive pool is exhausted, or the connection stalls.
	RepostRecv(ctx context.Context) error
	// PollForMsg is non-blocking; it returns ErrTryAgain if nothing is ready.
	PollForMsg(ctx context.Context) (QueueEntry, []byte, error)

	// AllocKey registers buf for RDMA access and returns its MemoryRegion.
	AllocKey(buf []byte) (MemoryRegion, error)
	// DeallocKey releases a previously registered region.
	DeallocKey(mr MemoryRegion)

	// RMARead reads length bytes from remoteAddr/remoteKey into buf.
	RMARead(ctx context.Context, buf []byte, remoteAddr uint64, length int, remoteKey uint32, mr MemoryRegion) error
	// RMAWrite writes buf to remoteAddr/remoteKey.
	RMAWrite(ctx context.Context, buf []byte, remoteAddr uint64, remoteKey uint32, mr MemoryRegion, dir Direction) error

	// Close tears down the endpoint.
	Close() error
	// String identifies the endpoint for logging (typically traddr:trsvcid).
	String() string
}

// AcceptToken represents a pending inbound connection handed to the
// pseudo discovery controller by Listener.WaitForConnection.
type AcceptToken interface {
	// ConnectData returns the peer's Connect command payload (hostnqn etc).
	ConnectData() []byte
	// Accept completes the handshake and returns a data-plane Endpoint.
	Accept(ctx context.Context, depth int) (Endpoint, error)
	// Reject completes the handshake with a private-data rejection payload.
	Reject(ctx context.Context, data []byte) error
}

// Listener accepts inbound connections on one transport-specific service.
type Listener interface {
	WaitForConnection(ctx context.Context) (AcceptToken, error)
	Close() error
}

// Transport is the per-variant entry point; pkg/transport/tcp and
// pkg/transport/rdma each provide one.
type Transport interface {
	// InitEndpoint allocates a client-side Endpoint with the given queue
	// depth. The tcp and rdma transports do not support it and always return
	// an error; their endpoints come only from ClientConnect or Accept.
	InitEndpoint(depth int) (Endpoint, error)
	// InitListener starts listening on service (host:port or equivalent).
	InitListener(service string) (Listener, error)
	// ClientConnect dials dest and completes the transport handshake. Neither
	// the tcp nor the rdma transport sends connectData to the peer.
	ClientConnect(ctx context.Context, dest string, connectData []byte) (Endpoint, error)
	// BuildConnectData builds the private-data payload a client Connect carries.
	BuildConnectData(hostNQN string) []byte
	// Name identifies the transport for logging and Portid.TrType matching.
	Name() string
}
