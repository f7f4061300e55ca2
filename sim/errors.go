package sim

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every failure returned by the engine wraps exactly one of
// these, so callers can branch with errors.Is and extract entity names with
// errors.As on the typed errors below.
var (
	ErrUnsupportedNetwork         = errors.New("unsupported network type")
	ErrNotConnected               = errors.New("not connected")
	ErrDefaultGatewayNotFound     = errors.New("default gateway not found")
	ErrBufferNotAssigned          = errors.New("buffer not assigned")
	ErrQuantumChannelDoesNotExist = errors.New("quantum channel does not exist")
	ErrQubitLoss                  = errors.New("qubit lost")
	ErrPairAdapterAlreadyExists   = errors.New("pair adapter already exists")
	ErrPairAdapterDoesNotExist    = errors.New("pair adapter does not exist")
	ErrNodesNotFound              = errors.New("nodes not found")
	ErrDuplicateNode              = errors.New("duplicate node name")
)

// UnsupportedNetworkError reports a node attached to (or used against) a
// network of the wrong type.
type UnsupportedNetworkError struct {
	Network     string
	NetworkType NetworkType
	Node        string
	NodeType    NodeType
}

func (e *UnsupportedNetworkError) Error() string {
	return fmt.Sprintf("unsupported network type: network %s is of type %s, node %s (%s) expects otherwise",
		e.Network, e.NetworkType, e.Node, e.NodeType)
}

func (e *UnsupportedNetworkError) Unwrap() error { return ErrUnsupportedNetwork }

// NotConnectedError reports a missing link or channel between two nodes.
type NotConnectedError struct {
	From string
	To   string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("connection not found between %s and %s", e.From, e.To)
}

func (e *NotConnectedError) Unwrap() error { return ErrNotConnected }

// DefaultGatewayNotFoundError reports a node with no route or gateway
// towards a packet's destination.
type DefaultGatewayNotFoundError struct {
	Node        string
	Destination string
}

func (e *DefaultGatewayNotFoundError) Error() string {
	if e.Destination == "" {
		return fmt.Sprintf("default gateway not found for node %s", e.Node)
	}
	return fmt.Sprintf("default gateway not found for node %s (destination %s)", e.Node, e.Destination)
}

func (e *DefaultGatewayNotFoundError) Unwrap() error { return ErrDefaultGatewayNotFound }

// BufferNotAssignedError reports a forwarding decision towards a peer for
// which no link buffer was initialized.
type BufferNotAssignedError struct {
	From string
	To   string
}

func (e *BufferNotAssignedError) Error() string {
	return fmt.Sprintf("buffer not assigned for %s in %s", e.To, e.From)
}

func (e *BufferNotAssignedError) Unwrap() error { return ErrBufferNotAssigned }

// QuantumChannelDoesNotExistError reports a quantum host lacking a channel
// to an expected peer.
type QuantumChannelDoesNotExistError struct {
	Host string
	Peer string
}

func (e *QuantumChannelDoesNotExistError) Error() string {
	return fmt.Sprintf("quantum channel does not exist on qhost %s towards %s", e.Host, e.Peer)
}

func (e *QuantumChannelDoesNotExistError) Unwrap() error { return ErrQuantumChannelDoesNotExist }

// QubitLossError describes a qubit lost in transit. Channel transmissions
// report it inside a Transmission result; it is only returned as an error
// by protocols that cannot proceed without the lost qubits.
type QubitLossError struct {
	Channel   string
	ChannelID ChannelID
	QubitID   int64
}

func (e *QubitLossError) Error() string {
	return fmt.Sprintf("qubit %d lost due to accumulated loss on channel %s", e.QubitID, e.Channel)
}

func (e *QubitLossError) Unwrap() error { return ErrQubitLoss }

// PairAdapterAlreadyExistsError reports a second pairing attempt.
type PairAdapterAlreadyExistsError struct {
	Adapter string
	Pair    string
}

func (e *PairAdapterAlreadyExistsError) Error() string {
	return fmt.Sprintf("pair adapter (%s) already exists for adapter %s", e.Pair, e.Adapter)
}

func (e *PairAdapterAlreadyExistsError) Unwrap() error { return ErrPairAdapterAlreadyExists }

// PairAdapterDoesNotExistError reports a query against an unpaired adapter.
type PairAdapterDoesNotExistError struct {
	Adapter string
}

func (e *PairAdapterDoesNotExistError) Error() string {
	return fmt.Sprintf("pair adapter does not exist for adapter %s", e.Adapter)
}

func (e *PairAdapterDoesNotExistError) Unwrap() error { return ErrPairAdapterDoesNotExist }

// NodesNotFoundError lists node names that could not be resolved.
type NodesNotFoundError struct {
	Names []string
}

func (e *NodesNotFoundError) Error() string {
	return fmt.Sprintf("nodes not found: %s", strings.Join(e.Names, ", "))
}

func (e *NodesNotFoundError) Unwrap() error { return ErrNodesNotFound }

// ErrorCategory groups error kinds by how a driver should dispose of them.
type ErrorCategory string

const (
	// CategoryConfiguration errors are detected while building a World and
	// are fatal to that build.
	CategoryConfiguration ErrorCategory = "configuration"
	// CategoryRouting errors signal a topology inconsistency reached at
	// runtime; the driver skips the operation or aborts the run.
	CategoryRouting ErrorCategory = "routing"
	// CategoryPhysical covers expected physical-layer outcomes (qubit loss).
	CategoryPhysical ErrorCategory = "physical"
	CategoryUnknown  ErrorCategory = "unknown"
)

// Categorize maps an error onto its disposition category.
func Categorize(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedNetwork),
		errors.Is(err, ErrPairAdapterAlreadyExists),
		errors.Is(err, ErrPairAdapterDoesNotExist),
		errors.Is(err, ErrDuplicateNode):
		return CategoryConfiguration
	case errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrDefaultGatewayNotFound),
		errors.Is(err, ErrBufferNotAssigned),
		errors.Is(err, ErrQuantumChannelDoesNotExist),
		errors.Is(err, ErrNodesNotFound):
		return CategoryRouting
	case errors.Is(err, ErrQubitLoss):
		return CategoryPhysical
	default:
		return CategoryUnknown
	}
}
