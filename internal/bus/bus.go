// Package bus implements the message bus contract of spec §4.2: routing,
// per-consumer lifecycle, dead-lettering, envelope serialisation.
package bus

import (
	"context"
	"errors"

	"github.com/cortexrt/runtime/internal/envelope"
)

// Handler processes one envelope. A returned error is a handler failure
// (spec §4.2 "if the handler raises, the bus nacks without requeue, routing
// the envelope to the dead-letter sink").
type Handler func(ctx context.Context, env envelope.Envelope) error

// ConsumerHandle is returned by StartConsumingAsync. Release stops only
// this consumer — spec §9 "Per-consumer handle returned from Start... do
// not implement Stop as a bus-wide toggle."
type ConsumerHandle interface {
	Release(ctx context.Context) error
	Queue() string
}

// Topology reports the bindings known to the bus (empty for the in-memory
// variant, spec §4.2).
type Topology struct {
	Bindings []Binding
}

type Binding struct {
	Queue      string
	RoutingKey string
}

// DeadLetter is the terminal record for a permanently unprocessable
// envelope, spec §7 "Dead letters are the authoritative record of
// unprocessable envelopes."
type DeadLetter struct {
	Queue   string
	Reason  string
	Envelope envelope.Envelope
}

// Bus is the C2 contract. Implementations: the in-memory reference bus
// (memory.go) and the NATS JetStream-backed production transport
// (nats_bus.go).
type Bus interface {
	PublishAsync(ctx context.Context, env envelope.Envelope, queueName string) error
	StartConsumingAsync(ctx context.Context, queueName string, handler Handler) (ConsumerHandle, error)
	StopConsumingAsync(ctx context.Context) error
	GetTopologyAsync(ctx context.Context) (Topology, error)
}

// DeadLetterSink receives envelopes the bus could not deliver successfully.
// Both bus implementations accept one at construction. With a nil sink,
// MemoryBus logs the dead letter and drops it; NatsBus still terminates the
// message and republishes it to its dead-letter subject when one is set.
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, dl DeadLetter)
}

var (
	ErrConsumerStopped   = errors.New("bus: consumer stopped")
	ErrUnknownMessageType = errors.New("bus: unknown or missing cortex-message-type header")
)
