package bus

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/cortexrt/runtime/internal/envelope"
)

// headerMessageType is the wire header spec §6.1 calls "cortex-message-type":
// it is what tells a receiver which concrete Go type to reconstruct before
// dispatch, independent of anything in the JSON body.
const headerMessageType = "cortex-message-type"

// NatsBus is the production Bus transport (spec §4.2) over JetStream. The
// spec's AMQP-flavored wire description — topic exchange, per-queue durable
// binding, dead-letter exchange — is mapped onto JetStream's nearest
// equivalents: a durable stream covering every agent.* subject, one durable
// AckExplicit consumer per bound queue, and Term()+republish for
// dead-lettering in place of a broker-native DLX.
type NatsBus struct {
	nc         *nats.Conn
	js         jetstream.JetStream
	stream     jetstream.Stream
	streamName string
	dlqSubject string
	logger     *log.Logger
	dlq        DeadLetterSink

	mu        sync.Mutex
	consumers map[*natsConsumer]struct{}
}

// NewNatsBus connects a JetStream context to streamName, creating it if
// absent, bound to subjects (e.g. "agent.>", dlqSubject). dlq additionally
// receives every dead-lettered envelope in-process, for tests and for
// components (like the supervision service) that also want to observe them.
func NewNatsBus(ctx context.Context, nc *nats.Conn, streamName string, subjects []string, dlqSubject string, dlq DeadLetterSink, logger *log.Logger) (*NatsBus, error) {
	if logger == nil {
		logger = log.Default()
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("bus: jetstream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  subjects,
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: create or update stream %s: %w", streamName, err)
	}

	return &NatsBus{
		nc:         nc,
		js:         js,
		stream:     stream,
		streamName: streamName,
		dlqSubject: dlqSubject,
		dlq:        dlq,
		logger:     logger,
		consumers:  make(map[*natsConsumer]struct{}),
	}, nil
}

// PublishAsync publishes env to queueName (the subject, e.g. "agent.cos"),
// stamping the cortex-message-type header from env.Message.Type(), spec
// §6.1. JetStream publish blocks for the broker's ack, so a nil error is a
// durable at-least-once production guarantee (spec §4.2).
func (b *NatsBus) PublishAsync(ctx context.Context, env envelope.Envelope, queueName string) error {
	body, msgType, err := Encode(env)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: queueName,
		Data:    body,
		Header:  nats.Header{headerMessageType: []string{msgType}},
	}
	if _, err := b.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("bus: publish to %s: %w", queueName, err)
	}
	return nil
}

type natsConsumer struct {
	bus     *NatsBus
	queue   string
	cancel  context.CancelFunc
	done    chan struct{}
}

func (c *natsConsumer) Queue() string { return c.queue }

func (c *natsConsumer) Release(ctx context.Context) error {
	c.cancel()
	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.bus.mu.Lock()
	delete(c.bus.consumers, c)
	c.bus.mu.Unlock()
	return nil
}

// consumerName derives a durable consumer name from a subject, since
// JetStream durable names may not contain '.'.
func consumerName(queueName string) string {
	return "cortex-" + strings.ReplaceAll(queueName, ".", "-")
}

// StartConsumingAsync binds a durable AckExplicit consumer to queueName and
// runs its handler with prefetch 1 — one message fetched, processed to
// completion, acked or dead-lettered, before the next fetch (spec §4.2 "each
// consumer runs its handler sequentially").
func (b *NatsBus) StartConsumingAsync(ctx context.Context, queueName string, handler Handler) (ConsumerHandle, error) {
	consumer, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       consumerName(queueName),
		FilterSubject: queueName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       2 * time.Minute,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("bus: create consumer for %s: %w", queueName, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	c := &natsConsumer{bus: b, queue: queueName, cancel: cancel, done: make(chan struct{})}

	b.mu.Lock()
	b.consumers[c] = struct{}{}
	b.mu.Unlock()

	go b.consumeLoop(cctx, c, consumer, handler)

	return c, nil
}

func (b *NatsBus) consumeLoop(ctx context.Context, c *natsConsumer, consumer jetstream.Consumer, handler Handler) {
	defer close(c.done)
	for {
		if ctx.Err() != nil {
			return
		}
		batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		for msg := range batch.Messages() {
			b.handleOne(ctx, c.queue, msg, handler)
		}
		if err := batch.Error(); err != nil && err != context.DeadlineExceeded {
			b.logger.Printf("bus: fetch error on %s: %v", c.queue, err)
		}
	}
}

func (b *NatsBus) handleOne(ctx context.Context, queueName string, msg jetstream.Msg, handler Handler) {
	msgType := msg.Headers().Get(headerMessageType)
	env, err := Decode(msg.Data(), msgType)
	if err != nil {
		b.deadLetter(ctx, queueName, msg, nil, fmt.Sprintf("deserialize: %v", err))
		return
	}

	if err := handler(ctx, env); err != nil {
		b.deadLetter(ctx, queueName, msg, &env, err.Error())
		return
	}

	if err := msg.Ack(); err != nil {
		b.logger.Printf("bus: ack failed on %s: %v", queueName, err)
	}
}

// deadLetter terminates redelivery for msg (spec §4.2 "nacks without
// requeue") and republishes it to the configured dead-letter subject, the
// JetStream stand-in for a broker-native dead-letter exchange.
func (b *NatsBus) deadLetter(ctx context.Context, queueName string, msg jetstream.Msg, env *envelope.Envelope, reason string) {
	if err := msg.Term(); err != nil {
		b.logger.Printf("bus: term failed on %s: %v", queueName, err)
	}
	if b.dlqSubject != "" {
		if _, err := b.js.Publish(ctx, b.dlqSubject, msg.Data()); err != nil {
			b.logger.Printf("bus: dead-letter republish failed on %s: %v", queueName, err)
		}
	}
	if b.dlq != nil {
		var e envelope.Envelope
		if env != nil {
			e = *env
		}
		b.dlq.DeadLetter(ctx, DeadLetter{Queue: queueName, Reason: reason, Envelope: e})
	}
}

// StopConsumingAsync stops every consumer owned by this bus, spec §4.2.
func (b *NatsBus) StopConsumingAsync(ctx context.Context) error {
	b.mu.Lock()
	consumers := make([]*natsConsumer, 0, len(b.consumers))
	for c := range b.consumers {
		consumers = append(consumers, c)
	}
	b.mu.Unlock()

	for _, c := range consumers {
		if err := c.Release(ctx); err != nil {
			return fmt.Errorf("bus: stop consumer on %s: %w", c.queue, err)
		}
	}
	return nil
}

// GetTopologyAsync reports the queue bindings currently active on this bus.
func (b *NatsBus) GetTopologyAsync(ctx context.Context) (Topology, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	top := Topology{Bindings: make([]Binding, 0, len(b.consumers))}
	for c := range b.consumers {
		top.Bindings = append(top.Bindings, Binding{Queue: c.queue, RoutingKey: c.queue})
	}
	return top, nil
}
