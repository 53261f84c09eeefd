package bus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/cortexrt/runtime/internal/envelope"
)

// queueState is an unbounded FIFO per queue name. A slice+condvar (rather
// than a fixed-size channel) matches spec §4.2's "the in-memory reference
// implementation retains messages until consumed" — no producer should
// ever block on a full buffer.
type queueState struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []envelope.Envelope
	closed  bool
}

func newQueueState() *queueState {
	q := &queueState{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queueState) push(env envelope.Envelope) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, env)
	q.cond.Signal()
}

// pop blocks until an item is available, the queue is closed, or ctx is
// done. ok is false on close/cancellation.
func (q *queueState) pop(ctx context.Context) (envelope.Envelope, bool) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			q.mu.Lock()
			q.cond.Broadcast()
			q.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		if ctx.Err() != nil {
			return envelope.Envelope{}, false
		}
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return envelope.Envelope{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// MemoryBus is the in-memory reference transport of spec §4.2: FIFO per
// queue, exactly-once ordered delivery, independent per-consumer handles.
type MemoryBus struct {
	mu        sync.Mutex
	queues    map[string]*queueState
	consumers map[*memoryConsumer]struct{}
	dlq       DeadLetterSink
}

func NewMemoryBus(dlq DeadLetterSink) *MemoryBus {
	return &MemoryBus{queues: make(map[string]*queueState), consumers: make(map[*memoryConsumer]struct{}), dlq: dlq}
}

func (b *MemoryBus) queue(name string) *queueState {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[name]
	if !ok {
		q = newQueueState()
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBus) PublishAsync(ctx context.Context, env envelope.Envelope, queueName string) error {
	b.queue(queueName).push(env)
	return nil
}

type memoryConsumer struct {
	bus     *MemoryBus
	queue   string
	cancel  context.CancelFunc
	done    chan struct{}
}

func (c *memoryConsumer) Queue() string { return c.queue }

func (c *memoryConsumer) Release(ctx context.Context) error {
	c.cancel()
	<-c.done
	c.bus.mu.Lock()
	delete(c.bus.consumers, c)
	c.bus.mu.Unlock()
	return nil
}

// StartConsumingAsync starts a dedicated goroutine consuming queueName with
// prefetch 1: the handler runs to completion for each envelope before the
// next is pulled (spec §4.2 "Each consumer runs its handler sequentially").
func (b *MemoryBus) StartConsumingAsync(ctx context.Context, queueName string, handler Handler) (ConsumerHandle, error) {
	q := b.queue(queueName)
	cctx, cancel := context.WithCancel(ctx)
	c := &memoryConsumer{bus: b, queue: queueName, cancel: cancel, done: make(chan struct{})}

	b.mu.Lock()
	b.consumers[c] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer close(c.done)
		for {
			env, ok := q.pop(cctx)
			if !ok {
				return
			}
			if err := handler(cctx, env); err != nil {
				if b.dlq != nil {
					b.dlq.DeadLetter(cctx, DeadLetter{Queue: queueName, Reason: err.Error(), Envelope: env})
				} else {
					log.Printf("bus: dead-lettered on %s, no sink configured: %v", queueName, err)
				}
				continue
			}
		}
	}()

	return c, nil
}

// StopConsumingAsync stops every consumer owned by this bus, spec §4.2.
func (b *MemoryBus) StopConsumingAsync(ctx context.Context) error {
	b.mu.Lock()
	consumers := make([]*memoryConsumer, 0, len(b.consumers))
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

func (b *MemoryBus) GetTopologyAsync(ctx context.Context) (Topology, error) {
	return Topology{}, nil
}
