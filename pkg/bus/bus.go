package bus

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meshx-protocol/meshx-go/pkg/log"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// Bus errors.
var (
	// ErrClosed is returned by Publish after Stop.
	ErrClosed = errors.New("bus is closed")
)

// DefaultMailboxDepth is the default bounded mailbox capacity.
const DefaultMailboxDepth = 10

// Handler processes one dispatched envelope. It runs on the consumer
// goroutine; the payload is only valid for the duration of the call.
// A handler may call Publish, which re-enters the queue rather than
// the dispatch loop.
type Handler func(ctx context.Context, event Event, payload []byte) error

// Registration is the token identifying one (mask, handler) entry.
// Go functions are not comparable, so unsubscribing is by token rather
// than by callback value.
type Registration struct {
	category Category
	mask     Event
	handler  Handler
}

// Category returns the category the registration was made under.
func (r *Registration) Category() Category { return r.category }

// Mask returns the registered event mask.
func (r *Registration) Mask() Event { return r.mask }

// Config configures a Bus.
type Config struct {
	// MailboxDepth is the bounded mailbox capacity.
	// Zero means DefaultMailboxDepth.
	MailboxDepth int

	// Logger receives trace events. Nil disables tracing.
	Logger log.Logger
}

// Bus is the control task: a multi-producer, single-consumer event bus.
type Bus struct {
	mu       sync.RWMutex
	registry [categoryCount][]*Registration

	mailbox chan Envelope
	logger  log.Logger

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Bus with the given configuration. The mailbox accepts
// envelopes immediately; dispatch begins once Start is called.
func New(cfg Config) *Bus {
	depth := cfg.MailboxDepth
	if depth <= 0 {
		depth = DefaultMailboxDepth
	}
	b := &Bus{
		mailbox: make(chan Envelope, depth),
		logger:  log.OrNoop(cfg.Logger),
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	return b
}

// Start launches the consumer goroutine. Starting a running bus is a no-op.
func (b *Bus) Start() {
	if b.running.Swap(true) {
		return
	}

	b.wg.Add(1)
	go b.run()
}

// Stop cancels the consumer and waits for it to finish the envelope it
// is dispatching. Envelopes still queued are discarded and blocked
// publishers are released with ErrClosed. A stopped bus cannot be
// restarted.
func (b *Bus) Stop() {
	if !b.running.Swap(false) {
		return
	}

	b.cancel()
	b.wg.Wait()
}

// Publish copies the payload into a new envelope and enqueues it.
// The send blocks while the mailbox is full - deliberate backpressure,
// no drop, no timeout. Returns ErrClosed once the bus has stopped and
// mesh.ErrInvalidArgument for an out-of-range category.
func (b *Bus) Publish(category Category, event Event, payload []byte) error {
	if !category.Valid() {
		return fmt.Errorf("bus: category %d out of range: %w", category, mesh.ErrInvalidArgument)
	}

	env := Envelope{Category: category, Event: event}
	if len(payload) > 0 {
		env.Payload = make([]byte, len(payload))
		copy(env.Payload, payload)
	}

	b.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleBus,
		Direction: log.DirectionInternal,
		Category:  log.CategoryEnvelope,
		Envelope: &log.EnvelopeEvent{
			BusCategory: uint8(category),
			EventMask:   uint32(event),
			PayloadSize: len(env.Payload),
		},
	})

	// A select with a ready buffered send can win against the cancelled
	// context, which would queue the envelope on a dead mailbox and
	// report success. Check the context first so a publish that starts
	// after Stop always fails.
	if b.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case b.mailbox <- env:
		return nil
	case <-b.ctx.Done():
		return ErrClosed
	}
}

// Subscribe registers a handler for the events in mask under the given
// category and returns the registration token used to unsubscribe.
// Duplicate registrations are allowed by design; registering the same
// handler under a second mask yields a second, independent entry.
func (b *Bus) Subscribe(category Category, mask Event, handler Handler) (*Registration, error) {
	if handler == nil {
		return nil, fmt.Errorf("bus: nil handler: %w", mesh.ErrInvalidArgument)
	}
	if mask == 0 {
		return nil, fmt.Errorf("bus: empty event mask: %w", mesh.ErrInvalidArgument)
	}
	if !category.Valid() {
		return nil, fmt.Errorf("bus: category %d out of range: %w", category, mesh.ErrInvalidArgument)
	}

	reg := &Registration{category: category, mask: mask, handler: handler}

	b.mu.Lock()
	b.registry[category] = append(b.registry[category], reg)
	b.mu.Unlock()

	return reg, nil
}

// Unsubscribe removes the registration. Returns mesh.ErrNotFound if the
// registration was never made or has already been removed.
func (b *Bus) Unsubscribe(reg *Registration) error {
	if reg == nil {
		return fmt.Errorf("bus: nil registration: %w", mesh.ErrInvalidArgument)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.registry[reg.category]
	for i, r := range regs {
		if r == reg {
			b.registry[reg.category] = append(regs[:i], regs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("bus: registration not present: %w", mesh.ErrNotFound)
}

// Subscribers returns the number of registrations under a category.
func (b *Bus) Subscribers(category Category) int {
	if !category.Valid() {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.registry[category])
}

// run is the consumer loop. It receives envelopes in FIFO order and
// dispatches each one fully before taking the next.
func (b *Bus) run() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case env := <-b.mailbox:
			b.dispatch(env)
		}
	}
}

// dispatch fans one envelope out to every matching registration.
// Handler errors are logged and do not abort fan-out; nothing is
// propagated back to the publisher.
func (b *Bus) dispatch(env Envelope) {
	b.mu.RLock()
	regs := slices.Clone(b.registry[env.Category])
	b.mu.RUnlock()

	if len(regs) == 0 {
		b.logError(fmt.Sprintf("no subscriber for category %s", env.Category), "dispatch")
		return
	}

	matched := 0
	for _, reg := range regs {
		if reg.mask&env.Event == 0 {
			continue
		}
		matched++
		if err := reg.handler(b.ctx, env.Event, env.Payload); err != nil {
			b.logError(err.Error(), fmt.Sprintf("handler on %s", env.Category))
		}
	}

	b.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleBus,
		Direction: log.DirectionInternal,
		Category:  log.CategoryEnvelope,
		Envelope: &log.EnvelopeEvent{
			BusCategory: uint8(env.Category),
			EventMask:   uint32(env.Event),
			PayloadSize: len(env.Payload),
			Matched:     &matched,
		},
	})
}

// logError emits an error trace event.
func (b *Bus) logError(msg, context string) {
	b.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleBus,
		Direction: log.DirectionInternal,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: msg, Context: context},
	})
}
