// Package loopstack provides an in-process loopback implementation of
// the mesh.Stack interface: client requests are delivered to the local
// server adapters through the bus, and server statuses travel back to
// the client adapters the same way. Used by the demo binary and the
// end-to-end tests; a real node would bind these calls to the vendor
// mesh stack instead.
package loopstack

import (
	"fmt"
	"sync"
	"time"

	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/log"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
	"github.com/meshx-protocol/meshx-go/pkg/model"
)

// DefaultAckTimeout is the simulated response timeout for acknowledged
// requests that go undelivered.
const DefaultAckTimeout = 50 * time.Millisecond

// Config configures a loopback stack.
type Config struct {
	// Bus carries the simulated stack callbacks. Required.
	Bus *bus.Bus

	// Logger receives trace events.
	Logger log.Logger

	// NodeAddr is the local unicast address, used as the source of
	// outbound requests and as the reply destination.
	NodeAddr mesh.Address

	// AckTimeout is how long an undelivered acknowledged request waits
	// before a timeout callback fires. Zero means DefaultAckTimeout.
	AckTimeout time.Duration
}

type groupKey struct {
	model mesh.ModelID
	group mesh.Address
}

// Stack is the loopback mesh.Stack.
type Stack struct {
	bus        *bus.Bus
	logger     log.Logger
	nodeAddr   mesh.Address
	ackTimeout time.Duration

	mu     sync.Mutex
	groups map[groupKey]bool
	drop   bool
}

// New creates a loopback stack.
func New(cfg Config) (*Stack, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("loopstack: nil bus: %w", mesh.ErrInvalidArgument)
	}
	timeout := cfg.AckTimeout
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	return &Stack{
		bus:        cfg.Bus,
		logger:     log.OrNoop(cfg.Logger),
		nodeAddr:   cfg.NodeAddr,
		ackTimeout: timeout,
		groups:     make(map[groupKey]bool),
	}, nil
}

// SetDrop toggles request delivery. While dropping, client requests
// never reach the servers; acknowledged ones time out instead.
func (s *Stack) SetDrop(drop bool) {
	s.mu.Lock()
	s.drop = drop
	s.mu.Unlock()
}

// Subscribe adds a (model, group) subscription answered by
// IsGroupSubscribed.
func (s *Stack) Subscribe(modelID mesh.ModelID, group mesh.Address) {
	s.mu.Lock()
	s.groups[groupKey{modelID, group}] = true
	s.mu.Unlock()
}

// Unsubscribe removes a (model, group) subscription.
func (s *Stack) Unsubscribe(modelID mesh.ModelID, group mesh.Address) {
	s.mu.Lock()
	delete(s.groups, groupKey{modelID, group})
	s.mu.Unlock()
}

// IsGroupSubscribed implements mesh.Stack.
func (s *Stack) IsGroupSubscribed(modelID mesh.ModelID, group mesh.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[groupKey{modelID, group}]
}

// SendClientMessage implements mesh.Stack: the request is re-published
// as a CallbackRequest envelope for the matching server adapter. When
// delivery is dropped, acknowledged requests produce a delayed
// CallbackTimeout toward the client adapter instead.
func (s *Stack) SendClientMessage(req *mesh.ClientRequest) error {
	serverEvent, clientEvent, err := eventsFor(req.Opcode)
	if err != nil {
		return err
	}

	s.mu.Lock()
	drop := s.drop
	s.mu.Unlock()

	if drop {
		if req.Opcode.IsAcknowledged() {
			s.scheduleTimeout(req, clientEvent)
		}
		return nil
	}

	cb := &model.StackCallback{
		Kind: model.CallbackRequest,
		Ctx: mesh.Context{
			SrcAddr: s.nodeAddr,
			DstAddr: req.Dest,
			Opcode:  req.Opcode,
			NetIdx:  req.NetIdx,
			AppIdx:  req.AppIdx,
		},
	}
	switch p := req.Payload.(type) {
	case nil:
	case *mesh.GenOnOffSet:
		cb.OnOffSet = p
	case *mesh.LightCTLSet:
		cb.CTLSet = p
	case *mesh.LightCTLTemperatureSet:
		cb.TemperatureSet = p
	case *mesh.LightCTLTemperatureRangeSet:
		cb.RangeSet = p
	default:
		return fmt.Errorf("loopstack: payload type %T: %w", req.Payload, mesh.ErrNotSupported)
	}

	return s.deliver(serverEvent, cb)
}

// SendServerStatus implements mesh.Stack: the status is re-published as
// a CallbackStatus envelope for the matching client adapter.
func (s *Stack) SendServerStatus(st *mesh.ServerStatus) error {
	_, clientEvent, err := eventsFor(st.Opcode)
	if err != nil {
		return err
	}

	status := st.Status
	cb := &model.StackCallback{
		Kind: model.CallbackStatus,
		Ctx: mesh.Context{
			SrcAddr: s.nodeAddr,
			DstAddr: st.Dest,
			Opcode:  st.Opcode,
			NetIdx:  st.NetIdx,
			AppIdx:  st.AppIdx,
		},
		Code:   mesh.StatusSuccess,
		Status: &status,
	}
	return s.deliver(clientEvent, cb)
}

// scheduleTimeout fires a CallbackTimeout for an undelivered
// acknowledged request after the configured delay.
func (s *Stack) scheduleTimeout(req *mesh.ClientRequest, clientEvent bus.Event) {
	cb := &model.StackCallback{
		Kind: model.CallbackTimeout,
		Ctx: mesh.Context{
			SrcAddr: s.nodeAddr,
			DstAddr: req.Dest,
			Opcode:  req.Opcode,
		},
		Code: mesh.StatusTimeout,
		TID:  payloadTID(req.Payload),
	}
	time.AfterFunc(s.ackTimeout, func() {
		if err := s.deliver(clientEvent, cb); err != nil {
			s.logError(err.Error(), "timeout delivery")
		}
	})
}

// deliver encodes and publishes one stack callback envelope.
func (s *Stack) deliver(event bus.Event, cb *model.StackCallback) error {
	data, err := model.EncodeStackCallback(cb)
	if err != nil {
		return fmt.Errorf("loopstack: encode callback: %w", err)
	}

	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleStack,
		Direction: log.DirectionIn,
		Category:  log.CategoryEnvelope,
		Envelope: &log.EnvelopeEvent{
			BusCategory: uint8(bus.CategoryFromStack),
			EventMask:   uint32(event),
			PayloadSize: len(data),
		},
	})
	return s.bus.Publish(bus.CategoryFromStack, event, data)
}

func (s *Stack) logError(msg, context string) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleStack,
		Direction: log.DirectionInternal,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: msg, Context: context},
	})
}

// eventsFor maps an opcode family onto the server and client event
// bits under bus.CategoryFromStack.
func eventsFor(op mesh.Opcode) (server, client bus.Event, err error) {
	switch op {
	case mesh.OpGenOnOffGet, mesh.OpGenOnOffSet, mesh.OpGenOnOffSetUnack, mesh.OpGenOnOffStatus:
		return bus.EventStackOnOffServer, bus.EventStackOnOffClient, nil
	}
	if op >= mesh.OpLightCTLGet && op <= mesh.OpLightCTLTemperatureRangeSetUnack {
		return bus.EventStackCTLServer, bus.EventStackCTLClient, nil
	}
	return 0, 0, fmt.Errorf("loopstack: opcode 0x%04X: %w", uint32(op), mesh.ErrNotSupported)
}

// payloadTID extracts the transaction ID from a SET payload, zero when
// the payload carries none.
func payloadTID(payload any) uint8 {
	switch p := payload.(type) {
	case *mesh.GenOnOffSet:
		return p.TID
	case *mesh.LightCTLSet:
		return p.TID
	case *mesh.LightCTLTemperatureSet:
		return p.TID
	}
	return 0
}

var _ mesh.Stack = (*Stack)(nil)
