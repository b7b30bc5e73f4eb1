package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/log"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// applyFunc applies one inbound SET request to the canonical state.
// It reports whether the state was mutated; opcode families with no
// state semantics (Light CTL Default) accept without mutating. Called
// with the server lock held.
type applyFunc func(cb *StackCallback, st *StateCache) (bool, error)

// statusFunc builds the status values for an opcode family from the
// canonical state. Called with the server lock held.
type statusFunc func(op mesh.Opcode, st StateCache) mesh.ClientStatus

// Server is the generic server adapter shared by the OnOff and Light
// CTL server models. It owns the canonical element state, applies
// inbound SET requests to it before any reply, and enforces the reply
// and publish-address routing policy.
type Server struct {
	model      mesh.ModelID
	elementID  uint8
	stackEvent bus.Event
	stateEvent bus.Event

	bus         *bus.Bus
	stack       mesh.Stack
	logger      log.Logger
	publishAddr mesh.Address

	apply  applyFunc
	status statusFunc

	mu    sync.Mutex
	state StateCache

	initOnce sync.Once
	initErr  error
	reg      *bus.Registration
}

func newServer(cfg Config, model mesh.ModelID, stackEvent, stateEvent bus.Event, apply applyFunc, status statusFunc) (*Server, error) {
	if cfg.Bus == nil || cfg.Stack == nil {
		return nil, fmt.Errorf("model %s: nil bus or stack: %w", model, mesh.ErrInvalidArgument)
	}
	return &Server{
		model:       model,
		elementID:   cfg.ElementID,
		stackEvent:  stackEvent,
		stateEvent:  stateEvent,
		bus:         cfg.Bus,
		stack:       cfg.Stack,
		logger:      log.OrNoop(cfg.Logger),
		publishAddr: cfg.PublishAddr,
		apply:       apply,
		status:      status,
	}, nil
}

// Model returns the SIG model identifier.
func (s *Server) Model() mesh.ModelID { return s.model }

// ElementID returns the owning element.
func (s *Server) ElementID() uint8 { return s.elementID }

// State returns a snapshot of the canonical state.
func (s *Server) State() StateCache {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RestoreState seeds the canonical state, e.g. from a persisted
// snapshot on boot.
func (s *Server) RestoreState(st StateCache) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// SetPublishAddr reconfigures the model's publish address.
func (s *Server) SetPublishAddr(addr mesh.Address) {
	s.mu.Lock()
	s.publishAddr = addr
	s.mu.Unlock()
}

// Init subscribes the adapter to its bus.CategoryFromStack event bit.
// Init is idempotent; repeated calls return the first outcome.
func (s *Server) Init() error {
	s.initOnce.Do(func() {
		s.reg, s.initErr = s.bus.Subscribe(bus.CategoryFromStack, s.stackEvent, s.handleStack)
	})
	return s.initErr
}

// Close removes the bus registration. Closing an uninitialized or
// already-closed adapter is a no-op.
func (s *Server) Close() error {
	if s.reg == nil {
		return nil
	}
	err := s.bus.Unsubscribe(s.reg)
	s.reg = nil
	if err != nil && !errors.Is(err, mesh.ErrNotFound) {
		return err
	}
	return nil
}

// handleStack consumes the adapter's CategoryFromStack envelopes.
func (s *Server) handleStack(_ context.Context, _ bus.Event, payload []byte) error {
	cb, err := DecodeStackCallback(payload)
	if err != nil {
		return err
	}
	if cb.Kind != CallbackRequest {
		return fmt.Errorf("model %s: callback kind %s: %w", s.model, cb.Kind, mesh.ErrNotSupported)
	}
	return s.onRequest(cb)
}

// onRequest applies one inbound GET/SET/SET-UNACK request:
//
//  1. SET variants update the canonical state before any reply.
//  2. If state was mutated and the destination address class
//     qualifies, the accepted change is surfaced toward the element
//     layer.
//  3. Acknowledged opcodes get a direct STATUS reply to the sender;
//     SET-UNACK never does.
//  4. Independent of the direct reply, a state change whose sender is
//     not the configured publish address is additionally routed there
//     as a STATUS, so the designated subscriber stays informed.
func (s *Server) onRequest(cb *StackCallback) error {
	op := cb.Ctx.Opcode
	statusOp := op.StatusOpcode()
	if statusOp == 0 {
		return fmt.Errorf("model %s: opcode 0x%04X is not a server request: %w", s.model, uint32(op), mesh.ErrNotSupported)
	}
	set := isSetOpcode(op)

	changed := false
	s.mu.Lock()
	if set {
		var err error
		if changed, err = s.apply(cb, &s.state); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("model %s: apply 0x%04X: %w", s.model, uint32(op), err)
		}
	}
	status := s.status(op, s.state)
	publishAddr := s.publishAddr
	s.mu.Unlock()

	if changed && s.destQualifies(cb.Ctx.DstAddr) {
		if err := s.publishStateChange(cb.Ctx, status); err != nil {
			s.logError(err.Error(), "state change")
		}
	}

	if op.IsAcknowledged() {
		if err := s.reply(cb.Ctx, statusOp, cb.Ctx.SrcAddr, status); err != nil {
			return err
		}
	}

	if set && publishAddr != mesh.AddrUnassigned && cb.Ctx.SrcAddr != publishAddr {
		if err := s.reply(cb.Ctx, statusOp, publishAddr, status); err != nil {
			return err
		}
	}
	return nil
}

// reply sends one STATUS message through the stack.
func (s *Server) reply(mctx mesh.Context, op mesh.Opcode, dest mesh.Address, status mesh.ClientStatus) error {
	st := mesh.ServerStatus{
		Model:  s.model,
		Opcode: op,
		Dest:   dest,
		NetIdx: mctx.NetIdx,
		AppIdx: mctx.AppIdx,
		Status: status,
	}
	if err := s.stack.SendServerStatus(&st); err != nil {
		return fmt.Errorf("model %s: status to 0x%04X: %w", s.model, uint16(dest), errors.Join(mesh.ErrPlatform, err))
	}

	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleServerModel,
		Direction: log.DirectionOut,
		Category:  log.CategorySend,
		Send: &log.SendEvent{
			ModelID: uint16(s.model),
			Opcode:  uint32(op),
			Dest:    uint16(dest),
		},
	})
	return nil
}

// publishStateChange surfaces an accepted state transition toward the
// element layer.
func (s *Server) publishStateChange(mctx mesh.Context, status mesh.ClientStatus) error {
	sc := StateChange{
		Model:     s.model,
		ElementID: s.elementID,
		Code:      mesh.StatusSuccess,
		Ctx:       mctx,
		Status:    status,
	}
	data, err := EncodeStateChange(&sc)
	if err != nil {
		return err
	}
	return s.bus.Publish(bus.CategoryElementStateChange, s.stateEvent, data)
}

// destQualifies validates the address class a request was received on.
func (s *Server) destQualifies(dst mesh.Address) bool {
	switch {
	case dst.IsUnicast(), dst.IsBroadcast():
		return true
	case dst.IsGroup():
		return s.stack.IsGroupSubscribed(s.model, dst)
	default:
		return false
	}
}

func (s *Server) logError(msg, context string) {
	s.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleServerModel,
		Direction: log.DirectionIn,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: msg, Context: context},
	})
}
