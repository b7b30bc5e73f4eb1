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

// Config assembles the collaborators of one adapter. Bus and Stack are
// required; the retry settings apply to client adapters only and fall
// back to the package defaults when zero.
type Config struct {
	Bus    *bus.Bus
	Stack  mesh.Stack
	Logger log.Logger

	// ElementID identifies the element the model sits on.
	ElementID uint8

	// NodeAddr is the element's own unicast address. When set, client
	// adapters only accept unicast statuses addressed to it;
	// AddrUnassigned accepts any unicast destination.
	NodeAddr mesh.Address

	// PublishAddr is the model's configured publish address (servers).
	// AddrUnassigned disables publish-path status routing.
	PublishAddr mesh.Address

	// Client retry settings.
	RetrySlots  int
	RetryExpiry time.Duration
	MaxResends  int
}

// Client is the generic client adapter shared by the OnOff and Light
// CTL client models. It sends requests through the stack, stages them
// in the retry table, and turns inbound status callbacks into
// StateChange envelopes after change detection.
type Client struct {
	model      mesh.ModelID
	elementID  uint8
	nodeAddr   mesh.Address
	stackEvent bus.Event
	stateEvent bus.Event

	bus    *bus.Bus
	stack  mesh.Stack
	logger log.Logger
	retry  *retryTable

	mu    sync.Mutex
	cache StateCache

	initOnce sync.Once
	initErr  error
	reg      *bus.Registration
}

func newClient(cfg Config, model mesh.ModelID, stackEvent, stateEvent bus.Event) (*Client, error) {
	if cfg.Bus == nil || cfg.Stack == nil {
		return nil, fmt.Errorf("model %s: nil bus or stack: %w", model, mesh.ErrInvalidArgument)
	}
	return &Client{
		model:      model,
		elementID:  cfg.ElementID,
		nodeAddr:   cfg.NodeAddr,
		stackEvent: stackEvent,
		stateEvent: stateEvent,
		bus:        cfg.Bus,
		stack:      cfg.Stack,
		logger:     log.OrNoop(cfg.Logger),
		retry:      newRetryTable(cfg.RetrySlots, cfg.RetryExpiry, cfg.MaxResends),
	}, nil
}

// Model returns the SIG model identifier.
func (c *Client) Model() mesh.ModelID { return c.model }

// ElementID returns the owning element.
func (c *Client) ElementID() uint8 { return c.elementID }

// State returns a snapshot of the change-detection cache.
func (c *Client) State() StateCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache
}

// RestoreState seeds the change-detection cache, e.g. from a persisted
// snapshot on boot.
func (c *Client) RestoreState(st StateCache) {
	c.mu.Lock()
	c.cache = st
	c.mu.Unlock()
}

// Init subscribes the adapter to its bus.CategoryFromStack event bit.
// Init is idempotent; repeated calls return the first outcome.
func (c *Client) Init() error {
	c.initOnce.Do(func() {
		c.reg, c.initErr = c.bus.Subscribe(bus.CategoryFromStack, c.stackEvent, c.handleStack)
	})
	return c.initErr
}

// Close removes the bus registration. Closing an uninitialized or
// already-closed adapter is a no-op.
func (c *Client) Close() error {
	if c.reg == nil {
		return nil
	}
	err := c.bus.Unsubscribe(c.reg)
	c.reg = nil
	if err != nil && !errors.Is(err, mesh.ErrNotFound) {
		return err
	}
	return nil
}

// Send transmits a client request. GET opcodes carry no payload;
// SET and SET-UNACK opcodes require a payload and are staged in the
// retry table under tid. Any other opcode is rejected.
func (c *Client) Send(op mesh.Opcode, dest mesh.Address, netIdx, appIdx uint16, payload any, tid uint8) error {
	req := mesh.ClientRequest{
		Model:  c.model,
		Opcode: op,
		Dest:   dest,
		NetIdx: netIdx,
		AppIdx: appIdx,
	}

	switch {
	case isGetOpcode(op):
		// Empty payload.
	case isSetOpcode(op):
		if payload == nil {
			return fmt.Errorf("model %s: opcode 0x%04X requires a payload: %w", c.model, uint32(op), mesh.ErrInvalidArgument)
		}
		req.Payload = payload
		c.retry.stage(tid, req)
	default:
		return fmt.Errorf("model %s: opcode 0x%04X is not a client request: %w", c.model, uint32(op), mesh.ErrInvalidArgument)
	}

	if err := c.stack.SendClientMessage(&req); err != nil {
		return fmt.Errorf("model %s: send 0x%04X: %w", c.model, uint32(op), errors.Join(mesh.ErrPlatform, err))
	}

	c.logSend(req, tid, 0)
	return nil
}

// handleStack consumes the adapter's CategoryFromStack envelopes.
func (c *Client) handleStack(_ context.Context, _ bus.Event, payload []byte) error {
	cb, err := DecodeStackCallback(payload)
	if err != nil {
		return err
	}

	switch cb.Kind {
	case CallbackStatus:
		return c.onStatus(cb)
	case CallbackTimeout:
		return c.onTimeout(cb)
	default:
		return fmt.Errorf("model %s: callback kind %s: %w", c.model, cb.Kind, mesh.ErrNotSupported)
	}
}

// onStatus handles a received status message: a response to one of our
// requests, or a publication from a server we listen to.
func (c *Client) onStatus(cb *StackCallback) error {
	if !c.destQualifies(cb.Ctx.DstAddr) {
		c.logError(fmt.Sprintf("status from 0x%04X dropped, destination 0x%04X does not qualify",
			uint16(cb.Ctx.SrcAddr), uint16(cb.Ctx.DstAddr)), "status")
		return nil
	}

	c.retry.complete(cb.Ctx.Opcode)

	var status mesh.ClientStatus
	if cb.Status != nil {
		status = *cb.Status
	}
	return c.notify(cb.Ctx, status, cb.Code)
}

// onTimeout handles a request timeout: resend while the budget allows,
// otherwise surface a timeout status to the element layer.
func (c *Client) onTimeout(cb *StackCallback) error {
	req, attempt, err := c.retry.timeout(cb.TID)
	if err != nil {
		return fmt.Errorf("model %s: %w", c.model, err)
	}

	if attempt > 0 {
		if sendErr := c.stack.SendClientMessage(&req); sendErr != nil {
			// A failed resend ends the transaction the same way an
			// exhausted budget does: the application sees a timeout.
			c.logError(sendErr.Error(), "resend")
			return c.publishStateChange(cb.Ctx, mesh.ClientStatus{}, mesh.StatusTimeout)
		}
		c.logSend(req, cb.TID, attempt)
		return nil
	}

	// Resend budget exhausted.
	return c.publishStateChange(cb.Ctx, mesh.ClientStatus{}, mesh.StatusTimeout)
}

// notify runs change detection and surfaces accepted transitions under
// bus.CategoryElementStateChange. Dedup hits and no-op acknowledgements
// are swallowed.
func (c *Client) notify(mctx mesh.Context, status mesh.ClientStatus, code mesh.StatusCode) error {
	c.mu.Lock()
	changed, err := ApplyStateChange(mctx.Opcode, code, status, &c.cache)
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, ErrNoChange) {
			return nil
		}
		return fmt.Errorf("model %s: %w", c.model, err)
	}
	if !changed {
		if !code.IsSuccess() {
			c.logError(fmt.Sprintf("status 0x%04X with code %s", uint32(mctx.Opcode), code), "status")
		}
		return nil
	}

	return c.publishStateChange(mctx, status, code)
}

// publishStateChange emits one StateChange envelope toward the element
// layer.
func (c *Client) publishStateChange(mctx mesh.Context, status mesh.ClientStatus, code mesh.StatusCode) error {
	sc := StateChange{
		Model:     c.model,
		ElementID: c.elementID,
		Code:      code,
		Ctx:       mctx,
		Status:    status,
	}
	data, err := EncodeStateChange(&sc)
	if err != nil {
		return fmt.Errorf("model %s: encode state change: %w", c.model, err)
	}
	return c.bus.Publish(bus.CategoryElementStateChange, c.stateEvent, data)
}

// destQualifies validates the address class a message was received on.
// Broadcast always qualifies; unicast must match our own address when
// one is configured; group addresses qualify only when this model is
// subscribed to the group.
func (c *Client) destQualifies(dst mesh.Address) bool {
	switch {
	case dst.IsBroadcast():
		return true
	case dst.IsUnicast():
		return c.nodeAddr == mesh.AddrUnassigned || dst == c.nodeAddr
	case dst.IsGroup():
		return c.stack.IsGroupSubscribed(c.model, dst)
	default:
		return false
	}
}

func (c *Client) logSend(req mesh.ClientRequest, tid uint8, attempt int) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleClientModel,
		Direction: log.DirectionOut,
		Category:  log.CategorySend,
		Send: &log.SendEvent{
			ModelID: uint16(c.model),
			Opcode:  uint32(req.Opcode),
			Dest:    uint16(req.Dest),
			TID:     tid,
			Retry:   attempt > 0,
			Attempt: attempt,
		},
	})
}

func (c *Client) logError(msg, context string) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleClientModel,
		Direction: log.DirectionIn,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: msg, Context: context},
	})
}

// isGetOpcode reports whether op is a GET request.
func isGetOpcode(op mesh.Opcode) bool {
	switch op {
	case mesh.OpGenOnOffGet,
		mesh.OpLightCTLGet,
		mesh.OpLightCTLTemperatureGet,
		mesh.OpLightCTLTemperatureRangeGet,
		mesh.OpLightCTLDefaultGet:
		return true
	}
	return false
}

// isSetOpcode reports whether op is a SET or SET-UNACK request.
func isSetOpcode(op mesh.Opcode) bool {
	switch op {
	case mesh.OpGenOnOffSet, mesh.OpGenOnOffSetUnack,
		mesh.OpLightCTLSet, mesh.OpLightCTLSetUnack,
		mesh.OpLightCTLTemperatureSet, mesh.OpLightCTLTemperatureSetUnack,
		mesh.OpLightCTLTemperatureRangeSet, mesh.OpLightCTLTemperatureRangeSetUnack,
		mesh.OpLightCTLDefaultSet, mesh.OpLightCTLDefaultSetUnack:
		return true
	}
	return false
}
