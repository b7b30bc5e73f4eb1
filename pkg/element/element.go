// Package element implements the element table: the static wiring of
// model adapters onto the node's elements. The table listens for state
// changes surfaced by the adapters and forwards them to the
// application as framed messages; application commands travel the
// opposite way and are applied to the local server models.
package element

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meshx-protocol/meshx-go/pkg/app"
	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/log"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
	"github.com/meshx-protocol/meshx-go/pkg/model"
)

// Element is one element of the node: an ID, a hardware personality,
// and the model adapters occupying it.
type Element struct {
	ID   uint8
	Type app.ElementType

	OnOffClient *model.OnOffClient
	CTLClient   *model.CTLClient
	OnOffServer *model.OnOffServer
	CTLServer   *model.CTLServer
}

// adapters lists the wired model instances.
func (e *Element) adapters() []model.Adapter {
	var out []model.Adapter
	if e.OnOffClient != nil {
		out = append(out, e.OnOffClient)
	}
	if e.CTLClient != nil {
		out = append(out, e.CTLClient)
	}
	if e.OnOffServer != nil {
		out = append(out, e.OnOffServer)
	}
	if e.CTLServer != nil {
		out = append(out, e.CTLServer)
	}
	return out
}

// State returns the element's present state, preferring the canonical
// server state over a client cache.
func (e *Element) State() model.StateCache {
	switch {
	case e.CTLServer != nil:
		return e.CTLServer.State()
	case e.OnOffServer != nil:
		return e.OnOffServer.State()
	case e.CTLClient != nil:
		return e.CTLClient.State()
	case e.OnOffClient != nil:
		return e.OnOffClient.State()
	}
	return model.StateCache{}
}

// Config configures a Table.
type Config struct {
	// Bus carries state changes and application commands. Required.
	Bus *bus.Bus

	// API frames outbound state updates. Required.
	API *app.API

	// Logger receives trace events.
	Logger log.Logger
}

// Table is the element table.
type Table struct {
	bus    *bus.Bus
	api    *app.API
	logger log.Logger

	elements map[uint8]*Element

	stateReg *bus.Registration
	cmdReg   *bus.Registration
	provReg  *bus.Registration
}

// NewTable creates an empty element table.
func NewTable(cfg Config) (*Table, error) {
	if cfg.Bus == nil || cfg.API == nil {
		return nil, fmt.Errorf("element: nil bus or api: %w", mesh.ErrInvalidArgument)
	}
	return &Table{
		bus:      cfg.Bus,
		api:      cfg.API,
		logger:   log.OrNoop(cfg.Logger),
		elements: make(map[uint8]*Element),
	}, nil
}

// Add wires one element. Elements are added before Init; the table is
// static afterwards.
func (t *Table) Add(el *Element) error {
	if el == nil {
		return fmt.Errorf("element: nil element: %w", mesh.ErrInvalidArgument)
	}
	if _, ok := t.elements[el.ID]; ok {
		return fmt.Errorf("element: id %d already wired: %w", el.ID, mesh.ErrInvalidState)
	}
	t.elements[el.ID] = el
	return nil
}

// Get returns the element with the given ID.
func (t *Table) Get(id uint8) (*Element, bool) {
	el, ok := t.elements[id]
	return el, ok
}

// Elements returns the wired elements.
func (t *Table) Elements() []*Element {
	out := make([]*Element, 0, len(t.elements))
	for _, el := range t.elements {
		out = append(out, el)
	}
	return out
}

// Init initializes every wired adapter and subscribes the table to the
// state-change and application-command categories.
func (t *Table) Init() error {
	for _, el := range t.elements {
		for _, a := range el.adapters() {
			if err := a.Init(); err != nil {
				return fmt.Errorf("element %d: %w", el.ID, err)
			}
		}
	}

	var err error
	t.stateReg, err = t.bus.Subscribe(bus.CategoryElementStateChange,
		bus.EventElementOnOff|bus.EventElementCTL, t.handleStateChange)
	if err != nil {
		return err
	}
	t.cmdReg, err = t.bus.Subscribe(bus.CategoryToMesh, bus.EventAppData, t.handleCommand)
	if err != nil {
		return err
	}
	t.provReg, err = t.bus.Subscribe(bus.CategoryProvision,
		bus.EventProvisionComplete|bus.EventNodeReset, t.handleProvision)
	if err != nil {
		return err
	}
	return nil
}

// Close unsubscribes the table and closes the wired adapters.
func (t *Table) Close() error {
	for _, reg := range []*bus.Registration{t.stateReg, t.cmdReg, t.provReg} {
		if reg == nil {
			continue
		}
		if err := t.bus.Unsubscribe(reg); err != nil && !errors.Is(err, mesh.ErrNotFound) {
			return err
		}
	}
	t.stateReg, t.cmdReg, t.provReg = nil, nil, nil

	for _, el := range t.elements {
		for _, a := range el.adapters() {
			if err := a.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Snapshot captures the present state of every element.
func (t *Table) Snapshot() map[uint8]model.StateCache {
	out := make(map[uint8]model.StateCache, len(t.elements))
	for id, el := range t.elements {
		out[id] = el.State()
	}
	return out
}

// Restore seeds element states from a snapshot, e.g. on boot. Unknown
// element IDs are skipped.
func (t *Table) Restore(states map[uint8]model.StateCache) {
	for id, st := range states {
		el, ok := t.elements[id]
		if !ok {
			continue
		}
		if el.OnOffClient != nil {
			el.OnOffClient.RestoreState(st)
		}
		if el.CTLClient != nil {
			el.CTLClient.RestoreState(st)
		}
		if el.OnOffServer != nil {
			el.OnOffServer.RestoreState(st)
		}
		if el.CTLServer != nil {
			el.CTLServer.RestoreState(st)
		}
	}
}

// handleStateChange forwards an accepted state transition to the
// application as a framed message.
func (t *Table) handleStateChange(_ context.Context, event bus.Event, payload []byte) error {
	sc, err := model.DecodeStateChange(payload)
	if err != nil {
		return err
	}
	el, ok := t.elements[sc.ElementID]
	if !ok {
		return fmt.Errorf("element: state change for unknown element %d: %w", sc.ElementID, mesh.ErrNotFound)
	}

	funcID := app.FuncCTLState
	field := "ctl"
	if event&bus.EventElementOnOff != 0 {
		funcID = app.FuncOnOffState
		field = "onoff"
	}

	t.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleElement,
		Direction: log.DirectionInternal,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			ElementID: uint16(sc.ElementID),
			Field:     field,
			NewValue:  fmt.Sprintf("%+v", sc.Status),
		},
	})

	data, err := app.EncodeStatePayload(&app.StatePayload{Code: sc.Code, Status: sc.Status})
	if err != nil {
		return fmt.Errorf("element: encode state payload: %w", err)
	}
	return t.api.SendToApp(el.ID, el.Type, funcID, data)
}

// handleProvision forwards a provisioning lifecycle event to the
// application as a node control frame carrying the status code.
func (t *Table) handleProvision(_ context.Context, event bus.Event, _ []byte) error {
	code := app.NodeStatusProvisioned
	if event&bus.EventNodeReset != 0 {
		code = app.NodeStatusReset
	}
	return t.api.SendControlToApp(app.FuncNodeStatus, []byte{code})
}

// handleCommand applies an application command to the element's local
// server models. The frame data carries the target state values.
func (t *Table) handleCommand(_ context.Context, _ bus.Event, payload []byte) error {
	f, err := app.DecodeFrame(payload)
	if err != nil {
		return err
	}
	el, ok := t.elements[f.ElementID]
	if !ok {
		return fmt.Errorf("element: command for unknown element %d: %w", f.ElementID, mesh.ErrNotFound)
	}

	p, err := app.DecodeStatePayload(f.Data)
	if err != nil {
		return fmt.Errorf("element: decode command data: %w", err)
	}
	status := p.Status

	switch f.FuncID {
	case app.FuncOnOffState:
		if el.OnOffServer == nil {
			return fmt.Errorf("element %d: no onoff server: %w", f.ElementID, mesh.ErrNotSupported)
		}
		st := el.OnOffServer.State()
		st.OnOff = status.OnOff
		el.OnOffServer.RestoreState(st)

	case app.FuncCTLState:
		if el.CTLServer == nil {
			return fmt.Errorf("element %d: no ctl server: %w", f.ElementID, mesh.ErrNotSupported)
		}
		st := el.CTLServer.State()
		st.Lightness = status.Lightness
		st.Temperature = status.Temperature
		el.CTLServer.RestoreState(st)

	default:
		return fmt.Errorf("element: func %d: %w", f.FuncID, mesh.ErrNotSupported)
	}
	return nil
}
