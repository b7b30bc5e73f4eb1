// Package app implements the application API: the framed message path
// between the node core and the application layer. Element state
// updates travel outward under bus.CategoryToApp; application commands
// travel inward under bus.CategoryToMesh. Both directions carry one
// CBOR-framed buffer so the application deals with a single payload
// shape regardless of the element type.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/log"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// ElementType identifies the hardware personality of an element.
type ElementType uint8

const (
	// ElementSwitch is a switch element (client models).
	ElementSwitch ElementType = 1

	// ElementLightCWWW is a tunable-white light element (server models).
	ElementLightCWWW ElementType = 2
)

// String returns the element type name.
func (t ElementType) String() string {
	switch t {
	case ElementSwitch:
		return "SWITCH"
	case ElementLightCWWW:
		return "LIGHT_CWWW"
	default:
		return "UNKNOWN"
	}
}

// FuncID identifies the function a frame carries.
type FuncID uint8

const (
	// FuncOnOffState carries an OnOff state value.
	FuncOnOffState FuncID = 1

	// FuncCTLState carries lightness/temperature state values.
	FuncCTLState FuncID = 2

	// FuncNodeStatus carries node lifecycle information.
	FuncNodeStatus FuncID = 3
)

// FuncNodeStatus frames carry a single code byte.
const (
	// NodeStatusProvisioned reports the node joined a network and holds
	// a unicast address.
	NodeStatusProvisioned uint8 = 1

	// NodeStatusReset reports the node left the network and dropped its
	// persisted configuration.
	NodeStatusReset uint8 = 2
)

// Frame is the single buffer exchanged with the application: element
// identification plus an opaque function-specific payload.
type Frame struct {
	ElementID   uint8       `cbor:"1,keyasint"`
	ElementType ElementType `cbor:"2,keyasint"`
	FuncID      FuncID      `cbor:"3,keyasint"`
	Data        []byte      `cbor:"4,keyasint,omitempty"`
}

// StatePayload is the frame data of FuncOnOffState and FuncCTLState
// messages: the state values plus the result code, so the application
// can tell a timeout notification from an accepted change.
type StatePayload struct {
	Code   mesh.StatusCode   `cbor:"1,keyasint"`
	Status mesh.ClientStatus `cbor:"2,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("app: failed to create CBOR encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("app: failed to create CBOR decoder: %v", err))
	}
}

// EncodeFrame serializes a frame for the bus.
func EncodeFrame(f *Frame) ([]byte, error) {
	return encMode.Marshal(f)
}

// DecodeFrame deserializes a framed bus payload.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := decMode.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("app: decode frame: %w", err)
	}
	return &f, nil
}

// EncodeStatePayload serializes a state payload for the frame data.
func EncodeStatePayload(p *StatePayload) ([]byte, error) {
	return encMode.Marshal(p)
}

// DecodeStatePayload deserializes the data of a state frame.
func DecodeStatePayload(data []byte) (*StatePayload, error) {
	var p StatePayload
	if err := decMode.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("app: decode state payload: %w", err)
	}
	return &p, nil
}

// Handler consumes one decoded frame.
type Handler func(ctx context.Context, f *Frame) error

// Config configures an API.
type Config struct {
	// Bus carries the framed messages. Required.
	Bus *bus.Bus

	// Logger receives trace events.
	Logger log.Logger
}

// API is the application-layer endpoint: it frames outbound messages
// and dispatches inbound ones to the registered handlers.
type API struct {
	bus    *bus.Bus
	logger log.Logger

	dataReg    *bus.Registration
	controlReg *bus.Registration
}

// New creates an application API endpoint.
func New(cfg Config) (*API, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("app: nil bus: %w", mesh.ErrInvalidArgument)
	}
	return &API{
		bus:    cfg.Bus,
		logger: log.OrNoop(cfg.Logger),
	}, nil
}

// SendToApp frames an element message and publishes it toward the
// application.
func (a *API) SendToApp(elementID uint8, elementType ElementType, funcID FuncID, data []byte) error {
	return a.send(bus.CategoryToApp, bus.EventAppData, elementID, elementType, funcID, data)
}

// SendControlToApp frames a node control message and publishes it
// toward the application.
func (a *API) SendControlToApp(funcID FuncID, data []byte) error {
	return a.send(bus.CategoryToApp, bus.EventAppControl, 0, 0, funcID, data)
}

// SendToElement frames an application command and publishes it toward
// the element layer.
func (a *API) SendToElement(elementID uint8, elementType ElementType, funcID FuncID, data []byte) error {
	return a.send(bus.CategoryToMesh, bus.EventAppData, elementID, elementType, funcID, data)
}

func (a *API) send(category bus.Category, event bus.Event, elementID uint8, elementType ElementType, funcID FuncID, data []byte) error {
	f := Frame{
		ElementID:   elementID,
		ElementType: elementType,
		FuncID:      funcID,
		Data:        data,
	}
	buf, err := EncodeFrame(&f)
	if err != nil {
		return fmt.Errorf("app: encode frame: %w", err)
	}

	a.logger.Log(log.Event{
		Timestamp: time.Now(),
		Module:    log.ModuleApp,
		Direction: log.DirectionOut,
		Category:  log.CategoryEnvelope,
		Envelope: &log.EnvelopeEvent{
			BusCategory: uint8(category),
			EventMask:   uint32(event),
			PayloadSize: len(buf),
		},
	})
	return a.bus.Publish(category, event, buf)
}

// RegisterDataHandler subscribes the application's element-data
// handler. At most one data handler is registered at a time.
func (a *API) RegisterDataHandler(h Handler) error {
	if a.dataReg != nil {
		return fmt.Errorf("app: data handler already registered: %w", mesh.ErrInvalidState)
	}
	reg, err := a.bus.Subscribe(bus.CategoryToApp, bus.EventAppData, a.frameHandler(h))
	if err != nil {
		return err
	}
	a.dataReg = reg
	return nil
}

// RegisterControlHandler subscribes the application's node-control
// handler. At most one control handler is registered at a time.
func (a *API) RegisterControlHandler(h Handler) error {
	if a.controlReg != nil {
		return fmt.Errorf("app: control handler already registered: %w", mesh.ErrInvalidState)
	}
	reg, err := a.bus.Subscribe(bus.CategoryToApp, bus.EventAppControl, a.frameHandler(h))
	if err != nil {
		return err
	}
	a.controlReg = reg
	return nil
}

// Close removes the registered handlers.
func (a *API) Close() error {
	for _, reg := range []*bus.Registration{a.dataReg, a.controlReg} {
		if reg == nil {
			continue
		}
		if err := a.bus.Unsubscribe(reg); err != nil && !errors.Is(err, mesh.ErrNotFound) {
			return err
		}
	}
	a.dataReg = nil
	a.controlReg = nil
	return nil
}

// frameHandler adapts a Handler onto the bus callback signature.
func (a *API) frameHandler(h Handler) bus.Handler {
	return func(ctx context.Context, _ bus.Event, payload []byte) error {
		f, err := DecodeFrame(payload)
		if err != nil {
			return err
		}
		return h(ctx, f)
	}
}
