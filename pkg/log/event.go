package log

import (
	"time"
)

// Event represents a node trace event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID uniquely identifies this node run (UUID), so events from
	// several boots can be interleaved in one capture.
	RunID string `cbor:"2,keyasint,omitempty"`

	// Module that emitted the event.
	Module Module `cbor:"3,keyasint"`

	// Direction indicates message flow relative to the node core.
	Direction Direction `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Type-specific payload (one of these will be set).
	Envelope    *EnvelopeEvent    `cbor:"10,keyasint,omitempty"` // Bus traffic
	Send        *SendEvent        `cbor:"11,keyasint,omitempty"` // Outgoing model request
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Element state transitions
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an event entering the node core (stack callback).
	DirectionIn Direction = 0
	// DirectionOut indicates an event leaving the node core (request, app notify).
	DirectionOut Direction = 1
	// DirectionInternal indicates core-internal traffic (bus dispatch).
	DirectionInternal Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Module identifies the node component that emitted an event.
type Module uint8

const (
	// ModuleBus is the control-task event bus.
	ModuleBus Module = 0
	// ModuleClientModel covers the client model adapters.
	ModuleClientModel Module = 1
	// ModuleServerModel covers the server model adapters.
	ModuleServerModel Module = 2
	// ModuleElement is the element layer.
	ModuleElement Module = 3
	// ModuleApp is the application API layer.
	ModuleApp Module = 4
	// ModuleStack is the protocol stack boundary.
	ModuleStack Module = 5
)

// String returns the module name.
func (m Module) String() string {
	switch m {
	case ModuleBus:
		return "BUS"
	case ModuleClientModel:
		return "CLIENT_MODEL"
	case ModuleServerModel:
		return "SERVER_MODEL"
	case ModuleElement:
		return "ELEMENT"
	case ModuleApp:
		return "APP"
	case ModuleStack:
		return "STACK"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryEnvelope indicates bus envelope traffic (publish/dispatch).
	CategoryEnvelope Category = 0
	// CategorySend indicates an outgoing model request.
	CategorySend Category = 1
	// CategoryState indicates an element state transition.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryEnvelope:
		return "ENVELOPE"
	case CategorySend:
		return "SEND"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// EnvelopeEvent captures one bus envelope.
type EnvelopeEvent struct {
	// BusCategory is the envelope's coarse category code.
	BusCategory uint8 `cbor:"1,keyasint"`

	// EventMask is the envelope's fine-grained event bits.
	EventMask uint32 `cbor:"2,keyasint"`

	// PayloadSize is the envelope payload length in bytes.
	PayloadSize int `cbor:"3,keyasint"`

	// Matched is the number of registrations the envelope was
	// dispatched to (set on dispatch events only).
	Matched *int `cbor:"4,keyasint,omitempty"`
}

// SendEvent captures an outgoing model request.
type SendEvent struct {
	// ModelID is the SIG model identifier of the sender.
	ModelID uint16 `cbor:"1,keyasint"`

	// Opcode is the request opcode.
	Opcode uint32 `cbor:"2,keyasint"`

	// Dest is the destination mesh address.
	Dest uint16 `cbor:"3,keyasint"`

	// TID is the transaction identifier (SET family only).
	TID uint8 `cbor:"4,keyasint,omitempty"`

	// Retry is true when the send is a timeout-driven resend.
	Retry bool `cbor:"5,keyasint,omitempty"`

	// Attempt is the resend attempt number (0 for the original send).
	Attempt int `cbor:"6,keyasint,omitempty"`
}

// StateChangeEvent captures an element state transition.
type StateChangeEvent struct {
	// ElementID identifies the element.
	ElementID uint16 `cbor:"1,keyasint"`

	// Field names the state field that changed (e.g. "onoff", "lightness").
	Field string `cbor:"2,keyasint"`

	// NewValue is a string rendering of the accepted state.
	NewValue string `cbor:"3,keyasint"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes what the node was doing.
	Context string `cbor:"2,keyasint,omitempty"`
}
