package model

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// CallbackKind discriminates the StackCallback variants. The kind plus
// the envelope's event bit replace any payload casting: consumers
// switch on the kind and read the matching typed field.
type CallbackKind uint8

const (
	// CallbackStatus is a received status message (response to a client
	// request, or an unsolicited server publication).
	CallbackStatus CallbackKind = 0

	// CallbackTimeout reports that an acknowledged client request got
	// no response in time.
	CallbackTimeout CallbackKind = 1

	// CallbackRequest is an inbound request bound for a server model.
	CallbackRequest CallbackKind = 2
)

// String returns the kind name.
func (k CallbackKind) String() string {
	switch k {
	case CallbackStatus:
		return "STATUS"
	case CallbackTimeout:
		return "TIMEOUT"
	case CallbackRequest:
		return "REQUEST"
	default:
		return "UNKNOWN"
	}
}

// StackCallback is the bus payload for bus.CategoryFromStack
// envelopes. Exactly one variant field matching Kind is set.
type StackCallback struct {
	Kind CallbackKind `cbor:"1,keyasint"`
	Ctx  mesh.Context `cbor:"2,keyasint"`

	// Code is the stack-level result of the callback.
	Code mesh.StatusCode `cbor:"3,keyasint,omitempty"`

	// TID correlates a timeout with the staged request.
	TID uint8 `cbor:"4,keyasint,omitempty"`

	// Status is set for CallbackStatus.
	Status *mesh.ClientStatus `cbor:"5,keyasint,omitempty"`

	// Request variants, set for CallbackRequest with a SET opcode.
	OnOffSet       *mesh.GenOnOffSet                 `cbor:"6,keyasint,omitempty"`
	CTLSet         *mesh.LightCTLSet                 `cbor:"7,keyasint,omitempty"`
	TemperatureSet *mesh.LightCTLTemperatureSet      `cbor:"8,keyasint,omitempty"`
	RangeSet       *mesh.LightCTLTemperatureRangeSet `cbor:"9,keyasint,omitempty"`
}

// StateChange is the bus payload for bus.CategoryElementStateChange
// envelopes: one accepted state transition, surfaced by an adapter
// toward the element layer.
type StateChange struct {
	Model     mesh.ModelID      `cbor:"1,keyasint"`
	ElementID uint8             `cbor:"2,keyasint"`
	Code      mesh.StatusCode   `cbor:"3,keyasint"`
	Ctx       mesh.Context      `cbor:"4,keyasint"`
	Status    mesh.ClientStatus `cbor:"5,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("model: failed to create CBOR encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("model: failed to create CBOR decoder: %v", err))
	}
}

// EncodeStackCallback serializes a stack callback for the bus.
func EncodeStackCallback(cb *StackCallback) ([]byte, error) {
	return encMode.Marshal(cb)
}

// DecodeStackCallback deserializes a bus.CategoryFromStack payload.
func DecodeStackCallback(data []byte) (*StackCallback, error) {
	var cb StackCallback
	if err := decMode.Unmarshal(data, &cb); err != nil {
		return nil, fmt.Errorf("model: decode stack callback: %w", err)
	}
	return &cb, nil
}

// EncodeStateChange serializes a state change for the bus.
func EncodeStateChange(sc *StateChange) ([]byte, error) {
	return encMode.Marshal(sc)
}

// DecodeStateChange deserializes a bus.CategoryElementStateChange
// payload.
func DecodeStateChange(data []byte) (*StateChange, error) {
	var sc StateChange
	if err := decMode.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("model: decode state change: %w", err)
	}
	return &sc, nil
}
