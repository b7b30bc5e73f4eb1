package mesh

// Context carries the addressing information of one mesh message.
// It travels inside bus envelopes, so CBOR tags use integer keys.
type Context struct {
	// SrcAddr is the sender's unicast address.
	SrcAddr Address `cbor:"1,keyasint"`

	// DstAddr is the destination the message was sent to. For inbound
	// messages this is the address the node received on (unicast,
	// group, or broadcast).
	DstAddr Address `cbor:"2,keyasint"`

	// Opcode is the message opcode.
	Opcode Opcode `cbor:"3,keyasint"`

	// NetIdx identifies the subnet the message travelled on.
	NetIdx uint16 `cbor:"4,keyasint"`

	// AppIdx identifies the application key the message was bound to.
	AppIdx uint16 `cbor:"5,keyasint"`
}

// GenOnOffSet is the payload of a Generic OnOff SET / SET-UNACK request.
type GenOnOffSet struct {
	OnOff bool  `cbor:"1,keyasint"`
	TID   uint8 `cbor:"2,keyasint"`
}

// LightCTLSet is the payload of a Light CTL SET / SET-UNACK request.
type LightCTLSet struct {
	Lightness   uint16 `cbor:"1,keyasint"`
	Temperature uint16 `cbor:"2,keyasint"`
	DeltaUV     uint16 `cbor:"3,keyasint"`
	TID         uint8  `cbor:"4,keyasint"`
}

// LightCTLTemperatureSet is the payload of a Light CTL Temperature
// SET / SET-UNACK request.
type LightCTLTemperatureSet struct {
	Temperature uint16 `cbor:"1,keyasint"`
	DeltaUV     uint16 `cbor:"2,keyasint"`
	TID         uint8  `cbor:"3,keyasint"`
}

// LightCTLTemperatureRangeSet is the payload of a Light CTL Temperature
// Range SET / SET-UNACK request.
type LightCTLTemperatureRangeSet struct {
	RangeMin uint16 `cbor:"1,keyasint"`
	RangeMax uint16 `cbor:"2,keyasint"`
}

// ClientStatus is the decoded status carried by a client callback.
// Which fields are meaningful depends on the opcode in the Context.
type ClientStatus struct {
	// OnOff is the present OnOff state (OnOff status family).
	OnOff bool `cbor:"1,keyasint,omitempty"`

	// Lightness is the present lightness (CTL status).
	Lightness uint16 `cbor:"2,keyasint,omitempty"`

	// Temperature is the present temperature (CTL and temperature status).
	Temperature uint16 `cbor:"3,keyasint,omitempty"`

	// DeltaUV is the present delta UV (temperature status).
	DeltaUV uint16 `cbor:"4,keyasint,omitempty"`

	// RangeMin and RangeMax bound the temperature range (range status).
	RangeMin uint16 `cbor:"5,keyasint,omitempty"`
	RangeMax uint16 `cbor:"6,keyasint,omitempty"`
}
