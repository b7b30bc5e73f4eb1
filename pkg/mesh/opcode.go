package mesh

// Opcode is a SIG model message opcode.
type Opcode uint32

// Generic OnOff opcodes.
const (
	OpGenOnOffGet      Opcode = 0x8201
	OpGenOnOffSet      Opcode = 0x8202
	OpGenOnOffSetUnack Opcode = 0x8203
	OpGenOnOffStatus   Opcode = 0x8204
)

// Light CTL opcodes.
const (
	OpLightCTLGet                      Opcode = 0x825D
	OpLightCTLSet                      Opcode = 0x825E
	OpLightCTLSetUnack                 Opcode = 0x825F
	OpLightCTLStatus                   Opcode = 0x8260
	OpLightCTLTemperatureGet           Opcode = 0x8261
	OpLightCTLTemperatureRangeGet      Opcode = 0x8262
	OpLightCTLTemperatureRangeStatus   Opcode = 0x8263
	OpLightCTLTemperatureSet           Opcode = 0x8264
	OpLightCTLTemperatureSetUnack      Opcode = 0x8265
	OpLightCTLTemperatureStatus        Opcode = 0x8266
	OpLightCTLDefaultGet               Opcode = 0x8267
	OpLightCTLDefaultStatus            Opcode = 0x8268
	OpLightCTLDefaultSet               Opcode = 0x8269
	OpLightCTLDefaultSetUnack          Opcode = 0x826A
	OpLightCTLTemperatureRangeSet      Opcode = 0x826B
	OpLightCTLTemperatureRangeSetUnack Opcode = 0x826C
)

// IsAcknowledged reports whether the opcode expects a status reply.
// Unacknowledged SET variants and STATUS opcodes do not.
func (op Opcode) IsAcknowledged() bool {
	switch op {
	case OpGenOnOffSetUnack,
		OpLightCTLSetUnack,
		OpLightCTLTemperatureSetUnack,
		OpLightCTLDefaultSetUnack,
		OpLightCTLTemperatureRangeSetUnack:
		return false
	}
	return true
}

// StatusOpcode returns the status opcode a server replies with for the
// given inbound opcode family, or 0 if the opcode carries no reply.
func (op Opcode) StatusOpcode() Opcode {
	switch op {
	case OpGenOnOffGet, OpGenOnOffSet, OpGenOnOffSetUnack:
		return OpGenOnOffStatus
	case OpLightCTLGet, OpLightCTLSet, OpLightCTLSetUnack:
		return OpLightCTLStatus
	case OpLightCTLTemperatureGet, OpLightCTLTemperatureSet, OpLightCTLTemperatureSetUnack:
		return OpLightCTLTemperatureStatus
	case OpLightCTLTemperatureRangeGet, OpLightCTLTemperatureRangeSet, OpLightCTLTemperatureRangeSetUnack:
		return OpLightCTLTemperatureRangeStatus
	case OpLightCTLDefaultGet, OpLightCTLDefaultSet, OpLightCTLDefaultSetUnack:
		return OpLightCTLDefaultStatus
	}
	return 0
}

// ModelID is a SIG model identifier.
type ModelID uint16

// SIG model identifiers used by this node.
const (
	ModelGenOnOffServer ModelID = 0x1000
	ModelGenOnOffClient ModelID = 0x1001
	ModelLightCTLServer ModelID = 0x1303
	ModelLightCTLClient ModelID = 0x1305
)

// String returns the model name.
func (m ModelID) String() string {
	switch m {
	case ModelGenOnOffServer:
		return "GEN_ONOFF_SRV"
	case ModelGenOnOffClient:
		return "GEN_ONOFF_CLI"
	case ModelLightCTLServer:
		return "LIGHT_CTL_SRV"
	case ModelLightCTLClient:
		return "LIGHT_CTL_CLI"
	default:
		return "UNKNOWN"
	}
}
