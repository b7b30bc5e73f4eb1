package mesh

// ClientRequest is one outgoing client model request handed to the stack.
type ClientRequest struct {
	// Model is the sending client model.
	Model ModelID

	// Opcode selects the operation. GET opcodes carry a nil Payload.
	Opcode Opcode

	// Dest is the destination address.
	Dest Address

	// NetIdx and AppIdx select the subnet and application key.
	NetIdx uint16
	AppIdx uint16

	// Payload is the typed request payload: *GenOnOffSet, *LightCTLSet,
	// *LightCTLTemperatureSet, *LightCTLTemperatureRangeSet, or nil.
	Payload any
}

// ServerStatus is one outgoing server status reply handed to the stack.
type ServerStatus struct {
	// Model is the replying server model.
	Model ModelID

	// Opcode is the status opcode.
	Opcode Opcode

	// Dest is the address the status is routed to. This is the
	// requester for direct replies, or the model's publish address for
	// publish-path notifications.
	Dest Address

	// NetIdx and AppIdx mirror the inbound message's indices.
	NetIdx uint16
	AppIdx uint16

	// Status carries the present state values.
	Status ClientStatus
}

// Stack is the interface the node core consumes from the mesh protocol
// stack. Implementations must be safe for concurrent use; calls may
// arrive from the control task and from application goroutines.
//
// Inbound traffic takes the reverse path: the stack publishes envelopes
// on the control-task bus (CategoryFromStack) rather than invoking the
// core directly, so every stack callback is serialized through the
// single consumer.
type Stack interface {
	// SendClientMessage transmits a client model request.
	SendClientMessage(req *ClientRequest) error

	// SendServerStatus transmits a server model status message.
	SendServerStatus(st *ServerStatus) error

	// IsGroupSubscribed reports whether the given model is subscribed
	// to the group address.
	IsGroupSubscribed(model ModelID, group Address) bool
}
