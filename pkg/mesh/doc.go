// Package mesh defines the types shared between the node core and the
// BLE-mesh protocol stack: addresses, opcodes, model identifiers,
// message contexts, the error taxonomy, and the Stack interface the
// core consumes.
//
// The protocol stack itself (provisioning, network/transport
// encryption, relay, friendship) is an external collaborator. The core
// only needs three things from it: a way to send client requests, a way
// to send server status replies, and a group-membership query for the
// server addressing policy. Stack implementations deliver inbound
// callbacks by publishing envelopes on the control-task bus.
package mesh
