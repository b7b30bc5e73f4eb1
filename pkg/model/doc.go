// Package model implements the model adapters: the translation layer
// between protocol-stack callbacks and control-task envelopes for the
// Generic OnOff and Light CTL model pairs.
//
// Client adapters send requests through the mesh.Stack interface, keep
// a transaction-keyed retry table for timeout-driven resends, and run
// change detection before surfacing a state update toward the element
// layer. Server adapters hold the canonical element state, apply
// inbound SET requests to it before any reply, and enforce the
// destination addressing policy (group destinations qualify only when
// the model is subscribed to the group).
//
// Stack callbacks do not call into adapters directly: the stack
// publishes a StackCallback envelope under bus.CategoryFromStack, and
// each adapter owns one event bit there, so every callback is
// serialized through the single bus consumer and reaches exactly one
// adapter.
package model
