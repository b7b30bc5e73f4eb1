// Package bus implements the control task: the single-consumer event
// bus at the heart of the MeshX node.
//
// Producers (protocol stack callbacks, application goroutines) publish
// envelopes from arbitrary goroutines; one dedicated consumer goroutine
// dequeues them in FIFO order and fans each envelope out to every
// registration whose event mask intersects the envelope's event bits.
//
// # Envelopes
//
// An envelope carries a coarse Category, a fine-grained Event bitmask,
// and an optional payload. Publish copies the payload, so the bytes the
// consumer sees are exactly the bytes passed in, regardless of what the
// producer does with its buffer afterwards. Handlers must copy the
// payload if they retain it beyond the callback.
//
// # Backpressure
//
// The mailbox is bounded. Publish blocks until space is available -
// deliberate backpressure, no silent drop. Handlers run synchronously
// on the consumer goroutine; a handler may publish (the envelope
// re-enters the queue, not the dispatch loop) but must leave headroom
// in the mailbox for it.
//
// # Registry
//
// Registrations are per-category (mask, handler) pairs guarded by a
// RWMutex, so subscribing and unsubscribing are safe against concurrent
// dispatch. Duplicate registration is allowed by design: one handler
// registered under several masks yields several entries.
package bus
