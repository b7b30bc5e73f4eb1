package mesh

import "errors"

// Error taxonomy shared across the node core. Structural errors are
// returned synchronously to the caller; dispatch errors are logged and
// never propagated to the publisher.
var (
	// ErrInvalidArgument indicates a nil or out-of-range input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound indicates an unsubscribe or deregister miss.
	ErrNotFound = errors.New("not found")

	// ErrNotSupported indicates an unhandled opcode or event.
	ErrNotSupported = errors.New("not supported")

	// ErrInvalidState indicates an operation attempted with no prior
	// context, e.g. a timeout with an empty retry table.
	ErrInvalidState = errors.New("invalid state")

	// ErrTimeout indicates an awaited response never arrived.
	ErrTimeout = errors.New("timeout")

	// ErrPlatform indicates an underlying stack call failed.
	ErrPlatform = errors.New("platform error")
)

// StatusCode is the wire-level result code carried in element messages,
// so consumers on the far side of the bus can correlate without
// unwrapping Go errors.
type StatusCode uint8

const (
	// StatusSuccess indicates the operation completed.
	StatusSuccess StatusCode = 0

	// StatusTimeout indicates the request timed out after retries.
	StatusTimeout StatusCode = 1

	// StatusFailure indicates a generic failure.
	StatusFailure StatusCode = 2
)

// String returns the status name.
func (s StatusCode) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusFailure:
		return "FAILURE"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s StatusCode) IsSuccess() bool {
	return s == StatusSuccess
}
