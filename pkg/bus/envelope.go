package bus

// Category is the coarse classification of an envelope. Each category
// has its own registration list.
type Category uint8

const (
	// CategoryElementStateChange carries model state changes toward the
	// element layer.
	CategoryElementStateChange Category = iota

	// CategorySystem carries node lifecycle events.
	CategorySystem

	// CategoryFromStack carries stack callbacks toward the model adapters.
	CategoryFromStack

	// CategoryProvision carries provisioning lifecycle events.
	CategoryProvision

	// CategoryToApp carries framed messages toward the application.
	CategoryToApp

	// CategoryToMesh carries framed application messages toward elements.
	CategoryToMesh

	categoryCount
)

// Valid reports whether the category is in range.
func (c Category) Valid() bool {
	return c < categoryCount
}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryElementStateChange:
		return "EL_STATE_CHANGE"
	case CategorySystem:
		return "SYSTEM"
	case CategoryFromStack:
		return "FROM_STACK"
	case CategoryProvision:
		return "PROVISION"
	case CategoryToApp:
		return "TO_APP"
	case CategoryToMesh:
		return "TO_MESH"
	default:
		return "UNKNOWN"
	}
}

// Event is the fine-grained sub-classification within a category.
// Subscribers match via bitwise AND, so one envelope can reach several
// registrations and one registration can cover several events.
type Event uint32

// CategoryElementStateChange events.
const (
	// EventElementOnOff signals an OnOff state change.
	EventElementOnOff Event = 1 << 0

	// EventElementCTL signals a Light CTL state change.
	EventElementCTL Event = 1 << 1
)

// CategoryFromStack events. Each model class owns one bit, so the
// per-model fan-out is single-owner by construction: exactly one
// adapter matches a given callback envelope.
const (
	EventStackOnOffClient Event = 1 << 0
	EventStackCTLClient   Event = 1 << 1
	EventStackOnOffServer Event = 1 << 2
	EventStackCTLServer   Event = 1 << 3
)

// CategorySystem events.
const (
	EventSystemRestart   Event = 1 << 0
	EventSystemFreshBoot Event = 1 << 1
)

// CategoryProvision events.
const (
	// EventProvisionComplete signals the node joined a network and
	// holds a unicast address.
	EventProvisionComplete Event = 1 << 0

	// EventNodeReset signals the node left the network and dropped its
	// persisted configuration.
	EventNodeReset Event = 1 << 1
)

// CategoryToApp / CategoryToMesh events.
const (
	// EventAppData carries an element data message.
	EventAppData Event = 1 << 0

	// EventAppControl carries a node control message.
	EventAppControl Event = 1 << 1
)

// Envelope is the bus transport unit. The payload is owned by the bus
// from Publish until the dispatch of this envelope returns.
type Envelope struct {
	// Category selects the registration list.
	Category Category

	// Event identifies the sub-event; subscribers match via AND.
	Event Event

	// Payload is the optional message body. May be nil.
	Payload []byte
}
