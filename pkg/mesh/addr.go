package mesh

// Address is a 16-bit BLE-mesh destination or source address.
type Address uint16

// Well-known addresses.
const (
	// AddrUnassigned is the unassigned address.
	AddrUnassigned Address = 0x0000

	// AddrAllNodes is the all-nodes broadcast address.
	AddrAllNodes Address = 0xFFFF
)

// IsUnicast reports whether the address is a unicast address
// (0x0001..0x7FFF).
func (a Address) IsUnicast() bool {
	return a > AddrUnassigned && a < 0x8000
}

// IsVirtual reports whether the address is a virtual address
// (0x8000..0xBFFF).
func (a Address) IsVirtual() bool {
	return a >= 0x8000 && a < 0xC000
}

// IsGroup reports whether the address is a group address
// (0xC000..0xFFFE).
func (a Address) IsGroup() bool {
	return a >= 0xC000 && a != AddrAllNodes
}

// IsBroadcast reports whether the address is the all-nodes broadcast.
func (a Address) IsBroadcast() bool {
	return a == AddrAllNodes
}
