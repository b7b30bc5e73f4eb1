package mesh

import "testing"

func TestAddressClasses(t *testing.T) {
	cases := []struct {
		addr      Address
		unicast   bool
		virtual   bool
		group     bool
		broadcast bool
	}{
		{AddrUnassigned, false, false, false, false},
		{0x0001, true, false, false, false},
		{0x7FFF, true, false, false, false},
		{0x8000, false, true, false, false},
		{0xBFFF, false, true, false, false},
		{0xC000, false, false, true, false},
		{0xFFFE, false, false, true, false},
		{AddrAllNodes, false, false, false, true},
	}
	for _, tc := range cases {
		if got := tc.addr.IsUnicast(); got != tc.unicast {
			t.Errorf("0x%04X IsUnicast = %v, want %v", uint16(tc.addr), got, tc.unicast)
		}
		if got := tc.addr.IsVirtual(); got != tc.virtual {
			t.Errorf("0x%04X IsVirtual = %v, want %v", uint16(tc.addr), got, tc.virtual)
		}
		if got := tc.addr.IsGroup(); got != tc.group {
			t.Errorf("0x%04X IsGroup = %v, want %v", uint16(tc.addr), got, tc.group)
		}
		if got := tc.addr.IsBroadcast(); got != tc.broadcast {
			t.Errorf("0x%04X IsBroadcast = %v, want %v", uint16(tc.addr), got, tc.broadcast)
		}
	}
}

func TestStatusOpcode(t *testing.T) {
	cases := []struct {
		op   Opcode
		want Opcode
	}{
		{OpGenOnOffGet, OpGenOnOffStatus},
		{OpGenOnOffSet, OpGenOnOffStatus},
		{OpGenOnOffSetUnack, OpGenOnOffStatus},
		{OpLightCTLSet, OpLightCTLStatus},
		{OpLightCTLTemperatureSetUnack, OpLightCTLTemperatureStatus},
		{OpLightCTLTemperatureRangeGet, OpLightCTLTemperatureRangeStatus},
		{OpLightCTLDefaultSet, OpLightCTLDefaultStatus},
		{OpGenOnOffStatus, 0},
	}
	for _, tc := range cases {
		if got := tc.op.StatusOpcode(); got != tc.want {
			t.Errorf("0x%04X StatusOpcode = 0x%04X, want 0x%04X", uint32(tc.op), uint32(got), uint32(tc.want))
		}
	}
}

func TestIsAcknowledged(t *testing.T) {
	unacked := []Opcode{
		OpGenOnOffSetUnack,
		OpLightCTLSetUnack,
		OpLightCTLTemperatureSetUnack,
		OpLightCTLDefaultSetUnack,
		OpLightCTLTemperatureRangeSetUnack,
	}
	for _, op := range unacked {
		if op.IsAcknowledged() {
			t.Errorf("0x%04X should not expect a reply", uint32(op))
		}
	}
	for _, op := range []Opcode{OpGenOnOffGet, OpGenOnOffSet, OpLightCTLSet} {
		if !op.IsAcknowledged() {
			t.Errorf("0x%04X should expect a reply", uint32(op))
		}
	}
}

func TestStatusCode(t *testing.T) {
	if !StatusSuccess.IsSuccess() {
		t.Error("StatusSuccess should report success")
	}
	if StatusTimeout.IsSuccess() || StatusFailure.IsSuccess() {
		t.Error("non-success codes should not report success")
	}
	if StatusTimeout.String() != "TIMEOUT" {
		t.Errorf("StatusTimeout.String() = %q", StatusTimeout.String())
	}
}
