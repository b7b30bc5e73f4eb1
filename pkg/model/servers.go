package model

import (
	"fmt"

	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// OnOffServer is the Generic OnOff server model adapter.
type OnOffServer struct {
	*Server
}

// NewOnOffServer creates a Generic OnOff server adapter.
func NewOnOffServer(cfg Config) (*OnOffServer, error) {
	s, err := newServer(cfg, mesh.ModelGenOnOffServer, bus.EventStackOnOffServer, bus.EventElementOnOff,
		applyOnOff, onOffStatus)
	if err != nil {
		return nil, err
	}
	return &OnOffServer{Server: s}, nil
}

func applyOnOff(cb *StackCallback, st *StateCache) (bool, error) {
	if cb.OnOffSet == nil {
		return false, fmt.Errorf("missing onoff payload: %w", mesh.ErrInvalidArgument)
	}
	st.OnOff = cb.OnOffSet.OnOff
	return true, nil
}

func onOffStatus(_ mesh.Opcode, st StateCache) mesh.ClientStatus {
	return mesh.ClientStatus{OnOff: st.OnOff}
}

// CTLServer is the Light CTL server model adapter.
type CTLServer struct {
	*Server
}

// NewCTLServer creates a Light CTL server adapter.
func NewCTLServer(cfg Config) (*CTLServer, error) {
	s, err := newServer(cfg, mesh.ModelLightCTLServer, bus.EventStackCTLServer, bus.EventElementCTL,
		applyCTL, ctlStatus)
	if err != nil {
		return nil, err
	}
	return &CTLServer{Server: s}, nil
}

func applyCTL(cb *StackCallback, st *StateCache) (bool, error) {
	switch cb.Ctx.Opcode {
	case mesh.OpLightCTLSet, mesh.OpLightCTLSetUnack:
		set := cb.CTLSet
		if set == nil {
			return false, fmt.Errorf("missing ctl payload: %w", mesh.ErrInvalidArgument)
		}
		if !inRange(set.Temperature, st.RangeMin, st.RangeMax) {
			return false, fmt.Errorf("temperature %d outside range [%d, %d]: %w",
				set.Temperature, st.RangeMin, st.RangeMax, mesh.ErrInvalidArgument)
		}
		st.Lightness = set.Lightness
		st.Temperature = set.Temperature
		st.DeltaUV = set.DeltaUV

	case mesh.OpLightCTLTemperatureSet, mesh.OpLightCTLTemperatureSetUnack:
		set := cb.TemperatureSet
		if set == nil {
			return false, fmt.Errorf("missing temperature payload: %w", mesh.ErrInvalidArgument)
		}
		if !inRange(set.Temperature, st.RangeMin, st.RangeMax) {
			return false, fmt.Errorf("temperature %d outside range [%d, %d]: %w",
				set.Temperature, st.RangeMin, st.RangeMax, mesh.ErrInvalidArgument)
		}
		st.Temperature = set.Temperature
		st.DeltaUV = set.DeltaUV

	case mesh.OpLightCTLTemperatureRangeSet, mesh.OpLightCTLTemperatureRangeSetUnack:
		set := cb.RangeSet
		if set == nil {
			return false, fmt.Errorf("missing range payload: %w", mesh.ErrInvalidArgument)
		}
		if set.RangeMin > set.RangeMax {
			return false, fmt.Errorf("range min %d > max %d: %w", set.RangeMin, set.RangeMax, mesh.ErrInvalidArgument)
		}
		st.RangeMin = set.RangeMin
		st.RangeMax = set.RangeMax

	case mesh.OpLightCTLDefaultSet, mesh.OpLightCTLDefaultSetUnack:
		// Power-up defaults are not modelled; the SET is accepted and
		// acknowledged without touching the running state.
		return false, nil

	default:
		return false, fmt.Errorf("opcode 0x%04X: %w", uint32(cb.Ctx.Opcode), mesh.ErrNotSupported)
	}
	return true, nil
}

// inRange checks a temperature against the configured bounds. A zero
// range means unconfigured and accepts everything.
func inRange(v, min, max uint16) bool {
	if min == 0 && max == 0 {
		return true
	}
	return v >= min && v <= max
}

func ctlStatus(op mesh.Opcode, st StateCache) mesh.ClientStatus {
	switch op {
	case mesh.OpLightCTLTemperatureGet, mesh.OpLightCTLTemperatureSet, mesh.OpLightCTLTemperatureSetUnack:
		return mesh.ClientStatus{Temperature: st.Temperature, DeltaUV: st.DeltaUV}
	case mesh.OpLightCTLTemperatureRangeGet, mesh.OpLightCTLTemperatureRangeSet, mesh.OpLightCTLTemperatureRangeSetUnack:
		return mesh.ClientStatus{RangeMin: st.RangeMin, RangeMax: st.RangeMax}
	case mesh.OpLightCTLDefaultGet, mesh.OpLightCTLDefaultSet, mesh.OpLightCTLDefaultSetUnack:
		// Defaults are not modelled; the status is a bare acknowledgement.
		return mesh.ClientStatus{}
	default:
		return mesh.ClientStatus{Lightness: st.Lightness, Temperature: st.Temperature}
	}
}
