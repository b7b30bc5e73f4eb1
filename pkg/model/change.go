package model

import (
	"fmt"

	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// ErrNoChange reports that an inbound status equals the cached state.
// Callers must not propagate the update further; the error exists so
// dedup hits are distinguishable from accepted transitions.
var ErrNoChange = fmt.Errorf("state unchanged: %w", mesh.ErrInvalidState)

// StateCache holds the latest applied state values of one model.
// Client adapters use it for change detection; server adapters use it
// as the canonical element state.
type StateCache struct {
	OnOff       bool   `json:"onoff"`
	Lightness   uint16 `json:"lightness"`
	Temperature uint16 `json:"temperature"`
	DeltaUV     uint16 `json:"delta_uv"`
	RangeMin    uint16 `json:"range_min"`
	RangeMax    uint16 `json:"range_max"`
}

// ApplyStateChange compares an inbound status against the cache,
// field-by-field for the fields the opcode family carries, and updates
// the cache when any relevant field differs.
//
// Returns (true, nil) for an accepted change, (false, ErrNoChange)
// when every relevant field equals the cache, and (false, nil) for
// opcodes with no payload semantics. A non-success status code
// short-circuits to "no change" without touching the cache; corrective
// action belongs to the retry layer, not here.
func ApplyStateChange(op mesh.Opcode, code mesh.StatusCode, in mesh.ClientStatus, cache *StateCache) (bool, error) {
	if cache == nil {
		return false, fmt.Errorf("nil state cache: %w", mesh.ErrInvalidArgument)
	}
	if !code.IsSuccess() {
		return false, nil
	}

	switch op {
	case mesh.OpGenOnOffStatus:
		if in.OnOff == cache.OnOff {
			return false, ErrNoChange
		}
		cache.OnOff = in.OnOff

	case mesh.OpLightCTLStatus:
		if in.Lightness == cache.Lightness && in.Temperature == cache.Temperature {
			return false, ErrNoChange
		}
		cache.Lightness = in.Lightness
		cache.Temperature = in.Temperature

	case mesh.OpLightCTLTemperatureStatus:
		if in.Temperature == cache.Temperature && in.DeltaUV == cache.DeltaUV {
			return false, ErrNoChange
		}
		cache.Temperature = in.Temperature
		cache.DeltaUV = in.DeltaUV

	case mesh.OpLightCTLTemperatureRangeStatus:
		if in.RangeMin == cache.RangeMin && in.RangeMax == cache.RangeMax {
			return false, ErrNoChange
		}
		cache.RangeMin = in.RangeMin
		cache.RangeMax = in.RangeMax

	case mesh.OpLightCTLDefaultStatus:
		// Pure acknowledgement, no state semantics.
		return false, nil

	default:
		return false, fmt.Errorf("opcode 0x%04X has no change semantics: %w", uint32(op), mesh.ErrNotSupported)
	}

	return true, nil
}
