package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

func TestApplyStateChangeOnOff(t *testing.T) {
	var cache StateCache

	changed, err := ApplyStateChange(mesh.OpGenOnOffStatus, mesh.StatusSuccess,
		mesh.ClientStatus{OnOff: true}, &cache)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, cache.OnOff)

	// Same value again never reports changed.
	changed, err = ApplyStateChange(mesh.OpGenOnOffStatus, mesh.StatusSuccess,
		mesh.ClientStatus{OnOff: true}, &cache)
	assert.ErrorIs(t, err, ErrNoChange)
	assert.False(t, changed)
}

func TestApplyStateChangeCTL(t *testing.T) {
	var cache StateCache

	in := mesh.ClientStatus{Lightness: 500, Temperature: 3000}
	changed, err := ApplyStateChange(mesh.OpLightCTLStatus, mesh.StatusSuccess, in, &cache)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint16(500), cache.Lightness)
	assert.Equal(t, uint16(3000), cache.Temperature)

	changed, err = ApplyStateChange(mesh.OpLightCTLStatus, mesh.StatusSuccess, in, &cache)
	assert.ErrorIs(t, err, ErrNoChange)
	assert.False(t, changed)

	// A single differing field is a change.
	in.Temperature = 4000
	changed, err = ApplyStateChange(mesh.OpLightCTLStatus, mesh.StatusSuccess, in, &cache)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint16(4000), cache.Temperature)
}

func TestApplyStateChangeTemperature(t *testing.T) {
	var cache StateCache

	in := mesh.ClientStatus{Temperature: 2700, DeltaUV: 10}
	changed, err := ApplyStateChange(mesh.OpLightCTLTemperatureStatus, mesh.StatusSuccess, in, &cache)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint16(2700), cache.Temperature)
	assert.Equal(t, uint16(10), cache.DeltaUV)

	_, err = ApplyStateChange(mesh.OpLightCTLTemperatureStatus, mesh.StatusSuccess, in, &cache)
	assert.ErrorIs(t, err, ErrNoChange)
}

func TestApplyStateChangeRange(t *testing.T) {
	var cache StateCache

	in := mesh.ClientStatus{RangeMin: 2000, RangeMax: 6500}
	changed, err := ApplyStateChange(mesh.OpLightCTLTemperatureRangeStatus, mesh.StatusSuccess, in, &cache)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, uint16(2000), cache.RangeMin)
	assert.Equal(t, uint16(6500), cache.RangeMax)

	_, err = ApplyStateChange(mesh.OpLightCTLTemperatureRangeStatus, mesh.StatusSuccess, in, &cache)
	assert.ErrorIs(t, err, ErrNoChange)
}

func TestApplyStateChangeDefaultStatusIsNoOp(t *testing.T) {
	var cache StateCache

	changed, err := ApplyStateChange(mesh.OpLightCTLDefaultStatus, mesh.StatusSuccess,
		mesh.ClientStatus{Lightness: 123}, &cache)
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.Zero(t, cache.Lightness)
}

func TestApplyStateChangeFailureShortCircuits(t *testing.T) {
	cache := StateCache{OnOff: false}

	changed, err := ApplyStateChange(mesh.OpGenOnOffStatus, mesh.StatusFailure,
		mesh.ClientStatus{OnOff: true}, &cache)
	assert.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, cache.OnOff, "cache must not be touched on failure status")
}

func TestApplyStateChangeUnsupportedOpcode(t *testing.T) {
	var cache StateCache

	_, err := ApplyStateChange(mesh.OpGenOnOffGet, mesh.StatusSuccess, mesh.ClientStatus{}, &cache)
	assert.ErrorIs(t, err, mesh.ErrNotSupported)
}

func TestApplyStateChangeNilCache(t *testing.T) {
	_, err := ApplyStateChange(mesh.OpGenOnOffStatus, mesh.StatusSuccess, mesh.ClientStatus{}, nil)
	assert.ErrorIs(t, err, mesh.ErrInvalidArgument)
}
