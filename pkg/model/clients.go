package model

import (
	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// OnOffClient is the Generic OnOff client model adapter.
type OnOffClient struct {
	*Client
}

// NewOnOffClient creates a Generic OnOff client adapter.
func NewOnOffClient(cfg Config) (*OnOffClient, error) {
	c, err := newClient(cfg, mesh.ModelGenOnOffClient, bus.EventStackOnOffClient, bus.EventElementOnOff)
	if err != nil {
		return nil, err
	}
	return &OnOffClient{Client: c}, nil
}

// Get requests the present OnOff state.
func (c *OnOffClient) Get(dest mesh.Address, netIdx, appIdx uint16) error {
	return c.Send(mesh.OpGenOnOffGet, dest, netIdx, appIdx, nil, 0)
}

// Set requests an OnOff state change. ack selects the acknowledged
// SET; otherwise SET-UNACK is sent.
func (c *OnOffClient) Set(dest mesh.Address, netIdx, appIdx uint16, onoff bool, tid uint8, ack bool) error {
	op := mesh.OpGenOnOffSetUnack
	if ack {
		op = mesh.OpGenOnOffSet
	}
	return c.Send(op, dest, netIdx, appIdx, &mesh.GenOnOffSet{OnOff: onoff, TID: tid}, tid)
}

// CTLClient is the Light CTL client model adapter.
type CTLClient struct {
	*Client
}

// NewCTLClient creates a Light CTL client adapter.
func NewCTLClient(cfg Config) (*CTLClient, error) {
	c, err := newClient(cfg, mesh.ModelLightCTLClient, bus.EventStackCTLClient, bus.EventElementCTL)
	if err != nil {
		return nil, err
	}
	return &CTLClient{Client: c}, nil
}

// Get requests the present lightness and temperature.
func (c *CTLClient) Get(dest mesh.Address, netIdx, appIdx uint16) error {
	return c.Send(mesh.OpLightCTLGet, dest, netIdx, appIdx, nil, 0)
}

// Set requests a combined lightness/temperature/delta-UV change.
func (c *CTLClient) Set(dest mesh.Address, netIdx, appIdx uint16, lightness, temperature, deltaUV uint16, tid uint8, ack bool) error {
	op := mesh.OpLightCTLSetUnack
	if ack {
		op = mesh.OpLightCTLSet
	}
	payload := &mesh.LightCTLSet{
		Lightness:   lightness,
		Temperature: temperature,
		DeltaUV:     deltaUV,
		TID:         tid,
	}
	return c.Send(op, dest, netIdx, appIdx, payload, tid)
}

// TemperatureGet requests the present temperature and delta UV.
func (c *CTLClient) TemperatureGet(dest mesh.Address, netIdx, appIdx uint16) error {
	return c.Send(mesh.OpLightCTLTemperatureGet, dest, netIdx, appIdx, nil, 0)
}

// TemperatureSet requests a temperature/delta-UV change.
func (c *CTLClient) TemperatureSet(dest mesh.Address, netIdx, appIdx uint16, temperature, deltaUV uint16, tid uint8, ack bool) error {
	op := mesh.OpLightCTLTemperatureSetUnack
	if ack {
		op = mesh.OpLightCTLTemperatureSet
	}
	payload := &mesh.LightCTLTemperatureSet{
		Temperature: temperature,
		DeltaUV:     deltaUV,
		TID:         tid,
	}
	return c.Send(op, dest, netIdx, appIdx, payload, tid)
}

// RangeGet requests the temperature range bounds.
func (c *CTLClient) RangeGet(dest mesh.Address, netIdx, appIdx uint16) error {
	return c.Send(mesh.OpLightCTLTemperatureRangeGet, dest, netIdx, appIdx, nil, 0)
}

// RangeSet requests a temperature range change. The range message
// carries no transaction ID on the wire; tid keys the retry table
// locally.
func (c *CTLClient) RangeSet(dest mesh.Address, netIdx, appIdx uint16, rangeMin, rangeMax uint16, tid uint8, ack bool) error {
	op := mesh.OpLightCTLTemperatureRangeSetUnack
	if ack {
		op = mesh.OpLightCTLTemperatureRangeSet
	}
	payload := &mesh.LightCTLTemperatureRangeSet{
		RangeMin: rangeMin,
		RangeMax: rangeMax,
	}
	return c.Send(op, dest, netIdx, appIdx, payload, tid)
}
