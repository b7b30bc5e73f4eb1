package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshx-protocol/meshx-go/pkg/app"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

func TestParseFull(t *testing.T) {
	data := []byte(`
node:
  name: hallway
  addr: 0x0042
bus:
  mailbox_depth: 32
retry:
  slots: 4
  expiry: 5s
  max_resends: 2
log:
  file: events.cbor
  console: true
persistence:
  path: state.json
elements:
  - id: 0
    type: light_cwww
    publish_addr: 0xC001
  - id: 1
    type: switch
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "hallway", cfg.Node.Name)
	assert.Equal(t, uint16(0x0042), cfg.Node.Addr)
	assert.Equal(t, 32, cfg.Bus.MailboxDepth)
	assert.Equal(t, 4, cfg.Retry.Slots)
	assert.Equal(t, 5*time.Second, cfg.Retry.Expiry.Std())
	assert.Equal(t, 2, cfg.Retry.MaxResends)
	assert.Equal(t, "events.cbor", cfg.Log.File)
	assert.Equal(t, "state.json", cfg.Persistence.Path)

	require.Len(t, cfg.Elements, 2)
	et, err := cfg.Elements[0].ElementType()
	require.NoError(t, err)
	assert.Equal(t, app.ElementLightCWWW, et)
	assert.Equal(t, uint16(0xC001), cfg.Elements[0].PublishAddr)
}

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`node: {name: bare}`))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Node.Addr, cfg.Node.Addr)
	assert.Equal(t, def.Bus.MailboxDepth, cfg.Bus.MailboxDepth)
	assert.Equal(t, def.Retry.Slots, cfg.Retry.Slots)
	assert.Equal(t, def.Retry.Expiry, cfg.Retry.Expiry)
	assert.Equal(t, def.Retry.MaxResends, cfg.Retry.MaxResends)
	require.Len(t, cfg.Elements, 2)
	assert.Equal(t, "light_cwww", cfg.Elements[0].Type)
	assert.Equal(t, "switch", cfg.Elements[1].Type)
}

func TestValidateRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown element type", `elements: [{id: 0, type: toaster}]`},
		{"duplicate element id", `elements: [{id: 0, type: switch}, {id: 0, type: switch}]`},
		{"non-unicast node addr", `node: {addr: 0xC000}`},
		{"bad publish addr", `elements: [{id: 0, type: switch, publish_addr: 0xFFFF}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.ErrorIs(t, err, mesh.ErrInvalidArgument)
		})
	}
}

func TestParseBadDuration(t *testing.T) {
	_, err := Parse([]byte(`retry: {expiry: soon}`))
	assert.Error(t, err)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
