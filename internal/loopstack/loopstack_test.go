package loopstack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
	"github.com/meshx-protocol/meshx-go/pkg/model"
)

const nodeAddr = mesh.Address(0x0001)

// harness wires a client/server model pair over one bus and a loopback
// stack.
type harness struct {
	bus     *bus.Bus
	stack   *Stack
	client  *model.CTLClient
	server  *model.CTLServer
	changes <-chan model.StateChange
}

func newHarness(t *testing.T, publishAddr mesh.Address) *harness {
	t.Helper()

	b := bus.New(bus.Config{MailboxDepth: 32})
	b.Start()
	t.Cleanup(b.Stop)

	stack, err := New(Config{Bus: b, NodeAddr: nodeAddr})
	require.NoError(t, err)

	client, err := model.NewCTLClient(model.Config{Bus: b, Stack: stack, ElementID: 0, NodeAddr: nodeAddr})
	require.NoError(t, err)
	require.NoError(t, client.Init())

	server, err := model.NewCTLServer(model.Config{Bus: b, Stack: stack, ElementID: 0, PublishAddr: publishAddr})
	require.NoError(t, err)
	require.NoError(t, server.Init())

	ch := make(chan model.StateChange, 16)
	_, err = b.Subscribe(bus.CategoryElementStateChange, bus.EventElementCTL,
		func(_ context.Context, _ bus.Event, payload []byte) error {
			sc, err := model.DecodeStateChange(payload)
			if err != nil {
				return err
			}
			ch <- *sc
			return nil
		})
	require.NoError(t, err)

	return &harness{bus: b, stack: stack, client: client, server: server, changes: ch}
}

// waitChange waits for the next state change surfaced by the given
// model, skipping changes from the other side of the loopback.
func (h *harness) waitChange(t *testing.T, from mesh.ModelID) model.StateChange {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case sc := <-h.changes:
			if sc.Model == from {
				return sc
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state change from %s", from)
		}
	}
}

func (h *harness) expectNoChange(t *testing.T, from mesh.ModelID) {
	t.Helper()
	timeout := time.After(150 * time.Millisecond)
	for {
		select {
		case sc := <-h.changes:
			if sc.Model == from {
				t.Fatalf("unexpected state change from %s: %+v", from, sc)
			}
		case <-timeout:
			return
		}
	}
}

func TestSetRoundTrip(t *testing.T) {
	h := newHarness(t, mesh.AddrUnassigned)

	// Acknowledged SET travels to the server, the STATUS reply comes
	// back, and the client's change detector accepts the transition.
	require.NoError(t, h.client.Set(nodeAddr, 0, 0, 500, 3000, 0, 1, true))

	sc := h.waitChange(t, mesh.ModelLightCTLClient)
	assert.Equal(t, uint16(500), sc.Status.Lightness)
	assert.Equal(t, uint16(3000), sc.Status.Temperature)
	assert.Equal(t, mesh.StatusSuccess, sc.Code)

	st := h.server.State()
	assert.Equal(t, uint16(500), st.Lightness)
	assert.Equal(t, uint16(3000), st.Temperature)

	cache := h.client.State()
	assert.Equal(t, uint16(500), cache.Lightness)
	assert.Equal(t, uint16(3000), cache.Temperature)

	// The identical SET again: the server replies with the same STATUS
	// and the client deduplicates it.
	require.NoError(t, h.client.Set(nodeAddr, 0, 0, 500, 3000, 0, 2, true))
	h.expectNoChange(t, mesh.ModelLightCTLClient)
}

func TestSetUnackRoutesStatusToPublishAddress(t *testing.T) {
	const publishAddr = mesh.Address(0x0077)
	h := newHarness(t, publishAddr)

	require.NoError(t, h.client.Set(nodeAddr, 0, 0, 800, 2700, 0, 1, false))

	// No direct reply for SET-UNACK, but the publish-address routing
	// still emits one STATUS; the loopback delivers it to the client
	// with the publish address as destination, so the client drops it
	// (not our unicast) and only the server-side change surfaces.
	sc := h.waitChange(t, mesh.ModelLightCTLServer)
	assert.Equal(t, uint16(800), sc.Status.Lightness)
	h.expectNoChange(t, mesh.ModelLightCTLClient)

	assert.Equal(t, uint16(800), h.server.State().Lightness)
}

func TestAckTimeoutSurfacesAfterResends(t *testing.T) {
	h := newHarness(t, mesh.AddrUnassigned)
	h.stack.SetDrop(true)

	require.NoError(t, h.client.Set(nodeAddr, 0, 0, 500, 3000, 0, 9, true))

	// Every timeout triggers a resend until the budget is exhausted,
	// then the timeout status reaches the element layer.
	sc := h.waitChange(t, mesh.ModelLightCTLClient)
	assert.Equal(t, mesh.StatusTimeout, sc.Code)
}

func TestGetRoundTrip(t *testing.T) {
	h := newHarness(t, mesh.AddrUnassigned)
	h.server.RestoreState(model.StateCache{Lightness: 321, Temperature: 4500})

	require.NoError(t, h.client.Get(nodeAddr, 0, 0))

	sc := h.waitChange(t, mesh.ModelLightCTLClient)
	assert.Equal(t, uint16(321), sc.Status.Lightness)
	assert.Equal(t, uint16(4500), sc.Status.Temperature)
}

func TestGroupSubscription(t *testing.T) {
	h := newHarness(t, mesh.AddrUnassigned)

	const group = mesh.Address(0xC001)
	assert.False(t, h.stack.IsGroupSubscribed(mesh.ModelLightCTLServer, group))

	h.stack.Subscribe(mesh.ModelLightCTLServer, group)
	assert.True(t, h.stack.IsGroupSubscribed(mesh.ModelLightCTLServer, group))
	assert.False(t, h.stack.IsGroupSubscribed(mesh.ModelGenOnOffServer, group))

	h.stack.Unsubscribe(mesh.ModelLightCTLServer, group)
	assert.False(t, h.stack.IsGroupSubscribed(mesh.ModelLightCTLServer, group))
}

func TestUnsupportedOpcode(t *testing.T) {
	h := newHarness(t, mesh.AddrUnassigned)

	err := h.stack.SendClientMessage(&mesh.ClientRequest{Opcode: 0x1234})
	assert.ErrorIs(t, err, mesh.ErrNotSupported)
}
