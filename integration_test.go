package meshx_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshx-protocol/meshx-go/internal/loopstack"
	"github.com/meshx-protocol/meshx-go/pkg/app"
	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/config"
	"github.com/meshx-protocol/meshx-go/pkg/element"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
	"github.com/meshx-protocol/meshx-go/pkg/model"
	"github.com/meshx-protocol/meshx-go/pkg/persistence"
)

// testNode is a fully assembled node: bus, loopback stack, a light
// element (server models) and a switch element (client models), the
// application API, and optional persistence.
type testNode struct {
	bus    *bus.Bus
	stack  *loopstack.Stack
	api    *app.API
	table  *element.Table
	light  *element.Element
	swtch  *element.Element
	frames chan app.Frame
}

func startNode(t *testing.T, cfg config.Config) *testNode {
	t.Helper()

	b := bus.New(bus.Config{MailboxDepth: cfg.Bus.MailboxDepth})
	b.Start()
	t.Cleanup(b.Stop)

	stack, err := loopstack.New(loopstack.Config{Bus: b, NodeAddr: mesh.Address(cfg.Node.Addr)})
	require.NoError(t, err)

	api, err := app.New(app.Config{Bus: b})
	require.NoError(t, err)

	table, err := element.NewTable(element.Config{Bus: b, API: api})
	require.NoError(t, err)

	mcfg := model.Config{
		Bus:         b,
		Stack:       stack,
		NodeAddr:    mesh.Address(cfg.Node.Addr),
		RetrySlots:  cfg.Retry.Slots,
		RetryExpiry: cfg.Retry.Expiry.Std(),
		MaxResends:  cfg.Retry.MaxResends,
	}

	onoffSrv, err := model.NewOnOffServer(mcfg)
	require.NoError(t, err)
	ctlSrv, err := model.NewCTLServer(mcfg)
	require.NoError(t, err)
	light := &element.Element{ID: 0, Type: app.ElementLightCWWW, OnOffServer: onoffSrv, CTLServer: ctlSrv}
	require.NoError(t, table.Add(light))

	swCfg := mcfg
	swCfg.ElementID = 1
	onoffCli, err := model.NewOnOffClient(swCfg)
	require.NoError(t, err)
	ctlCli, err := model.NewCTLClient(swCfg)
	require.NoError(t, err)
	swtch := &element.Element{ID: 1, Type: app.ElementSwitch, OnOffClient: onoffCli, CTLClient: ctlCli}
	require.NoError(t, table.Add(swtch))

	require.NoError(t, table.Init())
	t.Cleanup(func() { table.Close() })

	frames := make(chan app.Frame, 32)
	require.NoError(t, api.RegisterDataHandler(func(_ context.Context, f *app.Frame) error {
		frames <- *f
		return nil
	}))

	return &testNode{bus: b, stack: stack, api: api, table: table, light: light, swtch: swtch, frames: frames}
}

// waitFrame waits for the next frame from the given element.
func (n *testNode) waitFrame(t *testing.T, elementID uint8, funcID app.FuncID) app.Frame {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case f := <-n.frames:
			if f.ElementID == elementID && f.FuncID == funcID {
				return f
			}
		case <-deadline:
			t.Fatalf("timeout waiting for frame element=%d func=%d", elementID, funcID)
		}
	}
}

func TestSwitchDrivesLight(t *testing.T) {
	n := startNode(t, config.Default())

	// The switch element turns the light on over the loopback mesh.
	require.NoError(t, n.swtch.OnOffClient.Set(0x0001, 0, 0, true, 1, true))

	// The light's server applies the state and surfaces it to the app.
	f := n.waitFrame(t, 0, app.FuncOnOffState)
	p, err := app.DecodeStatePayload(f.Data)
	require.NoError(t, err)
	assert.True(t, p.Status.OnOff)
	assert.True(t, n.light.OnOffServer.State().OnOff)

	// The STATUS reply updates the switch's own cache too.
	f = n.waitFrame(t, 1, app.FuncOnOffState)
	p, err = app.DecodeStatePayload(f.Data)
	require.NoError(t, err)
	assert.True(t, p.Status.OnOff)
	assert.True(t, n.swtch.OnOffClient.State().OnOff)
}

func TestCTLSetAndDedup(t *testing.T) {
	n := startNode(t, config.Default())

	require.NoError(t, n.swtch.CTLClient.Set(0x0001, 0, 0, 500, 3000, 0, 1, true))

	f := n.waitFrame(t, 1, app.FuncCTLState)
	p, err := app.DecodeStatePayload(f.Data)
	require.NoError(t, err)
	assert.Equal(t, mesh.StatusSuccess, p.Code)
	assert.Equal(t, uint16(500), p.Status.Lightness)
	assert.Equal(t, uint16(3000), p.Status.Temperature)

	// Repeating the identical SET produces a server-side frame (the
	// light re-confirms its state) but the switch deduplicates the
	// STATUS: no second client frame arrives.
	require.NoError(t, n.swtch.CTLClient.Set(0x0001, 0, 0, 500, 3000, 0, 2, true))
	n.waitFrame(t, 0, app.FuncCTLState)

	select {
	case f := <-n.frames:
		if f.ElementID == 1 {
			t.Fatalf("expected dedup, got client frame %+v", f)
		}
	case <-time.After(200 * time.Millisecond):
	}
}

func TestTimeoutAfterRetries(t *testing.T) {
	cfg := config.Default()
	n := startNode(t, cfg)
	n.stack.SetDrop(true)

	require.NoError(t, n.swtch.CTLClient.Set(0x0001, 0, 0, 800, 2700, 0, 5, true))

	// Resends happen behind the scenes; eventually the timeout status
	// reaches the application as a CTL frame from the switch element.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case f := <-n.frames:
			if f.ElementID == 1 && f.FuncID == app.FuncCTLState {
				p, err := app.DecodeStatePayload(f.Data)
				require.NoError(t, err)
				assert.Equal(t, mesh.StatusTimeout, p.Code)
				// The light never saw the request.
				assert.Zero(t, n.light.CTLServer.State().Lightness)
				return
			}
		case <-deadline:
			t.Fatal("timeout status never surfaced")
		}
	}
}

func TestStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := persistence.NewStore(path, "test")
	require.NoError(t, err)

	cfg := config.Default()
	n := startNode(t, cfg)

	require.NoError(t, n.swtch.CTLClient.Set(0x0001, 0, 0, 650, 4000, 0, 1, true))
	n.waitFrame(t, 0, app.FuncCTLState)
	require.NoError(t, store.Save(n.table.Snapshot()))

	// "Reboot": a fresh node restores the snapshot.
	n2 := startNode(t, cfg)
	states, err := store.Load()
	require.NoError(t, err)
	n2.table.Restore(states)

	st := n2.light.CTLServer.State()
	assert.Equal(t, uint16(650), st.Lightness)
	assert.Equal(t, uint16(4000), st.Temperature)
}
