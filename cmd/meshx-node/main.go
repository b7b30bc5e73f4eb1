// Command meshx-node runs a MeshX lighting node over an in-process
// loopback stack: the control-task bus, the configured elements with
// their client/server model adapters, the application API, and state
// persistence across restarts.
//
// Usage:
//
//	meshx-node [flags]
//
// Flags:
//
//	-config string   YAML configuration file (built-in defaults if empty)
//	-state string    State snapshot path (overrides the config file)
//	-log-file string CBOR event log path (overrides the config file)
//	-interactive     Run the interactive shell (default true)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/meshx-protocol/meshx-go/internal/loopstack"
	"github.com/meshx-protocol/meshx-go/pkg/app"
	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/config"
	"github.com/meshx-protocol/meshx-go/pkg/element"
	"github.com/meshx-protocol/meshx-go/pkg/log"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
	"github.com/meshx-protocol/meshx-go/pkg/model"
	"github.com/meshx-protocol/meshx-go/pkg/persistence"
)

var (
	configPath  = flag.String("config", "", "YAML configuration file")
	statePath   = flag.String("state", "", "state snapshot path (overrides config)")
	logFile     = flag.String("log-file", "", "CBOR event log path (overrides config)")
	interactive = flag.Bool("interactive", true, "run the interactive shell")
)

// node bundles the assembled subsystems.
type node struct {
	cfg      config.Config
	runID    string
	bus      *bus.Bus
	stack    *loopstack.Stack
	api      *app.API
	table    *element.Table
	registry *model.Registry
	store    *persistence.Store
	fileLog  *log.FileLogger
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "meshx-node: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	if *statePath != "" {
		cfg.Persistence.Path = *statePath
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	n, err := assemble(cfg)
	if err != nil {
		return err
	}
	defer n.shutdown()

	slog.Info("node up",
		"name", cfg.Node.Name,
		"addr", fmt.Sprintf("0x%04x", cfg.Node.Addr),
		"elements", len(cfg.Elements),
		"run_id", n.runID)

	if *interactive {
		return runShell(n)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())
	return nil
}

// assemble builds and starts the node from its configuration.
func assemble(cfg config.Config) (*node, error) {
	n := &node{cfg: cfg, runID: uuid.NewString()}

	logger, err := n.buildLogger()
	if err != nil {
		return nil, err
	}

	n.bus = bus.New(bus.Config{MailboxDepth: cfg.Bus.MailboxDepth, Logger: logger})

	n.stack, err = loopstack.New(loopstack.Config{
		Bus:      n.bus,
		Logger:   logger,
		NodeAddr: mesh.Address(cfg.Node.Addr),
	})
	if err != nil {
		return nil, err
	}

	n.api, err = app.New(app.Config{Bus: n.bus, Logger: logger})
	if err != nil {
		return nil, err
	}

	n.table, err = element.NewTable(element.Config{Bus: n.bus, API: n.api, Logger: logger})
	if err != nil {
		return nil, err
	}

	n.registry = model.NewRegistry()
	for _, elCfg := range cfg.Elements {
		el, err := n.buildElement(elCfg, logger)
		if err != nil {
			return nil, err
		}
		if err := n.table.Add(el); err != nil {
			return nil, err
		}
	}

	if cfg.Persistence.Path != "" {
		n.store, err = persistence.NewStore(cfg.Persistence.Path, cfg.Node.Name)
		if err != nil {
			return nil, err
		}
		states, err := n.store.Load()
		if err != nil {
			return nil, err
		}
		n.table.Restore(states)
	}

	n.bus.Start()
	if err := n.table.Init(); err != nil {
		return nil, err
	}

	// Print state updates and node status the way an application would
	// consume them.
	if err := n.api.RegisterDataHandler(printFrame); err != nil {
		return nil, err
	}
	if err := n.api.RegisterControlHandler(printFrame); err != nil {
		return nil, err
	}

	if err := n.bus.Publish(bus.CategorySystem, bus.EventSystemFreshBoot, nil); err != nil {
		return nil, err
	}
	// The loopback stack is born provisioned at the configured address.
	if err := n.bus.Publish(bus.CategoryProvision, bus.EventProvisionComplete, nil); err != nil {
		return nil, err
	}
	return n, nil
}

// buildElement wires the adapters a configured element needs.
func (n *node) buildElement(elCfg config.ElementConfig, logger log.Logger) (*element.Element, error) {
	elType, err := elCfg.ElementType()
	if err != nil {
		return nil, err
	}

	mcfg := model.Config{
		Bus:         n.bus,
		Stack:       n.stack,
		Logger:      logger,
		ElementID:   elCfg.ID,
		NodeAddr:    mesh.Address(n.cfg.Node.Addr),
		PublishAddr: mesh.Address(elCfg.PublishAddr),
		RetrySlots:  n.cfg.Retry.Slots,
		RetryExpiry: n.cfg.Retry.Expiry.Std(),
		MaxResends:  n.cfg.Retry.MaxResends,
	}

	el := &element.Element{ID: elCfg.ID, Type: elType}
	switch elType {
	case app.ElementSwitch:
		if el.OnOffClient, err = model.NewOnOffClient(mcfg); err != nil {
			return nil, err
		}
		if el.CTLClient, err = model.NewCTLClient(mcfg); err != nil {
			return nil, err
		}
		if err := n.registry.Create(el.OnOffClient); err != nil {
			return nil, err
		}
		if err := n.registry.Create(el.CTLClient); err != nil {
			return nil, err
		}

	case app.ElementLightCWWW:
		if el.OnOffServer, err = model.NewOnOffServer(mcfg); err != nil {
			return nil, err
		}
		if el.CTLServer, err = model.NewCTLServer(mcfg); err != nil {
			return nil, err
		}
		if err := n.registry.Create(el.OnOffServer); err != nil {
			return nil, err
		}
		if err := n.registry.Create(el.CTLServer); err != nil {
			return nil, err
		}
	}
	return el, nil
}

// buildLogger assembles the configured trace sinks.
func (n *node) buildLogger() (log.Logger, error) {
	var sinks []log.Logger
	if n.cfg.Log.Console {
		sinks = append(sinks, log.NewSlogAdapter(slog.Default()))
	}
	if n.cfg.Log.File != "" {
		fl, err := log.NewFileLogger(n.cfg.Log.File)
		if err != nil {
			return nil, err
		}
		n.fileLog = fl
		sinks = append(sinks, fl)
	}
	if len(sinks) == 0 {
		return log.NoopLogger{}, nil
	}
	return log.WithRunID(log.NewMultiLogger(sinks...), n.runID), nil
}

// shutdown saves the state snapshot and tears the node down.
func (n *node) shutdown() {
	if n.store != nil && n.table != nil {
		if err := n.store.Save(n.table.Snapshot()); err != nil {
			slog.Error("state snapshot failed", "err", err)
		}
	}
	if n.table != nil {
		if err := n.table.Close(); err != nil {
			slog.Error("element table close failed", "err", err)
		}
	}
	if n.bus != nil {
		n.bus.Stop()
	}
	if n.fileLog != nil {
		if err := n.fileLog.Close(); err != nil {
			slog.Error("event log close failed", "err", err)
		}
	}
}

// printFrame renders one application frame on the console.
func printFrame(_ context.Context, f *app.Frame) error {
	attrs := []any{
		"element", f.ElementID,
		"type", f.ElementType.String(),
		"func", int(f.FuncID),
	}
	switch f.FuncID {
	case app.FuncOnOffState, app.FuncCTLState:
		p, err := app.DecodeStatePayload(f.Data)
		if err != nil {
			return err
		}
		attrs = append(attrs,
			"code", p.Code.String(),
			"onoff", p.Status.OnOff,
			"lightness", p.Status.Lightness,
			"temperature", p.Status.Temperature)
	case app.FuncNodeStatus:
		if len(f.Data) == 1 {
			attrs = append(attrs, "status", nodeStatusName(f.Data[0]))
		}
	default:
		attrs = append(attrs, "bytes", len(f.Data))
	}
	slog.Info("app frame", attrs...)
	return nil
}

func nodeStatusName(code uint8) string {
	switch code {
	case app.NodeStatusProvisioned:
		return "provisioned"
	case app.NodeStatusReset:
		return "reset"
	default:
		return fmt.Sprintf("unknown(%d)", code)
	}
}
