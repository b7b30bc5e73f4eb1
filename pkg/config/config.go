// Package config loads the node configuration from YAML and applies
// defaults and validation. The configuration covers the identity of
// the node, the control-task sizing, the client retry policy, and the
// static element composition.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meshx-protocol/meshx-go/pkg/app"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
	"github.com/meshx-protocol/meshx-go/pkg/model"
)

// Config is the root node configuration.
type Config struct {
	Node        NodeConfig        `yaml:"node"`
	Bus         BusConfig         `yaml:"bus"`
	Retry       RetryConfig       `yaml:"retry"`
	Log         LogConfig         `yaml:"log"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Elements    []ElementConfig   `yaml:"elements"`
}

// NodeConfig identifies the node.
type NodeConfig struct {
	// Name is a human-readable node name.
	Name string `yaml:"name"`

	// Addr is the node's unicast address.
	Addr uint16 `yaml:"addr"`
}

// BusConfig sizes the control task.
type BusConfig struct {
	// MailboxDepth is the bounded mailbox capacity.
	MailboxDepth int `yaml:"mailbox_depth"`
}

// RetryConfig tunes the client retry tables.
type RetryConfig struct {
	// Slots bounds the concurrently outstanding requests per model.
	Slots int `yaml:"slots"`

	// Expiry is how long a staged request stays resendable.
	Expiry Duration `yaml:"expiry"`

	// MaxResends caps timeout-driven resends per transaction.
	MaxResends int `yaml:"max_resends"`
}

// Duration wraps time.Duration so YAML accepts "10s"-style strings.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: duration %q: %w", s, err)
		}
		*d = Duration(dur)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("config: invalid duration: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// LogConfig selects the trace sinks.
type LogConfig struct {
	// File is the CBOR event log path. Empty disables the file sink.
	File string `yaml:"file"`

	// Console enables the slog console sink.
	Console bool `yaml:"console"`
}

// PersistenceConfig locates the state snapshot.
type PersistenceConfig struct {
	// Path is the snapshot file. Empty disables persistence.
	Path string `yaml:"path"`
}

// ElementConfig wires one element.
type ElementConfig struct {
	// ID is the element identifier, unique per node.
	ID uint8 `yaml:"id"`

	// Type is the element personality: "switch" or "light_cwww".
	Type string `yaml:"type"`

	// PublishAddr is the publish address of the element's server
	// models. Zero disables publish-path routing.
	PublishAddr uint16 `yaml:"publish_addr"`
}

// ElementType maps the YAML type string onto the app-layer type.
func (e ElementConfig) ElementType() (app.ElementType, error) {
	switch e.Type {
	case "switch":
		return app.ElementSwitch, nil
	case "light_cwww":
		return app.ElementLightCWWW, nil
	default:
		return 0, fmt.Errorf("config: element %d: unknown type %q: %w", e.ID, e.Type, mesh.ErrInvalidArgument)
	}
}

// Default returns the configuration used when no file is given: a
// tunable-white light element plus a switch element driving it over
// the loopback.
func Default() Config {
	return Config{
		Node: NodeConfig{Name: "meshx-node", Addr: 0x0001},
		Bus:  BusConfig{MailboxDepth: 10},
		Retry: RetryConfig{
			Slots:      model.DefaultRetrySlots,
			Expiry:     Duration(model.DefaultRetryExpiry),
			MaxResends: model.DefaultMaxResends,
		},
		Log: LogConfig{Console: true},
		Elements: []ElementConfig{
			{ID: 0, Type: "light_cwww"},
			{ID: 1, Type: "switch"},
		},
	}
}

// Load reads a YAML configuration file, fills defaults, and validates.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration bytes, fills defaults, and
// validates.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Elements = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Node.Name == "" {
		c.Node.Name = def.Node.Name
	}
	if c.Node.Addr == 0 {
		c.Node.Addr = def.Node.Addr
	}
	if c.Bus.MailboxDepth == 0 {
		c.Bus.MailboxDepth = def.Bus.MailboxDepth
	}
	if c.Retry.Slots == 0 {
		c.Retry.Slots = def.Retry.Slots
	}
	if c.Retry.Expiry == 0 {
		c.Retry.Expiry = def.Retry.Expiry
	}
	if c.Retry.MaxResends == 0 {
		c.Retry.MaxResends = def.Retry.MaxResends
	}
	if len(c.Elements) == 0 {
		c.Elements = def.Elements
	}
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if c.Bus.MailboxDepth < 0 {
		return fmt.Errorf("config: mailbox depth %d: %w", c.Bus.MailboxDepth, mesh.ErrInvalidArgument)
	}
	if !mesh.Address(c.Node.Addr).IsUnicast() {
		return fmt.Errorf("config: node addr 0x%04X is not unicast: %w", c.Node.Addr, mesh.ErrInvalidArgument)
	}

	seen := make(map[uint8]bool, len(c.Elements))
	for _, el := range c.Elements {
		if seen[el.ID] {
			return fmt.Errorf("config: duplicate element id %d: %w", el.ID, mesh.ErrInvalidArgument)
		}
		seen[el.ID] = true
		if _, err := el.ElementType(); err != nil {
			return err
		}
		if addr := mesh.Address(el.PublishAddr); addr != mesh.AddrUnassigned && !addr.IsUnicast() && !addr.IsGroup() {
			return fmt.Errorf("config: element %d: publish addr 0x%04X: %w", el.ID, el.PublishAddr, mesh.ErrInvalidArgument)
		}
	}
	return nil
}
