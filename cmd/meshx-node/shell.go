package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/meshx-protocol/meshx-go/pkg/bus"
	"github.com/meshx-protocol/meshx-go/pkg/element"
	"github.com/meshx-protocol/meshx-go/pkg/mesh"
)

// runShell drives the node interactively: sending client requests,
// inspecting element state, and toggling the loopback behavior.
func runShell(n *node) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "meshx> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	sh := &shell{node: n, out: rl.Stdout()}
	sh.printHelp()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil { // io.EOF
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		cmd, args := strings.ToLower(fields[0]), fields[1:]
		if cmd == "exit" || cmd == "quit" || cmd == "q" {
			return nil
		}
		if err := sh.dispatch(cmd, args); err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
	}
}

type shell struct {
	node *node
	out  io.Writer

	// tid is the running transaction counter for SET commands.
	tid uint8
}

func (s *shell) dispatch(cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		s.printHelp()
		return nil
	case "elements", "els":
		return s.cmdElements()
	case "models":
		return s.cmdModels()
	case "state":
		return s.cmdState(args)
	case "onoff":
		return s.cmdOnOff(args)
	case "ctl":
		return s.cmdCTL(args)
	case "get":
		return s.cmdGet(args)
	case "drop":
		return s.cmdDrop(args)
	case "save":
		return s.cmdSave()
	case "reset":
		return s.cmdReset()
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (s *shell) printHelp() {
	fmt.Fprint(s.out, `commands:
  elements                     list wired elements
  models                       list created model adapters
  state <element>              print an element's state
  onoff <element> on|off       send a Generic OnOff SET from the element's client
  ctl <element> <light> <temp> send a Light CTL SET from the element's client
  get <element>                send a Light CTL GET from the element's client
  drop on|off                  drop loopback deliveries (forces timeouts)
  save                         write the state snapshot now
  reset                        drop the state snapshot and signal a node reset
  exit                         quit
`)
}

func (s *shell) cmdElements() error {
	for _, el := range s.node.table.Elements() {
		st := el.State()
		fmt.Fprintf(s.out, "element %d  %-10s onoff=%v lightness=%d temperature=%d\n",
			el.ID, el.Type, st.OnOff, st.Lightness, st.Temperature)
	}
	return nil
}

func (s *shell) cmdModels() error {
	for _, id := range s.node.registry.Models() {
		a, _ := s.node.registry.Get(id)
		fmt.Fprintf(s.out, "%-14s element %d\n", id, a.ElementID())
	}
	return nil
}

func (s *shell) cmdState(args []string) error {
	el, err := s.element(args, 0)
	if err != nil {
		return err
	}
	st := el.State()
	fmt.Fprintf(s.out, "element %d: %+v\n", el.ID, st)
	return nil
}

func (s *shell) cmdOnOff(args []string) error {
	el, err := s.element(args, 1)
	if err != nil {
		return err
	}
	if el.OnOffClient == nil {
		return fmt.Errorf("element %d has no onoff client", el.ID)
	}
	var onoff bool
	switch args[1] {
	case "on":
		onoff = true
	case "off":
		onoff = false
	default:
		return fmt.Errorf("expected on|off, got %q", args[1])
	}
	s.tid++
	return el.OnOffClient.Set(mesh.Address(s.node.cfg.Node.Addr), 0, 0, onoff, s.tid, true)
}

func (s *shell) cmdCTL(args []string) error {
	el, err := s.element(args, 2)
	if err != nil {
		return err
	}
	if el.CTLClient == nil {
		return fmt.Errorf("element %d has no ctl client", el.ID)
	}
	lightness, err := parseUint16(args[1])
	if err != nil {
		return err
	}
	temperature, err := parseUint16(args[2])
	if err != nil {
		return err
	}
	s.tid++
	return el.CTLClient.Set(mesh.Address(s.node.cfg.Node.Addr), 0, 0, lightness, temperature, 0, s.tid, true)
}

func (s *shell) cmdGet(args []string) error {
	el, err := s.element(args, 0)
	if err != nil {
		return err
	}
	if el.CTLClient == nil {
		return fmt.Errorf("element %d has no ctl client", el.ID)
	}
	return el.CTLClient.Get(mesh.Address(s.node.cfg.Node.Addr), 0, 0)
}

func (s *shell) cmdDrop(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: drop on|off")
	}
	switch args[0] {
	case "on":
		s.node.stack.SetDrop(true)
		fmt.Fprintln(s.out, "dropping deliveries; acknowledged sends will time out")
	case "off":
		s.node.stack.SetDrop(false)
		fmt.Fprintln(s.out, "deliveries restored")
	default:
		return fmt.Errorf("expected on|off, got %q", args[0])
	}
	return nil
}

func (s *shell) cmdSave() error {
	if s.node.store == nil {
		return errors.New("persistence is not configured")
	}
	if err := s.node.store.Save(s.node.table.Snapshot()); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "snapshot written")
	return nil
}

func (s *shell) cmdReset() error {
	if s.node.store != nil {
		if err := s.node.store.Reset(); err != nil {
			return err
		}
	}
	if err := s.node.bus.Publish(bus.CategoryProvision, bus.EventNodeReset, nil); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "node reset signalled")
	return nil
}

// element resolves the element argument and checks the remaining
// argument count.
func (s *shell) element(args []string, extra int) (*element.Element, error) {
	if len(args) < 1+extra {
		return nil, errors.New("missing arguments (try help)")
	}
	id, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return nil, fmt.Errorf("bad element id %q", args[0])
	}
	el, ok := s.node.table.Get(uint8(id))
	if !ok {
		return nil, fmt.Errorf("no element %d", id)
	}
	return el, nil
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", s)
	}
	return uint16(v), nil
}
