// Package scenario loads YAML scenario files: a topology reference, run
// parameters and a list of commands scheduled at fixed ticks.
//
//	version: "1"
//	topology: ../topologies/hybrid.json   # relative to the scenario file
//	seed: 42
//	commands:
//	  - {at: 1, type: send_message, from: H3, to: H1, message: hello}
//	  - {at: 2, type: establish_key, adapter: X1}
//	  - {at: 4, type: transmit_qubits, from: QA, to: QR, bit: 1, basis: X}
//	  - {at: 5, type: forward, repeater: QR}
//	  - {at: 9, type: stop}
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/runner"
	"github.com/qnetsim/qnetsim/sim/topology"
	"github.com/qnetsim/qnetsim/sim/trace"
)

// CurrentVersion is the scenario format version this package reads.
const CurrentVersion = "1"

// Scenario is a decoded scenario file.
type Scenario struct {
	Version  string `yaml:"version"`
	Name     string `yaml:"name,omitempty"`
	Topology string `yaml:"topology"`
	Seed     int64  `yaml:"seed"`

	Horizon      int64  `yaml:"horizon,omitempty"`
	AbortOnError bool   `yaml:"abort_on_error,omitempty"`
	TraceLevel   string `yaml:"trace_level,omitempty"`

	MaxHops        int    `yaml:"max_hops,omitempty"`
	QKDKeyLength   int    `yaml:"qkd_key_length,omitempty"`
	BufferCapacity int    `yaml:"buffer_capacity,omitempty"`
	OverflowPolicy string `yaml:"overflow_policy,omitempty"`

	Commands []CommandSpec `yaml:"commands"`

	dir string // directory of the scenario file; topology paths resolve against it
}

// CommandSpec is one scheduled command. Which fields apply depends on Type.
type CommandSpec struct {
	At       int64  `yaml:"at"`
	Type     string `yaml:"type"`
	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
	Message  string `yaml:"message,omitempty"`
	Repeater string `yaml:"repeater,omitempty"`
	Adapter  string `yaml:"adapter,omitempty"`
	Bit      int    `yaml:"bit,omitempty"`
	Basis    string `yaml:"basis,omitempty"`
	Count    int    `yaml:"count,omitempty"`
}

// Load reads and parses a scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes a scenario held in memory. Relative topology paths resolve
// against the working directory.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &s, nil
}

// TopologyPath returns the topology file path, resolved against the
// scenario's directory when relative.
func (s *Scenario) TopologyPath() string {
	if s.Topology == "" || filepath.IsAbs(s.Topology) || s.dir == "" {
		return s.Topology
	}
	return filepath.Join(s.dir, s.Topology)
}

// Validate checks run parameters and every command.
func (s *Scenario) Validate() error {
	if s.Version != "" && s.Version != CurrentVersion {
		return fmt.Errorf("unsupported scenario version %q; expected %q", s.Version, CurrentVersion)
	}
	if s.Topology == "" {
		return fmt.Errorf("topology path is required")
	}
	if s.Horizon < 0 {
		return fmt.Errorf("horizon must be non-negative, got %d", s.Horizon)
	}
	if !trace.IsValidTraceLevel(s.TraceLevel) {
		return fmt.Errorf("unknown trace_level %q; valid: none, packets, all", s.TraceLevel)
	}
	if s.MaxHops < 0 || s.QKDKeyLength < 0 || s.BufferCapacity < 0 {
		return fmt.Errorf("max_hops, qkd_key_length and buffer_capacity must be non-negative")
	}
	if _, err := sim.ParseOverflowPolicy(s.OverflowPolicy); err != nil {
		return err
	}
	for i, c := range s.Commands {
		if _, err := c.command(); err != nil {
			return fmt.Errorf("command %d (%s at tick %d): %w", i, c.Type, c.At, err)
		}
	}
	return nil
}

// Options returns topology build options for this scenario with obs
// attached. The caller may override Seed before building.
func (s *Scenario) Options(obs sim.Observer) topology.Options {
	policy, _ := sim.ParseOverflowPolicy(s.OverflowPolicy)
	return topology.Options{
		Seed:           s.Seed,
		Observer:       obs,
		MaxHops:        s.MaxHops,
		BufferCapacity: s.BufferCapacity,
		OverflowPolicy: policy,
		QKDKeyLength:   s.QKDKeyLength,
	}
}

// RunnerConfig returns the runner configuration for this scenario.
func (s *Scenario) RunnerConfig() runner.Config {
	return runner.Config{Horizon: s.Horizon, AbortOnError: s.AbortOnError}
}

// TraceConfig returns the trace configuration for this scenario.
func (s *Scenario) TraceConfig() trace.TraceConfig {
	level := trace.TraceLevel(s.TraceLevel)
	if level == "" {
		level = trace.TraceLevelNone
	}
	return trace.TraceConfig{Level: level}
}

// Schedule converts every command and queues it on r.
func (s *Scenario) Schedule(r *runner.Runner) error {
	for i, c := range s.Commands {
		cmd, err := c.command()
		if err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
		r.Schedule(cmd)
	}
	return nil
}

func (c CommandSpec) command() (runner.Command, error) {
	if c.At < 0 {
		return nil, fmt.Errorf("at must be non-negative, got %d", c.At)
	}
	switch c.Type {
	case runner.CommandSendMessage:
		if c.From == "" || c.To == "" {
			return nil, fmt.Errorf("from and to are required")
		}
		return &runner.SendMessageCommand{At: c.At, From: c.From, To: c.To, Message: c.Message}, nil
	case runner.CommandTransmit:
		if c.From == "" || c.To == "" {
			return nil, fmt.Errorf("from and to are required")
		}
		if c.Bit != 0 && c.Bit != 1 {
			return nil, fmt.Errorf("bit must be 0 or 1, got %d", c.Bit)
		}
		if c.Count < 0 {
			return nil, fmt.Errorf("count must be non-negative, got %d", c.Count)
		}
		basis, err := sim.ParseBasis(c.Basis)
		if err != nil {
			return nil, err
		}
		return &runner.TransmitQubitsCommand{
			At: c.At, From: c.From, To: c.To, Bit: c.Bit, Basis: basis, Count: c.Count,
		}, nil
	case runner.CommandForward:
		if c.Repeater == "" {
			return nil, fmt.Errorf("repeater is required")
		}
		return &runner.ForwardCommand{At: c.At, Repeater: c.Repeater}, nil
	case runner.CommandEstablishKey:
		if c.Adapter == "" {
			return nil, fmt.Errorf("adapter is required")
		}
		return &runner.EstablishKeyCommand{At: c.At, Adapter: c.Adapter}, nil
	case runner.CommandStop:
		return &runner.StopCommand{At: c.At}, nil
	default:
		return nil, fmt.Errorf("unknown command type %q; valid: %s, %s, %s, %s, %s", c.Type,
			runner.CommandSendMessage, runner.CommandTransmit, runner.CommandForward,
			runner.CommandEstablishKey, runner.CommandStop)
	}
}
