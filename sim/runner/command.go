package runner

import (
	"fmt"

	"github.com/qnetsim/qnetsim/sim"
)

// Command is a unit of scheduled work executed against the World.
type Command interface {
	Tick() int64
	Priority() int // 0=Transmit, 1=Forward/EstablishKey, 2=SendMessage, 3=Stop
	Name() string
	// Fields describes the command for SIMULATION_ERROR events.
	Fields() map[string]any
	Execute(*Runner) error
}

// Command names, as used by scenario files.
const (
	CommandSendMessage  = "send_message"
	CommandTransmit     = "transmit_qubits"
	CommandForward      = "forward"
	CommandEstablishKey = "establish_key"
	CommandStop         = "stop"
)

// SendMessageCommand sends a classical message between two named nodes.
// Priority 2: qubits already in flight at the same tick are delivered first.
type SendMessageCommand struct {
	At      int64
	From    string
	To      string
	Message string
}

func (c *SendMessageCommand) Tick() int64   { return c.At }
func (c *SendMessageCommand) Priority() int { return 2 }
func (c *SendMessageCommand) Name() string  { return CommandSendMessage }
func (c *SendMessageCommand) Fields() map[string]any {
	return map[string]any{"from": c.From, "to": c.To}
}

// Execute implements Command.
func (c *SendMessageCommand) Execute(r *Runner) error {
	ids, err := r.resolve(c.From, c.To)
	if err != nil {
		return err
	}
	_, err = r.w.SendData(ids[0], ids[1], []byte(c.Message))
	return err
}

// TransmitQubitsCommand prepares Count qubits at From and sends them over the
// channel joining From and To. Loss is an outcome, not a failure.
// Priority 0 (highest).
type TransmitQubitsCommand struct {
	At    int64
	From  string
	To    string
	Bit   int
	Basis sim.Basis
	Count int
}

func (c *TransmitQubitsCommand) Tick() int64   { return c.At }
func (c *TransmitQubitsCommand) Priority() int { return 0 }
func (c *TransmitQubitsCommand) Name() string  { return CommandTransmit }
func (c *TransmitQubitsCommand) Fields() map[string]any {
	return map[string]any{"from": c.From, "to": c.To, "count": c.Count}
}

// Execute implements Command.
func (c *TransmitQubitsCommand) Execute(r *Runner) error {
	ids, err := r.resolve(c.From, c.To)
	if err != nil {
		return err
	}
	ch, err := r.w.ChannelBetween(ids[0], ids[1])
	if err != nil {
		return err
	}
	count := c.Count
	if count <= 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		if _, err := r.w.TransmitQubit(ch, r.w.NewQubit(c.Bit, c.Basis), ids[0]); err != nil {
			return err
		}
	}
	return nil
}

// ForwardCommand runs a repeater's protocol once.
// Priority 1: after transmissions, before classical traffic.
type ForwardCommand struct {
	At       int64
	Repeater string
}

func (c *ForwardCommand) Tick() int64   { return c.At }
func (c *ForwardCommand) Priority() int { return 1 }
func (c *ForwardCommand) Name() string  { return CommandForward }
func (c *ForwardCommand) Fields() map[string]any {
	return map[string]any{"repeater": c.Repeater}
}

// Execute implements Command.
func (c *ForwardCommand) Execute(r *Runner) error {
	ids, err := r.resolve(c.Repeater)
	if err != nil {
		return err
	}
	_, err = r.w.Forward(ids[0])
	return err
}

// EstablishKeyCommand runs QKD between an adapter and its pair ahead of any
// traffic. Priority 1.
type EstablishKeyCommand struct {
	At      int64
	Adapter string
}

func (c *EstablishKeyCommand) Tick() int64   { return c.At }
func (c *EstablishKeyCommand) Priority() int { return 1 }
func (c *EstablishKeyCommand) Name() string  { return CommandEstablishKey }
func (c *EstablishKeyCommand) Fields() map[string]any {
	return map[string]any{"adapter": c.Adapter}
}

// Execute implements Command.
func (c *EstablishKeyCommand) Execute(r *Runner) error {
	ids, err := r.resolve(c.Adapter)
	if err != nil {
		return err
	}
	_, err = r.w.EstablishKey(ids[0])
	return err
}

// StopCommand ends the run. Priority 3 (lowest): everything else due at the
// same tick still executes.
type StopCommand struct {
	At int64
}

func (c *StopCommand) Tick() int64            { return c.At }
func (c *StopCommand) Priority() int          { return 3 }
func (c *StopCommand) Name() string           { return CommandStop }
func (c *StopCommand) Fields() map[string]any { return map[string]any{} }

// Execute implements Command.
func (c *StopCommand) Execute(r *Runner) error {
	r.w.Stop()
	return nil
}

func describe(c Command) string {
	return fmt.Sprintf("%s@%d", c.Name(), c.Tick())
}
