package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// stubCommand carries a tick and priority and records its execution order.
type stubCommand struct {
	at       int64
	priority int
	label    string
	log      *[]string
	err      error
}

func (c *stubCommand) Tick() int64            { return c.at }
func (c *stubCommand) Priority() int          { return c.priority }
func (c *stubCommand) Name() string           { return "stub" }
func (c *stubCommand) Fields() map[string]any { return map[string]any{"label": c.label} }
func (c *stubCommand) Execute(*Runner) error {
	if c.log != nil {
		*c.log = append(*c.log, c.label)
	}
	return c.err
}

// TestCommandQueue_Ordering verifies that:
// GIVEN commands at various ticks, priorities, and seqIDs
// WHEN they are popped from the queue
// THEN they come out ordered by (Tick, Priority, seqID)
func TestCommandQueue_Ordering(t *testing.T) {
	type spec struct {
		tick     int64
		priority int
		seqID    int64
	}

	tests := []struct {
		name     string
		commands []spec
		expected []int64 // seqIDs in pop order
	}{
		{
			name:     "different ticks",
			commands: []spec{{300, 0, 0}, {100, 0, 1}, {200, 0, 2}},
			expected: []int64{1, 2, 0},
		},
		{
			name:     "same tick different priorities",
			commands: []spec{{100, 2, 0}, {100, 0, 1}, {100, 1, 2}},
			expected: []int64{1, 2, 0},
		},
		{
			name:     "same tick same priority",
			commands: []spec{{100, 1, 3}, {100, 1, 1}, {100, 1, 2}},
			expected: []int64{1, 2, 3},
		},
		{
			name:     "tick dominates priority",
			commands: []spec{{200, 0, 0}, {100, 3, 1}},
			expected: []int64{1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q CommandQueue
			bySeq := map[Command]int64{}
			for _, s := range tt.commands {
				cmd := &stubCommand{at: s.tick, priority: s.priority}
				bySeq[cmd] = s.seqID
				q.schedule(cmd, s.seqID)
			}

			var got []int64
			for q.Len() > 0 {
				got = append(got, bySeq[q.popNext()])
			}

			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCommandQueue_EmptyPopAndPeek(t *testing.T) {
	var q CommandQueue
	assert.Nil(t, q.peek())
	assert.Nil(t, q.popNext())
}

func TestCommandPriorities(t *testing.T) {
	// Transmit < Forward = EstablishKey < SendMessage < Stop
	assert.Less(t, (&TransmitQubitsCommand{}).Priority(), (&ForwardCommand{}).Priority())
	assert.Equal(t, (&ForwardCommand{}).Priority(), (&EstablishKeyCommand{}).Priority())
	assert.Less(t, (&EstablishKeyCommand{}).Priority(), (&SendMessageCommand{}).Priority())
	assert.Less(t, (&SendMessageCommand{}).Priority(), (&StopCommand{}).Priority())
}
