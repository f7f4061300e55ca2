package runner

import "container/heap"

// commandEntry wraps a Command with a sequence ID for deterministic FIFO
// tie-breaking when tick and priority are equal.
type commandEntry struct {
	cmd   Command
	seqID int64
}

// CommandQueue is a min-heap ordered by (Tick, Priority, seqID).
// Implements heap.Interface.
type CommandQueue []commandEntry

func (q CommandQueue) Len() int { return len(q) }

func (q CommandQueue) Less(i, j int) bool {
	if q[i].cmd.Tick() != q[j].cmd.Tick() {
		return q[i].cmd.Tick() < q[j].cmd.Tick()
	}
	if q[i].cmd.Priority() != q[j].cmd.Priority() {
		return q[i].cmd.Priority() < q[j].cmd.Priority()
	}
	return q[i].seqID < q[j].seqID
}

func (q CommandQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *CommandQueue) Push(x any) {
	*q = append(*q, x.(commandEntry))
}

func (q *CommandQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// schedule adds cmd with the given sequence ID.
func (q *CommandQueue) schedule(cmd Command, seqID int64) {
	heap.Push(q, commandEntry{cmd: cmd, seqID: seqID})
}

// popNext removes and returns the next command, or nil.
func (q *CommandQueue) popNext() Command {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(commandEntry).cmd
}

// peek returns the next command without removing it, or nil.
func (q CommandQueue) peek() Command {
	if len(q) == 0 {
		return nil
	}
	return q[0].cmd
}
