// Package runner drives a sim.World: it orders scheduled commands on a
// deterministic heap, executes them synchronously or from a background
// polling loop, and turns command failures into SIMULATION_ERROR events.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qnetsim/qnetsim/sim"
)

// DefaultPollInterval is the background loop period when Config leaves it
// unset.
const DefaultPollInterval = 10 * time.Millisecond

// Config controls a Runner.
type Config struct {
	// Horizon is the last tick at which commands execute. Zero means no limit.
	Horizon int64
	// PollInterval is the wall-clock period of the background loop; each poll
	// advances the World clock by one tick.
	PollInterval time.Duration
	// AbortOnError ends the run at the first routing or configuration error.
	// Qubit loss never aborts a run.
	AbortOnError bool
}

// Result summarizes a finished run.
type Result struct {
	Executed  int
	Failed    int
	FinalTick int64
	Errors    []error
	Aborted   bool
}

// ErrAlreadyRunning is returned when Run or Start is called on a World that
// a driver is already executing.
var ErrAlreadyRunning = errors.New("simulation already running")

// Runner owns a finalized World for the duration of a run.
type Runner struct {
	w   *sim.World
	cfg Config

	mu     sync.Mutex // guards queue, seq and result
	queue  CommandQueue
	seq    int64
	result Result

	// execMu serializes command execution between the loop and SendMessage.
	execMu sync.Mutex

	done   chan struct{}
	cancel context.CancelFunc
	err    error
}

// New creates a Runner for w.
func New(w *sim.World, cfg Config) *Runner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Runner{w: w, cfg: cfg}
}

// World returns the driven World.
func (r *Runner) World() *sim.World { return r.w }

// Schedule queues cmd. Commands scheduled in the past run at the next
// opportunity.
func (r *Runner) Schedule(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	r.queue.schedule(cmd, r.seq)
}

// Pending returns the number of queued commands.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.Len()
}

// SendMessage resolves both node names and sends message immediately. This
// is the external command interface; it is safe to call while a background
// run is in progress.
func (r *Runner) SendMessage(from, to, message string) error {
	cmd := &SendMessageCommand{At: r.w.Clock(), From: from, To: to, Message: message}
	r.execMu.Lock()
	defer r.execMu.Unlock()
	err := cmd.Execute(r)
	if err != nil {
		r.reportError(cmd, err)
	}
	return err
}

// Run executes every due command synchronously and returns when the queue is
// empty, the horizon is passed, the World is stopped, or an error aborts the
// run.
func (r *Runner) Run() (Result, error) {
	if r.w.IsRunning() {
		return Result{}, ErrAlreadyRunning
	}
	r.begin()
	var err error
	for r.w.IsRunning() {
		cmd := r.nextDue(r.cfg.Horizon)
		if cmd == nil {
			break
		}
		if cmd.Tick() > r.w.Clock() {
			r.w.SetClock(cmd.Tick())
		}
		if err = r.execute(cmd); err != nil {
			break
		}
	}
	return r.finish(err)
}

// Start runs the polling loop in a background goroutine. The loop advances
// the clock one tick per PollInterval, executes due commands, and exits when
// the World stops running, the horizon is reached, ctx is cancelled, or an
// error aborts the run.
func (r *Runner) Start(ctx context.Context) error {
	if r.w.IsRunning() {
		return ErrAlreadyRunning
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	r.begin()

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()
		var err error
	loop:
		for {
			select {
			case <-ctx.Done():
				break loop
			case <-ticker.C:
			}
			if !r.w.IsRunning() {
				break
			}
			tick := r.w.AdvanceClock(1)
			if err = r.drain(tick); err != nil {
				break
			}
			if r.cfg.Horizon > 0 && tick >= r.cfg.Horizon {
				break
			}
		}
		_, r.err = r.finish(err)
	}()
	return nil
}

// Wait blocks until a background run started with Start has exited and
// returns its abort error, if any.
func (r *Runner) Wait() (Result, error) {
	if r.done == nil {
		return r.snapshot(), nil
	}
	<-r.done
	return r.snapshot(), r.err
}

// Stop asks a background run to exit after the command in progress.
func (r *Runner) Stop() {
	r.w.Stop()
	if r.cancel != nil {
		r.cancel()
	}
}

// drain executes every command due at or before tick.
func (r *Runner) drain(tick int64) error {
	for r.w.IsRunning() {
		cmd := r.nextDue(tick)
		if cmd == nil {
			return nil
		}
		if err := r.execute(cmd); err != nil {
			return err
		}
	}
	return nil
}

// nextDue pops the next command whose tick is not after limit (0 = no limit).
func (r *Runner) nextDue(limit int64) Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.queue.peek()
	if next == nil || (limit > 0 && next.Tick() > limit) {
		return nil
	}
	return r.queue.popNext()
}

func (r *Runner) begin() {
	r.mu.Lock()
	r.result = Result{}
	pending := r.queue.Len()
	r.mu.Unlock()
	r.w.SetRunning(true)
	r.w.Emit(sim.SimulationStarted, sim.NoNode, sim.LevelInfo, map[string]any{
		"world":    r.w.Name,
		"seed":     r.w.Seed(),
		"commands": pending,
		"horizon":  r.cfg.Horizon,
	})
	logrus.Infof("[tick %07d] Simulation started (%d commands)", r.w.Clock(), pending)
}

// execute runs one command and applies the error disposition. It returns a
// non-nil error only when the run must abort.
func (r *Runner) execute(cmd Command) error {
	logrus.Infof("[tick %07d] Executing %T", r.w.Clock(), cmd)
	r.execMu.Lock()
	err := cmd.Execute(r)
	r.execMu.Unlock()

	r.mu.Lock()
	r.result.Executed++
	if err != nil {
		r.result.Failed++
		r.result.Errors = append(r.result.Errors, err)
	}
	r.mu.Unlock()
	if err == nil {
		return nil
	}

	r.reportError(cmd, err)
	if r.cfg.AbortOnError && sim.Categorize(err) != sim.CategoryPhysical {
		return err
	}
	return nil
}

func (r *Runner) reportError(cmd Command, err error) {
	category := sim.Categorize(err)
	level := sim.LevelError
	if category == sim.CategoryPhysical {
		level = sim.LevelWarning
	}
	data := cmd.Fields()
	data["command"] = cmd.Name()
	data["error"] = err.Error()
	data["category"] = string(category)
	r.w.Emit(sim.SimulationError, sim.NoNode, level, data)
	logrus.Warnf("[tick %07d] %s failed (%s): %v", r.w.Clock(), describe(cmd), category, err)
}

func (r *Runner) finish(err error) (Result, error) {
	r.w.SetRunning(false)
	r.mu.Lock()
	r.result.FinalTick = r.w.Clock()
	r.result.Aborted = err != nil
	res := r.result
	r.mu.Unlock()

	data := map[string]any{
		"executed": res.Executed,
		"failed":   res.Failed,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	r.w.Emit(sim.SimulationCompleted, sim.NoNode, sim.LevelInfo, data)
	logrus.Infof("[tick %07d] Simulation ended", res.FinalTick)
	return res, err
}

func (r *Runner) snapshot() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.result
	res.Errors = append([]error(nil), r.result.Errors...)
	return res
}

// resolve maps node names to IDs, naming every missing one.
func (r *Runner) resolve(names ...string) ([]sim.NodeID, error) {
	ids := make([]sim.NodeID, len(names))
	var missing []string
	for i, name := range names {
		id, ok := r.w.Resolve(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		ids[i] = id
	}
	if len(missing) > 0 {
		return nil, &sim.NodesNotFoundError{Names: missing}
	}
	return ids, nil
}
