package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnetsim/qnetsim/sim"
	"github.com/qnetsim/qnetsim/sim/metrics"
	"github.com/qnetsim/qnetsim/sim/runner"
	"github.com/qnetsim/qnetsim/sim/scenario"
	"github.com/qnetsim/qnetsim/sim/topology"
	"github.com/qnetsim/qnetsim/sim/trace"
)

var (
	scenarioPath string // Scenario file (YAML)
	horizon      int64  // Last tick at which commands execute
	eventsOut    string // JSONL event journal path
	metricsAddr  string // Address for the Prometheus /metrics endpoint
	abortOnError bool   // Abort at the first routing/configuration error
	traceLevel   string // Journey trace verbosity
	keyLength    int    // Qubits per QKD exchange
)

// runOptions collects everything runSimulation needs, so tests can call it
// without going through cobra.
type runOptions struct {
	TopologyPath string
	Scenario     *scenario.Scenario
	Seed         int64
	Horizon      int64
	AbortOnError bool
	TraceLevel   trace.TraceLevel
	KeyLength    int
	Journal      io.Writer
	Registry     *prometheus.Registry
}

// runReport is the outcome of runSimulation.
type runReport struct {
	World   *sim.World
	Result  runner.Result
	Metrics metrics.Summary
	Trace   *trace.TraceSummary
	Events  int
}

// runCmd executes a scenario against a topology
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario against a topology",
	Run: func(cmd *cobra.Command, args []string) {
		var sc *scenario.Scenario
		if scenarioPath != "" {
			s, err := scenario.Load(scenarioPath)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			if err := s.Validate(); err != nil {
				logrus.Fatalf("Invalid scenario %s: %v", scenarioPath, err)
			}
			sc = s
		}
		path := topologyPath
		if path == "" && sc != nil {
			path = sc.TopologyPath()
		}
		if path == "" {
			logrus.Fatalf("No topology given: pass --topology or a --scenario that names one")
		}

		var fallbackSeed int64
		if sc != nil {
			fallbackSeed = sc.Seed
		}
		s, err := resolveSeed(cmd, fallbackSeed)
		if err != nil {
			logrus.Fatalf("Invalid seed: %v", err)
		}

		opts := runOptions{
			TopologyPath: path,
			Scenario:     sc,
			Seed:         s,
			Horizon:      horizon,
			AbortOnError: abortOnError,
			TraceLevel:   trace.TraceLevel(traceLevel),
			KeyLength:    keyLength,
			Registry:     prometheus.NewRegistry(),
		}
		if !cmd.Flags().Changed("horizon") && sc != nil {
			opts.Horizon = sc.Horizon
		}
		if !cmd.Flags().Changed("abort-on-error") && sc != nil {
			opts.AbortOnError = sc.AbortOnError
		}
		if !cmd.Flags().Changed("trace-level") && sc != nil {
			opts.TraceLevel = sc.TraceConfig().Level
		}
		if !trace.IsValidTraceLevel(string(opts.TraceLevel)) {
			logrus.Fatalf("Unknown trace level %q; valid: none, packets, all", opts.TraceLevel)
		}

		if eventsOut != "" {
			f, err := os.Create(eventsOut)
			if err != nil {
				logrus.Fatalf("Cannot create event journal: %v", err)
			}
			defer f.Close()
			opts.Journal = f
		}

		if metricsAddr != "" {
			collector, err := metrics.NewCollector(opts.Registry)
			if err != nil {
				logrus.Fatalf("Cannot register metrics: %v", err)
			}
			srv := &http.Server{Addr: metricsAddr, Handler: collector.Handler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logrus.Errorf("metrics server: %v", err)
				}
			}()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}()
			logrus.Infof("Serving metrics on %s/metrics", metricsAddr)
		}

		startTime := time.Now()
		report, err := runSimulation(opts)
		if report != nil {
			printReport(os.Stdout, report, time.Since(startTime))
		}
		if err != nil {
			logrus.Fatalf("Simulation aborted: %v", err)
		}
		logrus.Info("Simulation complete.")
	},
}

// runSimulation builds the world, schedules the scenario and runs it to
// completion. A non-nil report is returned whenever the run started, even
// if it aborted.
func runSimulation(opts runOptions) (*runReport, error) {
	desc, err := topology.Load(opts.TopologyPath)
	if err != nil {
		return nil, err
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, err
	}
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: opts.TraceLevel})
	observers := []sim.Observer{collector.Observe, runner.TraceObserver(st)}
	var journal *Journal
	if opts.Journal != nil {
		journal = NewJournal(opts.Journal)
		observers = append(observers, journal.Observe)
	}
	obs := sim.MultiObserver(observers...)

	var buildOpts topology.Options
	if opts.Scenario != nil {
		buildOpts = opts.Scenario.Options(obs)
	} else {
		buildOpts = topology.Options{Observer: obs}
	}
	buildOpts.Seed = opts.Seed
	if opts.KeyLength > 0 {
		buildOpts.QKDKeyLength = opts.KeyLength
	}
	w, err := topology.Build(desc, buildOpts)
	if err != nil {
		return nil, err
	}
	logrus.Infof("Starting simulation of %q with seed %d, horizon=%d ticks, run %s",
		w.Name, w.Seed(), opts.Horizon, w.RunID)

	r := runner.New(w, runner.Config{Horizon: opts.Horizon, AbortOnError: opts.AbortOnError})
	if opts.Scenario != nil {
		if err := opts.Scenario.Schedule(r); err != nil {
			return nil, err
		}
	}
	res, runErr := r.Run()

	report := &runReport{
		World:   w,
		Result:  res,
		Metrics: collector.Summary(),
	}
	if st.Config.Enabled() {
		report.Trace = trace.Summarize(st)
	}
	if journal != nil {
		report.Events = journal.Count()
		if err := journal.Err(); err != nil && runErr == nil {
			runErr = fmt.Errorf("writing event journal: %w", err)
		}
	}
	return report, runErr
}

func printReport(w io.Writer, report *runReport, elapsed time.Duration) {
	res := report.Result
	fmt.Fprintf(w, "Run %s of %q: %d commands executed, %d failed, final tick %d (%.3fs wall)\n",
		report.World.RunID, report.World.Name, res.Executed, res.Failed, res.FinalTick, elapsed.Seconds())
	report.Metrics.Print(w)
	if t := report.Trace; t != nil {
		fmt.Fprintln(w, "=== Trace Summary ===")
		fmt.Fprintf(w, "Packets traced    : %d (%d delivered, %d failed, max hops %d)\n",
			t.TotalPackets, t.DeliveredCount, t.FailedCount, t.MaxHops)
		dests := make([]string, 0, len(t.DestinationCount))
		for dest := range t.DestinationCount {
			dests = append(dests, dest)
		}
		sort.Strings(dests)
		for _, dest := range dests {
			fmt.Fprintf(w, "  -> %-14s: %d\n", dest, t.DestinationCount[dest])
		}
	}
	if report.Events > 0 {
		fmt.Fprintf(w, "Events journaled  : %d\n", report.Events)
	}
}

func init() {
	runCmd.Flags().StringVar(&topologyPath, "topology", "", "Topology file (JSON or YAML); overrides the scenario's topology")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario file (YAML) with scheduled commands")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for every random stream (default: $QNETSIM_SEED, then the scenario seed)")
	runCmd.Flags().Int64Var(&horizon, "horizon", 0, "Last tick at which commands execute (0 = unlimited)")
	runCmd.Flags().StringVar(&eventsOut, "events-out", "", "Write every event as JSON lines to this file")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	runCmd.Flags().BoolVar(&abortOnError, "abort-on-error", false, "Abort the run at the first routing or configuration error")
	runCmd.Flags().StringVar(&traceLevel, "trace-level", "none", "Journey trace verbosity (none, packets, all)")
	runCmd.Flags().IntVar(&keyLength, "qkd-key-length", 0, "Qubits sent per QKD exchange (0 = scenario or default)")
}
