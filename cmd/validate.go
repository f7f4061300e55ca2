package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/qnetsim/qnetsim/sim/scenario"
	"github.com/qnetsim/qnetsim/sim/topology"
)

// validateCmd checks a topology (and optionally a scenario) without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a topology and scenario for errors without running them",
	Run: func(cmd *cobra.Command, args []string) {
		if err := validateFiles(cmd.OutOrStdout(), topologyPath, scenarioPath); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// validateFiles loads, validates and builds the topology, so that
// cross-references (connection endpoints, adapter hosts, gateways, pairing)
// are checked too. A scenario, if given, is validated and may supply the
// topology path.
func validateFiles(out io.Writer, topoPath, scenPath string) error {
	if scenPath != "" {
		s, err := scenario.Load(scenPath)
		if err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", scenPath, err)
		}
		if topoPath == "" {
			topoPath = s.TopologyPath()
		}
		fmt.Fprintf(out, "scenario %s: %d commands OK\n", scenPath, len(s.Commands))
	}
	if topoPath == "" {
		return fmt.Errorf("no topology given: pass --topology or a --scenario that names one")
	}
	desc, err := topology.Load(topoPath)
	if err != nil {
		return err
	}
	w, err := topology.Build(desc, topology.Options{})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "topology %s: %d zones, %d networks, %d nodes, %d quantum channels OK\n",
		w.Name, len(w.Zones()), len(w.Networks()), len(w.Nodes()), len(w.Channels()))
	return nil
}

func init() {
	validateCmd.Flags().StringVar(&topologyPath, "topology", "", "Topology file (JSON or YAML)")
	validateCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario file (YAML)")
}
