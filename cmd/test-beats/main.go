// Command test-beats floods a running tempolink daemon with synthetic
// /dirt/play traffic: steady streams, drifting phases, tempo jumps, and
// the occasional garbage datagram.
package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cadencelab/tempolink/internal/testbeats"
	"github.com/cadencelab/tempolink/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cfg := testbeats.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "test-beats",
		Short: "Send synthetic /dirt/play traffic to a tempolink daemon",
		Long: `Send synthetic /dirt/play traffic to a tempolink daemon.

The stream reports a steady tempo with the cycle position advancing
naturally; flags layer phase drift, cps jumps, bundle wrapping, and
malformed datagrams on top.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(); err != nil {
				return errors.Wrap(err, "initializing logger")
			}
			runner, err := testbeats.NewRunner(cfg)
			if err != nil {
				return errors.Wrap(err, "creating runner")
			}
			return errors.Wrap(runner.Run(cmd.Context()), "running stream")
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "daemon OSC host")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "daemon OSC port")
	flags.Float64Var(&cfg.CPS, "cps", cfg.CPS, "tempo in cycles per second")
	flags.IntVar(&cfg.Count, "count", cfg.Count, "events to send (0 = until interrupted)")
	flags.DurationVar(&cfg.Interval, "interval", cfg.Interval, "spacing between events")
	flags.Float64Var(&cfg.DriftCycles, "drift", cfg.DriftCycles, "extra cycles of drift per event")
	flags.IntVar(&cfg.JumpEvery, "jump-every", cfg.JumpEvery, "inject a cps jump every n events")
	flags.BoolVar(&cfg.Bundle, "bundle", cfg.Bundle, "wrap messages in timetagged bundles")
	flags.IntVar(&cfg.MalformedEvery, "malformed-every", cfg.MalformedEvery, "send a non-OSC datagram every n events")

	return cmd
}
