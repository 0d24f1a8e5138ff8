package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"lorawan-sim/internal/admin"
	"lorawan-sim/internal/config"
	"lorawan-sim/internal/logging"
	"lorawan-sim/internal/observability"
	"lorawan-sim/internal/sim"
)

var (
	simConfigPath string
	simSchemaPath string
	simOutput     string
	simLogFile    string
	simGreptime   string
	simDatabase   string
	simAdminAddr  string
	simRunID      string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a LoRaWAN scenario",
	Long: "simulate deploys the configured end devices and gateways, runs traffic and " +
		"mobility in simulated time and reports delivery over [0, stop_time).",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		log := newLogger(cfg.Logging)
		ctx := logging.NewContext(cmd.Context(), log)

		reg := prometheus.NewRegistry()
		collector, err := observability.NewRunCollector(reg)
		if err != nil {
			return err
		}

		ws, err := newWriters(ctx, cfg, writerOptions{
			Output:   simOutput,
			LogFile:  simLogFile,
			Greptime: simGreptime,
			Database: simDatabase,
		})
		if err != nil {
			return err
		}
		defer ws.cleanup()

		opts := []sim.Option{sim.WithWriter(ws), sim.WithMetrics(collector)}
		if simRunID != "" {
			opts = append(opts, sim.WithRunID(simRunID))
		}
		s, err := sim.New(ctx, cfg, opts...)
		if err != nil {
			return err
		}

		serverDone := make(chan error, 1)
		if simAdminAddr != "" {
			srv := admin.NewServer(s, collector.Handler())
			go func() { serverDone <- srv.Start(ctx, simAdminAddr) }()
			if aw, ok := ws.Writer.(sim.AdminStatusWriter); ok {
				aw.SetAdminStatus(true)
			}
		}

		rep, err := s.Run(ctx)
		if err != nil {
			return err
		}

		if ws.tui != nil {
			ws.tui.ShowReport(rep)
		} else if cfg.Print {
			if err := sim.PrintReport(os.Stdout, rep); err != nil {
				return err
			}
		}

		if simAdminAddr == "" {
			if ws.tui != nil {
				ws.tui.Wait()
			}
			return nil
		}
		log.Info("results available until interrupted", "addr", simAdminAddr)
		select {
		case err := <-serverDone:
			return err
		case <-ctx.Done():
			return waitServer(serverDone)
		}
	},
}

// waitServer returns the server's result after its context was cancelled.
func waitServer(done <-chan error) error {
	err := <-done
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	f.StringVar(&simSchemaPath, "schema", "", "Path to CUE schema file (embedded schema if empty)")
	f.StringVar(&simOutput, "output", outputAuto, "Console output: auto, plain, color, json, tui or none")
	f.StringVar(&simLogFile, "log-file", "", "Prefix for JSONL logs (<prefix>.packets, .receptions, .state)")
	f.StringVar(&simGreptime, "greptime", "", "GreptimeDB endpoint host[:port] (default $GREPTIMEDB_ENDPOINT)")
	f.StringVar(&simDatabase, "database", "public", "GreptimeDB database")
	f.StringVar(&simAdminAddr, "admin-addr", "", "Serve results and metrics on this address after the run")
	f.StringVar(&simRunID, "run-id", "", "Run id stamped on exported rows (random if empty)")
}
