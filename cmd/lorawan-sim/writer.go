package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"lorawan-sim/internal/config"
	"lorawan-sim/internal/sim"
)

// Output modes accepted by --output.
const (
	outputAuto  = "auto"
	outputPlain = "plain"
	outputColor = "color"
	outputJSON  = "json"
	outputTUI   = "tui"
	outputNone  = "none"
)

type writerOptions struct {
	Output   string
	LogFile  string // prefix; rows go to <prefix>.packets, .receptions, .state
	Greptime string // host[:port]; falls back to GREPTIMEDB_ENDPOINT
	Database string
}

// writers bundles the row sink of a run with the pieces the command drives
// directly.
type writers struct {
	sim.Writer
	tui     *sim.TUIWriter
	cleanup func()
}

// newWriters sets up the console, file and GreptimeDB writers selected by
// opts and env vars.
func newWriters(ctx context.Context, cfg *config.SimulationConfig, opts writerOptions) (*writers, error) {
	out := &writers{cleanup: func() {}}
	var ws []sim.Writer

	console, err := consoleWriter(cfg, opts.Output)
	if err != nil {
		return nil, err
	}
	if console != nil {
		ws = append(ws, console)
		if t, ok := console.(*sim.TUIWriter); ok {
			out.tui = t
		}
	}

	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(opts.LogFile+".packets", opts.LogFile+".receptions", opts.LogFile+".state")
		if err != nil {
			return nil, err
		}
		ws = append(ws, fw)
	}

	endpoint := opts.Greptime
	if endpoint == "" {
		endpoint = os.Getenv("GREPTIMEDB_ENDPOINT")
	}
	if endpoint != "" {
		db := opts.Database
		if db == "" {
			db = "public"
		}
		gw, err := sim.NewGreptimeDBWriter(ctx, endpoint, db)
		if err != nil {
			closeAll(ws)
			return nil, err
		}
		ws = append(ws, gw)
	}

	switch len(ws) {
	case 0:
		out.Writer = sim.NopWriter{}
	case 1:
		out.Writer = ws[0]
		if c, ok := ws[0].(interface{ Close() error }); ok {
			out.cleanup = func() { c.Close() }
		}
	default:
		mw := sim.NewMultiWriter(ws...)
		out.Writer = mw
		out.cleanup = func() { mw.Close() }
	}
	return out, nil
}

func consoleWriter(cfg *config.SimulationConfig, mode string) (sim.Writer, error) {
	switch mode {
	case "", outputAuto:
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return sim.NewColorStdoutWriter(cfg), nil
		}
		return sim.NewStdoutWriter(), nil
	case outputPlain:
		return sim.NewStdoutWriter(), nil
	case outputColor:
		return sim.NewColorStdoutWriter(cfg), nil
	case outputJSON:
		return sim.NewJSONStdoutWriter(), nil
	case outputTUI:
		return sim.NewTUIWriter(cfg), nil
	case outputNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown output mode %q", mode)
}

func closeAll(ws []sim.Writer) {
	for _, w := range ws {
		if c, ok := w.(interface{ Close() error }); ok {
			c.Close()
		}
	}
}
