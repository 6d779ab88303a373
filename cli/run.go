// Package cli implements chandysim's mitchellh/cli subcommands. Grounded on
// cmd/serf/main.go's cli.NewCLI wiring and on the Serf CLI commands'
// flag.FlagSet + Command.Run shape.
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	mcli "github.com/mitchellh/cli"

	"github.com/gopherlabs/chandysim/agent"
)

// RunCommand executes a chandysim command script: one command per line,
// read from a file named as the first non-flag argument, or from stdin if
// none is given.
type RunCommand struct {
	Ui mcli.Ui
}

func (c *RunCommand) Help() string {
	return `Usage: chandysim run [options] [script]

  Executes a Chandy-Lamport money-network command script (spec.md §6), one
  command per line, read from the named file or from stdin if no file is
  given.

Options:

  -log-level=INFO     Minimum log level: DEBUG, INFO, WARN, ERR.
  -syslog              Also send log output to the local syslog daemon.
  -metrics-addr=""     If set, serve Prometheus metrics on this address.
`
}

func (c *RunCommand) Synopsis() string {
	return "Run a Chandy-Lamport snapshot command script"
}

func (c *RunCommand) Run(args []string) int {
	var logLevel, metricsAddr string
	var syslog bool

	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.StringVar(&logLevel, "log-level", "INFO", "minimum log level")
	flags.BoolVar(&syslog, "syslog", false, "also log to syslog")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	flags.Usage = func() { c.Ui.Output(c.Help()) }
	if err := flags.Parse(args); err != nil {
		return 1
	}

	var script *os.File
	rest := flags.Args()
	if len(rest) > 0 {
		f, err := os.Open(rest[0])
		if err != nil {
			c.Ui.Error(fmt.Sprintf("Error opening script %q: %s", rest[0], err))
			return 1
		}
		defer f.Close()
		script = f
	} else {
		script = os.Stdin
	}

	cfg := agent.DefaultConfig()
	cfg.LogLevel = logLevel
	cfg.Syslog = syslog
	cfg.MetricsAddr = metricsAddr

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := agent.Create(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		c.Ui.Error(fmt.Sprintf("Error starting agent: %s", err))
		return 1
	}
	defer a.Shutdown()

	if err := a.RunScript(script); err != nil {
		c.Ui.Error(fmt.Sprintf("Error running script: %s", err))
		return 1
	}
	return 0
}
