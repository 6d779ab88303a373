package agent

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/hashicorp/logutils"

	"github.com/gopherlabs/chandysim/engine"
	"github.com/gopherlabs/chandysim/snapshot"
)

// Agent owns one running simulator process: the snapshot.Controller, the
// engine.Engine dispatching commands to it, and the ambient logging/metrics
// plumbing around them. Grounded on command/agent.Agent, minus everything
// that only makes sense for a real gossiping cluster member (no serf.Serf,
// no event channel, no shutdown-on-leave).
type Agent struct {
	Controller *snapshot.Controller
	Engine     *engine.Engine

	logger     *log.Logger
	logFilter  *logutils.LevelFilter
	metricsSrv *http.Server
}

// Create builds an Agent per config, writing required protocol output
// (spec.md §6) to out and ambient log lines to logOutput (os.Stderr if
// nil). Grounded on command/agent.Create + Command.setupLoggers.
func Create(ctx context.Context, config *Config, out, logOutput io.Writer) (*Agent, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logOutput == nil {
		logOutput = os.Stderr
	}
	if out == nil {
		out = os.Stdout
	}

	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERR"},
		MinLevel: logutils.LogLevel(config.LogLevel),
		Writer:   logOutput,
	}
	if filter.MinLevel == "" {
		filter.MinLevel = "INFO"
	}

	writer := io.Writer(filter)
	if config.Syslog {
		sw, err := newSyslogWriter()
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(filter, sw)
	}
	logger := log.New(writer, "", log.LstdFlags)

	metricsSrv, err := setupMetrics(ctx, config.MetricsAddr)
	if err != nil {
		return nil, err
	}

	controller := snapshot.NewController(out, logger)
	eng := engine.New(controller, out)

	return &Agent{
		Controller: controller,
		Engine:     eng,
		logger:     logger,
		logFilter:  filter,
		metricsSrv: metricsSrv,
	}, nil
}

// RunScript feeds every line of r through the Engine, in order.
func (a *Agent) RunScript(r io.Reader) error {
	return a.Engine.RunScript(r)
}

// Shutdown stops the optional metrics server, if one was started.
func (a *Agent) Shutdown() error {
	if a.metricsSrv == nil {
		return nil
	}
	return a.metricsSrv.Close()
}
