// Package agent is the process-bootstrap layer around engine.Engine: it has
// no say in the Chandy-Lamport protocol itself, only in how the process
// logs, exports metrics, and is wired together — the parts spec.md §1
// delegates as "process/thread bootstrap". It is grounded on
// command/agent's setupLoggers/setupAgent shape.
package agent

// Config holds the process bootstrap knobs. There is no configuration file
// or environment variable in spec.md's scope (§6); these fields only ever
// come from flags on the `run` CLI subcommand. The mapstructure tags match
// the convention command/agent.Config uses even though nothing here is
// currently decoded from a config file — kept for the same reason the
// teacher keeps it: so a config file could be layered in later without a
// field rename.
type Config struct {
	// LogLevel is the minimum level passed to the logutils.LevelFilter:
	// one of "DEBUG", "INFO", "WARN", "ERR".
	LogLevel string `mapstructure:"log_level"`

	// Syslog, if true, tees logging output to the local syslog daemon in
	// addition to the configured writer.
	Syslog bool `mapstructure:"syslog"`

	// MetricsAddr, if non-empty, is the address a Prometheus /metrics
	// endpoint is served on (e.g. ":9090"). Empty disables the exporter.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultConfig returns the Config a bare `chandysim run` uses.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "INFO",
		Syslog:   false,
	}
}
