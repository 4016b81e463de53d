// Package config defines this process's command-line configuration and the
// per-topic policy registry loaded alongside it. It follows a grouped,
// namespaced go-flags convention rather than ad-hoc flag parsing.
package config

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// SchedulerConfig maps directly to the process-level knobs named in §4.7 /
// §6 of the specification.
type SchedulerConfig struct {
	MaxInFlight uint64 `long:"max-in-flight" default:"1" description:"Maximum unacknowledged messages in flight before best-effort sends are gated."`
	NoDropCap   int    `long:"no-drop-cap" default:"0" description:"Soft cap on the no-drop FIFO; 0 disables the cap (unbounded)."`
	Verbosity   int    `long:"verbosity" default:"1" description:"Diagnostic level: 0 silent, 1 lifecycle, 2 per-message tracing."`
}

// TransportConfig names the remote endpoint this process dials.
type TransportConfig struct {
	HostURL string `long:"host-url" required:"true" description:"WebSocket URL of the remote broker, e.g. wss://broker.example.com/robofleet"`
}

// TopicsConfig points at an optional JSON policy file; see policy.go.
type TopicsConfig struct {
	PolicyPath string `long:"topics" description:"Path to a JSON file listing per-topic {topic,priority,rate_limit_sec,no_drop} policy. Optional; unknown topics fall back to priority=0, rate_limit=0."`
}

// LogConfig is a level name and an output format, applied once at startup
// via Apply.
type LogConfig struct {
	Level  string `long:"level" default:"info" description:"Logging level: debug, info, warn, error."`
	Format string `long:"format" default:"text" description:"Logging output format: text or json."`
}

// Apply installs this LogConfig onto logrus's standard logger. Called once,
// early in main, before any component starts logging.
func (c LogConfig) Apply() error {
	var level, err = log.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("config: invalid log level %q: %w", c.Level, err)
	}
	log.SetLevel(level)

	switch c.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{})
	default:
		return fmt.Errorf("config: invalid log format %q (want text or json)", c.Format)
	}
	return nil
}

// Config is the top-level, grouped configuration struct handed to
// flags.NewParser.
type Config struct {
	Scheduler SchedulerConfig `group:"Scheduler" namespace:"scheduler" env-namespace:"SCHEDULER"`
	Transport TransportConfig `group:"Transport" namespace:"transport" env-namespace:"TRANSPORT"`
	Topics    TopicsConfig    `group:"Topics" namespace:"topics" env-namespace:"TOPICS"`
	Log       LogConfig       `group:"Logging" namespace:"log" env-namespace:"LOG"`
}
