// Command robofleet-client runs the egress path described by this
// repository's specification: it connects to a remote broker, schedules
// outbound application messages under a priority-aware, no-drop-preserving
// policy gated by the broker's acknowledgements, and subscribes itself to
// a topic regex on connect. Flag layout follows a grouped/namespaced
// go-flags convention, with one "run" subcommand.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/ut-amrl/robofleet-base-client/internal/app"
	"github.com/ut-amrl/robofleet-base-client/internal/config"
	"github.com/ut-amrl/robofleet-base-client/internal/envelope"
	"github.com/ut-amrl/robofleet-base-client/internal/producer"
	"github.com/ut-amrl/robofleet-base-client/internal/scheduler"
	"github.com/ut-amrl/robofleet-base-client/internal/wiring"
)

var cfg config.Config

type cmdRun struct {
	TopicRegex string `long:"subscribe" default:"kavan/status" description:"Topic regex to request from the broker on connect."`
}

func (c *cmdRun) Execute([]string) error {
	if err := cfg.Log.Apply(); err != nil {
		return err
	}

	var policies = config.NewRegistry()
	if err := policies.LoadPolicyFile(cfg.Topics.PolicyPath); err != nil {
		return err
	}

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var client = wiring.New(scheduler.Options{
		MaxInFlight: cfg.Scheduler.MaxInFlight,
		NoDropCap:   cfg.Scheduler.NoDropCap,
		Verbosity:   cfg.Scheduler.Verbosity,
	}, cfg.Transport.HostURL, onApplicationMessage)

	var adapter = producer.New(envelope.BinaryFraming, policies, client)
	client.OnConnected(app.OnConnected(policies, adapter, c.TopicRegex))

	log.WithField("host_url", cfg.Transport.HostURL).Info("starting robofleet-client")
	return client.Run(ctx)
}

func onApplicationMessage(data []byte) {
	log.WithField("bytes", len(data)).Debug("received application message")
}

func main() {
	var parser = flags.NewParser(&cfg, flags.Default)
	if _, err := parser.AddCommand("run", "Run the client", "Connect and run the scheduler event loop.", &cmdRun{}); err != nil {
		log.WithError(err).Fatal("failed to register run command")
	}
	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
