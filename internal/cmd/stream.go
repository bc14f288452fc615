package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sunwell/studio/internal/agent"
	"github.com/sunwell/studio/internal/config"
	"github.com/sunwell/studio/internal/logging"
)

// newBridge wires a Bridge from loaded configuration.
func newBridge(cfg *config.Config, log *logging.Logger) *agent.Bridge {
	return agent.New(
		agent.WithBinary(cfg.Agent.Binary),
		agent.WithStrategy(cfg.Agent.Strategy),
		agent.WithKillGrace(cfg.Agent.KillGrace()),
		agent.WithSubscriberBuffer(cfg.Stream.SubscriberBuffer),
		agent.WithMaxLineBytes(cfg.Stream.MaxLineBytes),
		agent.WithStderrTailBytes(cfg.Stream.StderrTailBytes),
		agent.WithLogger(log),
	)
}

// streamRun subscribes to the bridge, starts the run, and renders events
// until the session ends, mapping the outcome to a process exit error.
// The subscription is registered before start so the first event cannot
// be missed. Ctrl-C cancels the run cleanly; a second Ctrl-C lets the
// default handler take over.
func streamRun(b *agent.Bridge, start func() error) error {
	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	if err := start(); err != nil {
		return err
	}

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	go func() {
		<-interrupts
		signal.Stop(interrupts)
		_ = b.Stop()
	}()

	r := newRenderer(os.Stdout)
	for ev := range sub.Events() {
		r.Event(ev)
	}

	final := <-sub.Status()
	r.Final(final)

	// Cancellation is a clean stop, not a command failure.
	if final.State == agent.StateFailed {
		return fmt.Errorf("run failed")
	}
	return nil
}
