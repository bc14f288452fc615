// Package internal contains integration tests that verify the packages
// work together correctly: configuration feeding the bridge, workspace
// resolution feeding process spawning, and the event stream reaching
// subscribers end to end.
package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sunwell/studio/internal/agent"
	"github.com/sunwell/studio/internal/config"
	"github.com/sunwell/studio/internal/logging"
	"github.com/sunwell/studio/internal/stream"
	"github.com/sunwell/studio/internal/workspace"
)

// writeFakeAgent creates a shell script standing in for the sunwell CLI.
func writeFakeAgent(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sunwell")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write fake agent: %v", err)
	}
	return path
}

// TestConfigToBridgeIntegration loads a config file and drives a full run
// through a bridge constructed from it.
func TestConfigToBridgeIntegration(t *testing.T) {
	bin := writeFakeAgent(t, `
printf '{"type":"start","data":{}}\n'
printf '{"type":"task_start","data":{"task":"integration"}}\n'
printf '{"type":"complete","data":{"summary":"ok"}}\n'
`)

	cfgPath := filepath.Join(t.TempDir(), "studio.yaml")
	cfgYAML := `
agent:
  binary: ` + bin + `
  kill_grace_seconds: 1
stream:
  subscriber_buffer: 8
logging:
  level: DEBUG
  dir: ""
`
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Agent.Binary != bin {
		t.Fatalf("binary = %q", cfg.Agent.Binary)
	}

	b := agent.New(
		agent.WithBinary(cfg.Agent.Binary),
		agent.WithKillGrace(cfg.Agent.KillGrace()),
		agent.WithSubscriberBuffer(cfg.Stream.SubscriberBuffer),
		agent.WithLogger(logging.Nop()),
	)

	proj, err := workspace.DirResolver{}.Resolve(t.TempDir())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	sub := b.Subscribe()
	if _, err := b.Run("integration goal", agent.RunOptions{Dir: proj.Root}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	var kinds []string
	for ev := range sub.Events() {
		kinds = append(kinds, ev.Type)
	}
	final := <-sub.Status()

	if len(kinds) != 3 {
		t.Fatalf("events = %v, want 3", kinds)
	}
	if final.State != agent.StateCompleted {
		t.Errorf("final state = %v", final.State)
	}
	if final.Result == nil || final.Result.Field("summary") != "ok" {
		t.Errorf("final result = %+v", final.Result)
	}
}

// TestCancellationIntegration verifies the full teardown path: a run in a
// resolved workspace, interrupted mid-stream, converges to Cancelled with
// the process reaped and all channels closed.
func TestCancellationIntegration(t *testing.T) {
	bin := writeFakeAgent(t, `
printf '{"type":"start","data":{}}\n'
sleep 30
`)

	b := agent.New(
		agent.WithBinary(bin),
		agent.WithKillGrace(500*time.Millisecond),
	)

	sub := b.Subscribe()
	if _, err := b.Run("goal", agent.RunOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	select {
	case <-sub.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no events before cancel")
	}

	start := time.Now()
	if err := b.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Stop took %v", elapsed)
	}

	for range sub.Events() {
	}
	if final := <-sub.Status(); final.State != agent.StateCancelled {
		t.Errorf("final state = %v", final.State)
	}
}

// TestChatStreamIntegration pushes a chat run through the whole stack and
// reassembles the streamed chunks.
func TestChatStreamIntegration(t *testing.T) {
	bin := writeFakeAgent(t, `
printf '{"type":"chunk","content":"stream"}\n'
printf '{"type":"chunk","content":"ing"}\n'
printf '{"response":"streaming","files":[]}\n'
`)

	b := agent.New(agent.WithBinary(bin))
	sub := b.Subscribe()
	if _, err := b.Chat("say streaming", agent.RunOptions{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	var acc stream.ChunkAccumulator
	for ev := range sub.Events() {
		acc.Add(ev)
	}
	final := <-sub.Status()

	if acc.String() != "streaming" {
		t.Errorf("chunks = %q", acc.String())
	}
	if final.State != agent.StateCompleted {
		t.Errorf("final state = %v", final.State)
	}
	if final.Result == nil || final.Result.Type != stream.KindResult {
		t.Errorf("result = %+v", final.Result)
	}
}
