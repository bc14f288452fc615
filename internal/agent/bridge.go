package agent

import (
	"strings"
	"sync"
	"time"

	"github.com/sunwell/studio/internal/errors"
	"github.com/sunwell/studio/internal/logging"
	"github.com/sunwell/studio/internal/stream"
)

// RunOptions tune a single agent run. The zero value runs with the
// bridge's defaults: auto lens detection on, default strategy, default
// provider, current directory.
type RunOptions struct {
	// Lens names an explicit lens (e.g. "coder", "tech-writer").
	Lens string
	// NoAutoLens disables automatic lens detection from the goal.
	NoAutoLens bool
	// Provider selects the model provider (openai, anthropic, ollama).
	Provider string
	// Strategy overrides the bridge's planning strategy.
	Strategy string
	// Dir is the working directory for the run.
	Dir string
}

// Bridge supervises at most one agent run at a time and streams its
// events to subscribers. A new run may start once the previous session
// has reached a terminal state.
type Bridge struct {
	binary           string
	strategy         string
	killGrace        time.Duration
	subscriberBuffer int
	maxLineBytes     int
	stderrTailBytes  int
	logger           *logging.Logger

	mu      sync.Mutex
	sess    *session
	proc    *process
	router  *router
	pending []*Subscription
	wg      sync.WaitGroup
}

// New creates a Bridge with the given options.
func New(opts ...Option) *Bridge {
	cfg := &bridgeConfig{
		binary:           DefaultBinary,
		strategy:         DefaultStrategy,
		killGrace:        DefaultKillGrace,
		subscriberBuffer: DefaultSubscriberBuffer,
		maxLineBytes:     stream.DefaultMaxLineSize,
		stderrTailBytes:  DefaultStderrTailBytes,
		logger:           logging.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.binary == "" {
		cfg.binary = DefaultBinary
	}
	if cfg.strategy == "" {
		cfg.strategy = DefaultStrategy
	}
	if cfg.killGrace <= 0 {
		cfg.killGrace = DefaultKillGrace
	}
	if cfg.subscriberBuffer < 1 {
		cfg.subscriberBuffer = DefaultSubscriberBuffer
	}
	if cfg.maxLineBytes < 1024 {
		cfg.maxLineBytes = stream.DefaultMaxLineSize
	}
	if cfg.stderrTailBytes < 1024 {
		cfg.stderrTailBytes = DefaultStderrTailBytes
	}
	if cfg.logger == nil {
		cfg.logger = logging.Nop()
	}

	return &Bridge{
		binary:           cfg.binary,
		strategy:         cfg.strategy,
		killGrace:        cfg.killGrace,
		subscriberBuffer: cfg.subscriberBuffer,
		maxLineBytes:     cfg.maxLineBytes,
		stderrTailBytes:  cfg.stderrTailBytes,
		logger:           cfg.logger,
	}
}

// Run starts an agent run for the given goal and returns the new session
// ID. It fails with ErrAlreadyRunning while a previous session is still
// live.
func (b *Bridge) Run(goal string, opts RunOptions) (string, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = b.strategy
	}

	args := []string{"agent", "run", "--json", "--strategy", strategy}
	if opts.Lens != "" {
		args = append(args, "--lens", opts.Lens)
	}
	if opts.NoAutoLens {
		args = append(args, "--no-auto-lens")
	}
	if opts.Provider != "" {
		args = append(args, "--provider", opts.Provider)
	}
	args = append(args, goal)

	return b.start(stream.AgentFamily(), args, opts.Dir)
}

// Resume restarts an interrupted run from its checkpoint in dir.
func (b *Bridge) Resume(dir string, provider string) (string, error) {
	args := []string{"agent", "resume", "--json"}
	if provider != "" {
		args = append(args, "--provider", provider)
	}
	return b.start(stream.AgentFamily(), args, dir)
}

// RunBacklogGoal executes a single backlog goal by ID.
func (b *Bridge) RunBacklogGoal(goalID string, opts RunOptions) (string, error) {
	args := []string{"backlog", "run", goalID, "--json"}
	if opts.Provider != "" {
		args = append(args, "--provider", opts.Provider)
	}
	return b.start(stream.BacklogFamily(), args, opts.Dir)
}

// Chat starts a streaming chat turn. Chat runs use the chat event family,
// whose final line may be a bare result document.
func (b *Bridge) Chat(message string, opts RunOptions) (string, error) {
	args := []string{"chat", "--json"}
	if opts.Provider != "" {
		args = append(args, "--provider", opts.Provider)
	}
	args = append(args, message)

	return b.start(stream.ChatFamily(), args, opts.Dir)
}

// start spawns the process and begins the consume loop. Only one
// non-terminal session may exist at a time.
func (b *Bridge) start(family *stream.Family, args []string, dir string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sess != nil && !b.sess.State().Terminal() {
		return "", errors.ErrAlreadyRunning
	}

	sess := newSession(family)
	router := newRouter(b.subscriberBuffer)
	router.adopt(b.pending)
	b.pending = nil
	log := b.logger.WithSession(sess.id).WithFamily(family.Name)

	log.Info("starting agent process", "binary", b.binary, "args", strings.Join(args, " "), "dir", dir)

	proc, err := startProcess(b.binary, args, dir, b.stderrTailBytes)
	if err != nil {
		log.Error("spawn failed", "error", err)
		st := failStatus(err, -1)
		sess.finish(st)
		router.Close(sess.FinalStatus())
		b.sess = sess
		b.proc = nil
		b.router = router
		return "", err
	}

	sess.markRunning()
	b.sess = sess
	b.proc = proc
	b.router = router

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(sess, proc, router, log)
	}()

	return sess.id, nil
}

// consume reads the process's stdout to completion, classifies each line,
// and routes events until a terminal event or stream end. It always
// drains the reader fully so the pump goroutine can exit, then settles
// the session's final status and seals the router.
func (b *Bridge) consume(sess *session, proc *process, router *router, log *logging.Logger) {
	defer proc.stdout.Close()
	reader := stream.NewReader(proc.stdout, b.maxLineBytes)

	var (
		terminalEv    *stream.Event
		terminalOK    bool
		sawTerminal   bool
		parseFailures int
	)

	for line := range reader.Lines() {
		if sess.cancelled.Load() {
			// Drain without routing.
			continue
		}

		if line.Overlong {
			parseFailures++
			log.Warn("oversized stream line discarded", "seq", line.Seq)
			continue
		}

		ev, fail := sess.family.Classify(line.Text, line.Seq)
		if fail != nil {
			parseFailures++
			log.Warn("unparseable stream line", "seq", fail.Seq, "error", fail.Err)
			continue
		}

		router.Deliver(ev)

		if terminal, success := sess.family.Terminal(ev.Type); terminal {
			sawTerminal = true
			terminalEv = &ev
			terminalOK = success
			log.Debug("terminal event", "kind", ev.Type, "success", success)
			break
		}
	}

	// Whatever path ended delivery, keep the pump goroutine drained so
	// it can exit; post-terminal lines are discarded.
	go func() {
		for range reader.Lines() {
		}
	}()

	var (
		streamErr  error
		unkillable bool
	)
	if sawTerminal {
		// The run is over. Give the child a grace period to exit on its
		// own; a lingering process must not keep the session alive.
		select {
		case <-proc.Done():
		case <-time.After(b.killGrace):
			if err := proc.Stop(b.killGrace); err != nil {
				log.Error("stop after terminal event failed", "error", err)
				unkillable = true
			}
		}
	} else {
		streamErr = reader.Err()
		if streamErr != nil {
			log.Warn("stream read error", "error", streamErr)
			// The child may be blocked writing to a full pipe now that
			// nothing drains it. Tear it down so the session can settle.
			if proc.Alive() {
				if err := proc.Stop(b.killGrace); err != nil {
					log.Error("stop after stream error failed", "error", err)
					unkillable = true
				}
			}
		}
	}

	// Wait for the child to be reaped so the exit code is final before
	// deciding the outcome. A process the kill could not reach is the one
	// exception: the session must settle anyway.
	exitCode := -1
	if !unkillable {
		<-proc.Done()
		exitCode = proc.ExitCode()
	}

	st := b.settle(sess, terminalEv, terminalOK, sawTerminal, exitCode, proc.StderrTail(), streamErr)
	st.ParseFailures = parseFailures
	sess.finish(st)
	final := sess.FinalStatus()
	router.Close(final)

	log.Info("session finished",
		"state", final.State.String(),
		"exit_code", exitCode,
		"terminal_event", sawTerminal,
		"parse_failures", parseFailures)
}

// settle determines the terminal Status from what the stream and the
// process exit produced. Cancellation overrides everything; finish
// applies that override.
func (b *Bridge) settle(sess *session, terminalEv *stream.Event, terminalOK, sawTerminal bool, exitCode int, stderrTail string, streamErr error) Status {
	if sawTerminal {
		if terminalOK {
			return Status{State: StateCompleted, Result: terminalEv, ExitCode: exitCode}
		}
		return Status{
			State:    StateFailed,
			Result:   terminalEv,
			Err:      terminalErr(terminalEv),
			ExitCode: exitCode,
		}
	}

	if streamErr != nil {
		err := errors.FromError(errors.CodeProcessFailed, streamErr)
		return Status{State: StateFailed, Err: err, NoTerminalEvent: true, ExitCode: exitCode}
	}

	// No terminal event. A nonzero exit means failure; classify stderr
	// into a coded error for recovery hints.
	if exitCode != 0 {
		err := errors.ClassifyOutput(stderrTail)
		return Status{State: StateFailed, Err: err, NoTerminalEvent: true, ExitCode: exitCode}
	}

	// Clean exit with no terminal event: failure only for families that
	// require an explicit result.
	if sess.family.SilentExitIsFailure {
		err := errors.New(errors.CodeProcessFailed, "process exited without emitting a result")
		return Status{State: StateFailed, Err: err, NoTerminalEvent: true, ExitCode: exitCode}
	}
	return Status{State: StateCompleted, NoTerminalEvent: true, ExitCode: exitCode}
}

// terminalErr extracts a coded error from a terminal failure event. The
// event payload may carry the agent's own error document.
func terminalErr(ev *stream.Event) error {
	if ev == nil {
		return errors.New(errors.CodeProcessFailed, "agent reported an error")
	}
	if codedErr := errors.FromJSON(string(ev.Data)); codedErr != nil {
		return codedErr
	}
	if msg := ev.Field("message"); msg != "" {
		return errors.ClassifyOutput(msg)
	}
	return errors.New(errors.CodeProcessFailed, "agent reported an error")
}

// Stop cancels the live session. It flips the cancellation flag before
// signalling the process, so no further events are routed, then tears the
// process down and waits for the session to settle. Stop is idempotent:
// with no live session, before any run, or after the session already
// ended it is a no-op and returns nil, so callers never need to track
// state before stopping.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	sess := b.sess
	proc := b.proc
	router := b.router
	b.mu.Unlock()

	if sess == nil || proc == nil {
		return nil
	}
	if sess.State().Terminal() {
		return nil
	}

	sess.cancelled.Store(true)
	b.logger.WithSession(sess.id).Info("stopping agent process")

	if err := proc.Stop(b.killGrace); err != nil {
		// The process could not be reached; the session is still forced
		// terminal locally rather than waiting on a corpse forever.
		b.logger.WithSession(sess.id).Error("stop failed", "error", err)
		sess.finish(Status{State: StateCancelled, ExitCode: -1})
		router.Close(sess.FinalStatus())
		return err
	}

	<-sess.Done()
	return nil
}

// State returns the current session state, or StateIdle before any run.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return StateIdle
	}
	return b.sess.State()
}

// SessionID returns the current session's ID, or "" before any run.
func (b *Bridge) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sess == nil {
		return ""
	}
	return b.sess.id
}

// Subscribe attaches a consumer to the current session's event stream.
// Subscribing before any run registers the consumer ahead of time: the
// next run delivers its events from the very first line, with no window
// for early events to be lost. Subscribing after the session ended yields
// a closed event channel plus the final status.
func (b *Bridge) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.router == nil {
		sub := newSubscription(b.subscriberBuffer)
		b.pending = append(b.pending, sub)
		return sub
	}
	return b.router.Subscribe()
}

// Unsubscribe detaches a consumer. Safe for nil and already-removed
// subscriptions.
func (b *Bridge) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	router := b.router
	for i, p := range b.pending {
		if p.id == sub.id {
			b.pending = append(b.pending[:i], b.pending[i+1:]...)
			b.mu.Unlock()
			close(sub.events)
			close(sub.status)
			return
		}
	}
	b.mu.Unlock()

	if router != nil {
		router.Unsubscribe(sub)
	}
}

// Wait blocks until the current session reaches a terminal state and
// returns its final status. It fails with ErrNotRunning before any run.
func (b *Bridge) Wait() (Status, error) {
	b.mu.Lock()
	sess := b.sess
	b.mu.Unlock()

	if sess == nil {
		return Status{}, errors.ErrNotRunning
	}
	<-sess.Done()
	return sess.FinalStatus(), nil
}
