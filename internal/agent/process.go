package agent

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/sunwell/studio/internal/errors"
)

// process wraps a spawned agent subprocess. Exactly one goroutine calls
// Wait on the underlying command; everyone else observes exit through the
// done channel.
type process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *Tail

	done     chan struct{}
	exitCode int

	stopMu  sync.Mutex
	stopped bool
}

// startProcess spawns binary with args in dir, wiring stdout to a pipe and
// stderr to a bounded tail buffer. The returned process is already running
// and being reaped in the background.
//
// The stdout pipe is built by hand rather than with StdoutPipe so the
// background Wait cannot close it out from under a reader mid-stream.
// The caller owns the read end and closes it when done.
func startProcess(binary string, args []string, dir string, tailBytes int) (*process, error) {
	cmd := exec.Command(binary, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	// Put the child in its own process group so Stop can signal the whole
	// tree; an agent that forks helpers must not leave orphans holding
	// the stdout pipe open.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	tail := NewTail(tailBytes)
	cmd.Stderr = tail

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, errors.FromError(errors.CodeProcessFailed, fmt.Errorf("stdout pipe: %w", err))
	}
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, errors.FromError(errors.CodeProcessFailed,
			fmt.Errorf("spawn %s: %w", binary, err)).
			WithHints(
				"Check that the sunwell CLI is installed and on PATH",
				"Run 'sunwell --version' to verify the installation",
			)
	}

	// The child holds its own copy of the write end; dropping ours means
	// the reader sees EOF as soon as the child exits.
	pw.Close()

	p := &process{
		cmd:      cmd,
		stdout:   pr,
		stderr:   tail,
		done:     make(chan struct{}),
		exitCode: -1,
	}

	go p.reap()

	return p, nil
}

// reap waits for the child exactly once and publishes the outcome.
func (p *process) reap() {
	_ = p.cmd.Wait()
	if p.cmd.ProcessState != nil {
		p.exitCode = p.cmd.ProcessState.ExitCode()
	}
	close(p.done)
}

// Done is closed after the child has been reaped.
func (p *process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the child's exit code, or -1 when it was killed by a
// signal or has not exited. Valid only after Done is closed.
func (p *process) ExitCode() int {
	return p.exitCode
}

// Alive reports whether the child is still running.
func (p *process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// StderrTail returns the buffered tail of the child's stderr.
func (p *process) StderrTail() string {
	return p.stderr.String()
}

// Stop terminates the child: SIGTERM first, then SIGKILL once the grace
// period expires. It blocks until the child has been reaped and is safe
// to call multiple times and concurrently; later calls just wait.
func (p *process) Stop(grace time.Duration) error {
	p.stopMu.Lock()
	alreadyStopped := p.stopped
	p.stopped = true
	p.stopMu.Unlock()

	if alreadyStopped || !p.Alive() {
		<-p.done
		return nil
	}

	// ErrProcessDone means the child already exited; the reaper will
	// notice. Any other delivery failure escalates straight to SIGKILL.
	if err := p.signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		if killErr := p.signal(syscall.SIGKILL); killErr != nil && !errors.Is(killErr, os.ErrProcessDone) {
			return fmt.Errorf("%w: %v", errors.ErrKillFailed, killErr)
		}
		<-p.done
		return nil
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(grace):
	}

	if err := p.signal(syscall.SIGKILL); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("%w: kill: %v", errors.ErrKillFailed, err)
	}

	<-p.done
	return nil
}

// signal delivers sig to the child's whole process group.
func (p *process) signal(sig syscall.Signal) error {
	err := syscall.Kill(-p.cmd.Process.Pid, sig)
	if err == syscall.ESRCH {
		return os.ErrProcessDone
	}
	return err
}
