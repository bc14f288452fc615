package agent

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sunwell/studio/internal/errors"
)

func TestStartProcessCapturesStdout(t *testing.T) {
	p, err := startProcess("/bin/sh", []string{"-c", `printf 'hello\n'`}, "", 1024)
	if err != nil {
		t.Fatalf("startProcess: %v", err)
	}

	out, err := io.ReadAll(p.stdout)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	if string(out) != "hello\n" {
		t.Errorf("stdout = %q", out)
	}

	<-p.Done()
	if p.ExitCode() != 0 {
		t.Errorf("exit code = %d, want 0", p.ExitCode())
	}
	if p.Alive() {
		t.Error("process should not be alive after Done")
	}
}

func TestStartProcessMissingBinary(t *testing.T) {
	_, err := startProcess("/nonexistent/binary-xyz", nil, "", 1024)
	if err == nil {
		t.Fatal("expected spawn error")
	}
	if errors.CodeOf(err) != errors.CodeProcessFailed {
		t.Errorf("code = %v, want process failure", errors.CodeOf(err))
	}
	var coded *errors.Error
	if !errors.As(err, &coded) {
		t.Fatal("spawn error should be coded")
	}
	if len(coded.RecoveryHints) == 0 {
		t.Error("spawn error should carry recovery hints")
	}
}

func TestProcessStderrTail(t *testing.T) {
	p, err := startProcess("/bin/sh", []string{"-c", `printf 'boom: rate limit exceeded\n' >&2; exit 1`}, "", 1024)
	if err != nil {
		t.Fatalf("startProcess: %v", err)
	}

	io.Copy(io.Discard, p.stdout)
	<-p.Done()

	if p.ExitCode() != 1 {
		t.Errorf("exit code = %d, want 1", p.ExitCode())
	}
	if !strings.Contains(p.StderrTail(), "rate limit") {
		t.Errorf("stderr tail = %q", p.StderrTail())
	}
}

func TestProcessStopTerminatesGracefully(t *testing.T) {
	// A sleeping shell dies on SIGTERM well within the grace period.
	p, err := startProcess("/bin/sh", []string{"-c", "sleep 30"}, "", 1024)
	if err != nil {
		t.Fatalf("startProcess: %v", err)
	}

	start := time.Now()
	if err := p.Stop(5 * time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Stop took %v, SIGTERM should have sufficed", elapsed)
	}
	if p.ExitCode() != -1 {
		t.Errorf("exit code = %d, want -1 for signalled process", p.ExitCode())
	}
}

func TestProcessStopEscalatesToKill(t *testing.T) {
	// Trapping SIGTERM forces escalation to SIGKILL after the grace period.
	p, err := startProcess("/bin/sh", []string{"-c", `trap '' TERM; sleep 30`}, "", 1024)
	if err != nil {
		t.Fatalf("startProcess: %v", err)
	}

	// Give the shell a moment to install the trap.
	time.Sleep(100 * time.Millisecond)

	if err := p.Stop(200 * time.Millisecond); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.Alive() {
		t.Error("process should be dead after escalation")
	}
}

func TestProcessStopIdempotent(t *testing.T) {
	p, err := startProcess("/bin/sh", []string{"-c", "sleep 30"}, "", 1024)
	if err != nil {
		t.Fatalf("startProcess: %v", err)
	}

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := p.Stop(time.Second); err != nil {
			t.Fatalf("repeated Stop: %v", err)
		}
	}
}

func TestProcessStopConcurrent(t *testing.T) {
	p, err := startProcess("/bin/sh", []string{"-c", "sleep 30"}, "", 1024)
	if err != nil {
		t.Fatalf("startProcess: %v", err)
	}

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			done <- p.Stop(time.Second)
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent Stop: %v", err)
		}
	}
}

func TestProcessStopAfterNaturalExit(t *testing.T) {
	p, err := startProcess("/bin/sh", []string{"-c", "exit 0"}, "", 1024)
	if err != nil {
		t.Fatalf("startProcess: %v", err)
	}

	io.Copy(io.Discard, p.stdout)
	<-p.Done()

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("Stop after exit: %v", err)
	}
}
