package errors

import (
	"encoding/json"
	"io/fs"
	"testing"
)

func TestNewCarriesCodeMetadata(t *testing.T) {
	err := New(CodeProcessFailed, "agent exited unexpectedly")

	if err.ID != "SW-6010" {
		t.Errorf("ID = %q, want SW-6010", err.ID)
	}
	if err.Category != "runtime" {
		t.Errorf("Category = %q, want runtime", err.Category)
	}
	if !err.Recoverable {
		t.Error("CodeProcessFailed should be recoverable")
	}
	if len(err.RecoveryHints) == 0 {
		t.Error("expected default recovery hints")
	}
}

func TestWithHintsReplacesDefaults(t *testing.T) {
	err := New(CodeConcurrentLimit, "agent already running").
		WithHints("Stop the current run first")

	if len(err.RecoveryHints) != 1 || err.RecoveryHints[0] != "Stop the current run first" {
		t.Errorf("RecoveryHints = %v", err.RecoveryHints)
	}
}

func TestFromErrorPreservesCause(t *testing.T) {
	cause := fs.ErrNotExist
	err := FromError(CodeFileNotFound, cause)

	if !Is(err, fs.ErrNotExist) {
		t.Error("wrapped error should match its cause via errors.Is")
	}
	if got := CodeOf(err); got != CodeFileNotFound {
		t.Errorf("CodeOf = %d, want %d", got, CodeFileNotFound)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	err := New(CodeModelRateLimited, "too many requests")
	data, jerr := json.Marshal(err)
	if jerr != nil {
		t.Fatalf("marshal: %v", jerr)
	}

	parsed := FromJSON(string(data))
	if parsed == nil {
		t.Fatal("FromJSON returned nil for valid coded error")
	}
	if parsed.ID != "SW-1003" || parsed.Category != "model" {
		t.Errorf("parsed = %+v", parsed)
	}
	if !parsed.Recoverable {
		t.Error("rate limit errors are recoverable")
	}
}

func TestFromJSONRejectsNonErrors(t *testing.T) {
	for _, s := range []string{"", "plain text", `{"type":"complete"}`, `[1,2,3]`} {
		if e := FromJSON(s); e != nil {
			t.Errorf("FromJSON(%q) = %v, want nil", s, e)
		}
	}
}

func TestClassifyOutput(t *testing.T) {
	tests := []struct {
		in   string
		want Code
	}{
		{`{"error_id":"SW-1002","code":1002,"category":"model","message":"Auth failed","recoverable":false}`, CodeModelAuthFailed},
		{"No such file or directory", CodeFileNotFound},
		{"permission denied: /etc/shadow", CodeFilePermissionDenied},
		{"connection refused", CodeModelProviderUnavailable},
		{"rate limit exceeded, retry later", CodeModelRateLimited},
		{"invalid api key", CodeModelAuthFailed},
		{"request timed out after 30s", CodeNetworkTimeout},
		{"something went wrong", CodeUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyOutput(tt.in).Code; got != tt.want {
			t.Errorf("ClassifyOutput(%q).Code = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	if IsRecoverable(nil) {
		t.Error("nil is not recoverable")
	}
	if IsRecoverable(ErrNotRunning) {
		t.Error("plain sentinel carries no recoverability")
	}
	if !IsRecoverable(New(CodeNetworkTimeout, "slow network")) {
		t.Error("timeouts are recoverable")
	}
	if IsRecoverable(New(CodeConfigInvalid, "bad config")) {
		t.Error("config errors are not recoverable")
	}
}

func TestCodedErrorIsByCode(t *testing.T) {
	a := New(CodeProcessFailed, "one")
	b := New(CodeProcessFailed, "two")
	if !Is(a, b) {
		t.Error("errors with the same code should match")
	}
	if Is(a, New(CodeNetworkTimeout, "other")) {
		t.Error("errors with different codes should not match")
	}
}
