package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sunwell/studio/internal/errors"
)

// Oneshot runs the agent binary to completion and decodes its stdout as a
// single JSON document into out. It is for short, non-streaming CLI calls
// (lens listings, security audits, backlog queries); streaming runs go
// through the Bridge.
//
// Some commands print human-readable noise before the JSON document, so
// decoding starts at the first '{' or '[' in the output.
func Oneshot(ctx context.Context, binary string, args []string, dir string, out any) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if tail := strings.TrimSpace(stderr.String()); tail != "" {
			return errors.ClassifyOutput(tail)
		}
		return errors.FromError(errors.CodeProcessFailed,
			fmt.Errorf("%s %s: %w", binary, strings.Join(args, " "), err))
	}

	doc := extractJSON(stdout.String())
	if doc == "" {
		return errors.New(errors.CodeProcessFailed, "command produced no JSON output")
	}
	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return errors.FromError(errors.CodeProcessFailed, fmt.Errorf("decode output: %w", err))
	}
	return nil
}

// extractJSON returns the substring of s starting at the first JSON
// object or array opener, or "" when neither appears.
func extractJSON(s string) string {
	obj := strings.IndexByte(s, '{')
	arr := strings.IndexByte(s, '[')

	switch {
	case obj < 0 && arr < 0:
		return ""
	case obj < 0:
		return s[arr:]
	case arr < 0:
		return s[obj:]
	case obj < arr:
		return s[obj:]
	default:
		return s[arr:]
	}
}
