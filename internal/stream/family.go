package stream

import (
	"encoding/json"
	"fmt"
)

// Family describes the closed event vocabulary of one agent subcommand:
// which kinds exist, which of them finish the run, and whether the stream
// may end with a bare result document instead of a discriminated event.
//
// The router is generic over a Family, so each call site carries its
// taxonomy as data rather than as its own hand-written streaming loop.
type Family struct {
	// Name identifies the family ("agent", "backlog", "chat").
	Name string

	// Kinds is the set of known event kind discriminators. A well-formed
	// JSON line with a discriminator outside this set is a ParseFailure.
	Kinds map[string]bool

	// TerminalSuccess are kinds that end the run successfully.
	TerminalSuccess map[string]bool

	// TerminalFailure are kinds that end the run as failed.
	TerminalFailure map[string]bool

	// BareResult allows the final line to be a complete result object with
	// no discriminator. Such a line classifies as KindResult, which is
	// terminal-success. Classification tries this form before the
	// discriminated form fails, never instead of it succeeding.
	BareResult bool

	// SilentExitIsFailure selects the policy for a process that exits 0
	// without ever emitting a terminal event: true means the run failed
	// (the family promised a result), false means success with no result.
	SilentExitIsFailure bool
}

// Terminal reports whether kind finishes a run, and if so whether it does
// so successfully.
func (f *Family) Terminal(kind string) (terminal, success bool) {
	if f.TerminalSuccess[kind] {
		return true, true
	}
	if f.TerminalFailure[kind] {
		return true, false
	}
	return false, false
}

// rawLine is the wire shape of a discriminated NDJSON event.
type rawLine struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp float64         `json:"timestamp"`
	UIHints   json.RawMessage `json:"ui_hints"`
}

// Classify parses one line into an Event or a ParseFailure. Exactly one of
// the two return values is non-zero. It never panics and never signals the
// caller to stop: resilience to malformed lines is the contract.
func (f *Family) Classify(line string, seq int) (Event, *ParseFailure) {
	var raw rawLine
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		// Structurally invalid JSON, or valid JSON whose fields have the
		// wrong types (e.g. a string timestamp). Both are one bad line,
		// neither ends the stream.
		return Event{}, &ParseFailure{Line: line, Err: err, Seq: seq}
	}

	if raw.Type == "" {
		if f.BareResult && isObject(line) {
			return Event{
				Type: KindResult,
				Data: json.RawMessage(line),
				Seq:  seq,
			}, nil
		}
		return Event{}, &ParseFailure{
			Line: line,
			Err:  fmt.Errorf("missing event type discriminator"),
			Seq:  seq,
		}
	}

	if !f.Kinds[raw.Type] {
		// In bare-result families any well-formed object that is not a
		// recognized event reads as the result document; only a line
		// matching neither form fails.
		if f.BareResult && isObject(line) {
			return Event{
				Type: KindResult,
				Data: json.RawMessage(line),
				Seq:  seq,
			}, nil
		}
		return Event{}, &ParseFailure{
			Line: line,
			Err:  fmt.Errorf("unknown %s event kind %q", f.Name, raw.Type),
			Seq:  seq,
		}
	}

	data := raw.Data
	if len(data) == 0 {
		// Flat events (chat chunks) carry payload fields at the top
		// level; keep the whole document reachable.
		data = json.RawMessage(line)
	}

	return Event{
		Type:      raw.Type,
		Data:      data,
		Timestamp: raw.Timestamp,
		UIHints:   raw.UIHints,
		Seq:       seq,
	}, nil
}

// isObject reports whether the line is a JSON object (as opposed to an
// array, string, or number, which can never be a result document).
func isObject(line string) bool {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}

// agentKinds is the adaptive event taxonomy emitted by `sunwell agent run`.
// Kept in sync with the agent's event schema.
var agentKinds = []string{
	// Memory events
	"memory_load", "memory_loaded", "memory_new", "memory_learning",
	"memory_dead_end", "memory_checkpoint", "memory_saved",

	// Signal events
	"signal", "signal_route",

	// Planning events
	"plan_start", "plan_candidate", "plan_winner", "plan_expanded",
	"plan_assess", "plan_candidate_start", "plan_candidate_generated",
	"plan_candidates_complete", "plan_candidate_scored",
	"plan_scoring_complete", "plan_refine_start", "plan_refine_attempt",
	"plan_refine_complete", "plan_refine_final", "plan_discovery_progress",

	// Gate events
	"gate_start", "gate_step", "gate_pass", "gate_fail",

	// Execution events
	"task_start", "task_progress", "task_complete", "task_failed",

	// Validation events
	"validate_start", "validate_level", "validate_error", "validate_pass",

	// Fix events
	"fix_start", "fix_progress", "fix_attempt", "fix_complete", "fix_failed",

	// Completion events
	"complete", "error", "escalate",

	// Lens events
	"lens_selected", "lens_changed", "lens_suggested",

	// Integration verification events
	"integration_check_start", "integration_check_pass",
	"integration_check_fail", "stub_detected", "orphan_detected",
	"wire_task_generated",

	// Briefing and prefetch events
	"briefing_loaded", "briefing_saved",
	"prefetch_start", "prefetch_complete", "prefetch_timeout",

	// Inference visibility events
	"model_start", "model_tokens", "model_thinking", "model_complete",
	"model_heartbeat",

	// Skill graph execution events
	"skill_graph_resolved", "skill_wave_start", "skill_wave_complete",
	"skill_cache_hit", "skill_execute_start", "skill_execute_complete",

	// Security events
	"security_approval_requested", "security_approval_received",
	"security_violation", "security_scan_complete", "audit_log_entry",

	// File events
	"file_created",
}

// backlogKinds extends the agent taxonomy with backlog lifecycle events.
var backlogKinds = []string{
	"backlog_goal_added", "backlog_goal_started",
	"backlog_goal_completed", "backlog_goal_failed", "backlog_refreshed",
}

// chatKinds is the vocabulary of `sunwell chat --stream`.
var chatKinds = []string{
	"start", "chunk", "progress", "file_created", "complete", "error",
}

func kindSet(kinds ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, ks := range kinds {
		for _, k := range ks {
			set[k] = true
		}
	}
	return set
}

// AgentFamily returns the family for `sunwell agent run` and
// `sunwell agent resume`. A silent exit 0 is treated as success with no
// result, matching the shell's historical behavior of treating natural
// stream end as a normal stop.
func AgentFamily() *Family {
	return &Family{
		Name:            "agent",
		Kinds:           kindSet(agentKinds),
		TerminalSuccess: map[string]bool{"complete": true},
		TerminalFailure: map[string]bool{"error": true},
	}
}

// BacklogFamily returns the family for `sunwell backlog run <goal-id>`.
func BacklogFamily() *Family {
	return &Family{
		Name:            "backlog",
		Kinds:           kindSet(agentKinds, backlogKinds),
		TerminalSuccess: map[string]bool{"complete": true},
		TerminalFailure: map[string]bool{"error": true},
	}
}

// ChatFamily returns the family for `sunwell chat --stream`. The final
// line may be a bare response object; a silent exit without one is a
// failure because the response would otherwise be lost.
func ChatFamily() *Family {
	return &Family{
		Name:                "chat",
		Kinds:               kindSet(chatKinds),
		TerminalSuccess:     map[string]bool{"complete": true, KindResult: true},
		TerminalFailure:     map[string]bool{"error": true},
		BareResult:          true,
		SilentExitIsFailure: true,
	}
}
