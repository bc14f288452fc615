package stream

import (
	"fmt"
	"testing"
)

func TestClassifyDiscriminatedEvent(t *testing.T) {
	f := AgentFamily()
	line := `{"type":"task_start","data":{"task":"write parser"},"timestamp":1712000000.5}`

	ev, fail := f.Classify(line, 0)
	if fail != nil {
		t.Fatalf("unexpected ParseFailure: %v", fail.Err)
	}
	if ev.Type != "task_start" {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Timestamp != 1712000000.5 {
		t.Errorf("Timestamp = %v", ev.Timestamp)
	}
	if got := ev.Field("task"); got != "write parser" {
		t.Errorf("Field(task) = %q", got)
	}
}

func TestClassifyPassesUIHintsThrough(t *testing.T) {
	f := AgentFamily()
	line := `{"type":"task_complete","data":{},"timestamp":1,"ui_hints":{"icon":"check","severity":"success"}}`

	ev, fail := f.Classify(line, 0)
	if fail != nil {
		t.Fatalf("ParseFailure: %v", fail.Err)
	}
	if len(ev.UIHints) == 0 {
		t.Error("ui_hints not passed through")
	}
}

func TestClassifyMalformedJSON(t *testing.T) {
	f := AgentFamily()
	for _, line := range []string{
		"not json",
		`{"type":"task_start"`,
		`{"type":"task_start","timestamp":"not a number"}`,
	} {
		if _, fail := f.Classify(line, 0); fail == nil {
			t.Errorf("Classify(%q) should fail", line)
		} else if fail.Line != line {
			t.Errorf("failure should carry offending line, got %q", fail.Line)
		}
	}
}

func TestClassifyUnknownKind(t *testing.T) {
	f := AgentFamily()
	_, fail := f.Classify(`{"type":"quantum_leap","data":{}}`, 7)
	if fail == nil {
		t.Fatal("unknown kind should be a ParseFailure")
	}
	if fail.Seq != 7 {
		t.Errorf("Seq = %d, want 7", fail.Seq)
	}
}

func TestClassifyMissingDiscriminator(t *testing.T) {
	// Agent family has no bare-result convention.
	f := AgentFamily()
	if _, fail := f.Classify(`{"data":{"x":1}}`, 0); fail == nil {
		t.Error("missing discriminator should fail for agent family")
	}
}

func TestChatFamilyBareResult(t *testing.T) {
	f := ChatFamily()
	line := `{"response":"All done.","files":["main.go"]}`

	ev, fail := f.Classify(line, 3)
	if fail != nil {
		t.Fatalf("ParseFailure: %v", fail.Err)
	}
	if ev.Type != KindResult {
		t.Errorf("Type = %q, want %q", ev.Type, KindResult)
	}
	if got := ev.Field("response"); got != "All done." {
		t.Errorf("Field(response) = %q", got)
	}

	terminal, success := f.Terminal(ev.Type)
	if !terminal || !success {
		t.Errorf("bare result should be terminal-success, got %v %v", terminal, success)
	}
}

func TestChatFamilyDiscriminatedFormStillWins(t *testing.T) {
	// A line with a discriminator is an event even in bare-result
	// families; the bare form only applies when no discriminator exists.
	f := ChatFamily()
	ev, fail := f.Classify(`{"type":"chunk","content":"ab"}`, 0)
	if fail != nil {
		t.Fatalf("ParseFailure: %v", fail.Err)
	}
	if ev.Type != "chunk" {
		t.Errorf("Type = %q", ev.Type)
	}
	if got := ev.Field("content"); got != "ab" {
		t.Errorf("Field(content) = %q", got)
	}
}

func TestChatFamilyUnknownKindReadsAsResult(t *testing.T) {
	// A result document may itself carry a "type" field that is not an
	// event kind; it still classifies as the bare result.
	f := ChatFamily()
	ev, fail := f.Classify(`{"type":"answer","response":"done"}`, 0)
	if fail != nil {
		t.Fatalf("ParseFailure: %v", fail.Err)
	}
	if ev.Type != KindResult {
		t.Errorf("Type = %q, want %q", ev.Type, KindResult)
	}
}

func TestChatFamilyNonObjectBareLineFails(t *testing.T) {
	f := ChatFamily()
	for _, line := range []string{`[1,2,3]`, `"just a string"`, `42`} {
		if _, fail := f.Classify(line, 0); fail == nil {
			t.Errorf("Classify(%q) should fail: not a result object", line)
		}
	}
}

func TestTerminalKinds(t *testing.T) {
	tests := []struct {
		family   *Family
		kind     string
		terminal bool
		success  bool
	}{
		{AgentFamily(), "complete", true, true},
		{AgentFamily(), "error", true, false},
		{AgentFamily(), "task_complete", false, false},
		{BacklogFamily(), "backlog_goal_completed", false, false},
		{BacklogFamily(), "complete", true, true},
		{ChatFamily(), "complete", true, true},
		{ChatFamily(), KindResult, true, true},
		{ChatFamily(), "chunk", false, false},
	}

	for _, tt := range tests {
		terminal, success := tt.family.Terminal(tt.kind)
		if terminal != tt.terminal || success != tt.success {
			t.Errorf("%s.Terminal(%q) = %v,%v want %v,%v",
				tt.family.Name, tt.kind, terminal, success, tt.terminal, tt.success)
		}
	}
}

func TestBacklogFamilyIncludesAgentKinds(t *testing.T) {
	f := BacklogFamily()
	for _, kind := range []string{"task_start", "plan_winner", "backlog_goal_started"} {
		if !f.Kinds[kind] {
			t.Errorf("backlog family missing %q", kind)
		}
	}
}

// Resilience to noise: malformed lines at arbitrary positions never stop
// classification, and every valid line still becomes an event.
func TestClassifyNoiseResilience(t *testing.T) {
	f := AgentFamily()

	var lines []string
	valid := 0
	for i := 0; i < 20; i++ {
		if i%3 == 1 {
			lines = append(lines, fmt.Sprintf("garbage %d {", i))
		} else {
			lines = append(lines, fmt.Sprintf(`{"type":"task_progress","data":{"n":%d}}`, i))
			valid++
		}
	}

	events, failures := 0, 0
	lastSeq := -1
	for seq, line := range lines {
		ev, fail := f.Classify(line, seq)
		if fail != nil {
			failures++
			continue
		}
		events++
		if ev.Seq <= lastSeq {
			t.Errorf("event order violated: seq %d after %d", ev.Seq, lastSeq)
		}
		lastSeq = ev.Seq
	}

	if events != valid {
		t.Errorf("events = %d, want %d", events, valid)
	}
	if failures != len(lines)-valid {
		t.Errorf("failures = %d, want %d", failures, len(lines)-valid)
	}
}

func TestChunkAccumulator(t *testing.T) {
	f := ChatFamily()
	var acc ChunkAccumulator

	for _, line := range []string{
		`{"type":"start"}`,
		`{"type":"chunk","content":"ab"}`,
		`{"type":"chunk","content":"cd"}`,
		`{"type":"complete","data":{}}`,
	} {
		ev, fail := f.Classify(line, 0)
		if fail != nil {
			t.Fatalf("Classify(%q): %v", line, fail.Err)
		}
		acc.Add(ev)
	}

	if acc.String() != "abcd" {
		t.Errorf("accumulated = %q, want abcd", acc.String())
	}
}
