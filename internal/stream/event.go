package stream

import (
	"encoding/json"
	"strings"
)

// Event is one classified NDJSON event from the agent.
type Event struct {
	// Type is the event kind discriminator, e.g. "task_start", "chunk",
	// "complete". Bare final-result lines (see Family.BareResult) are
	// normalized to KindResult.
	Type string `json:"type"`

	// Data is the event payload. For events carrying a "data" field this
	// is that field verbatim; for flat events (chat chunks, bare results)
	// it is the whole document, so payload fields remain reachable either
	// way.
	Data json.RawMessage `json:"data,omitempty"`

	// Timestamp is the agent-side event time in Unix seconds (fractional).
	Timestamp float64 `json:"timestamp,omitempty"`

	// UIHints is an optional rendering hint object passed through opaquely
	// to subscribers.
	UIHints json.RawMessage `json:"ui_hints,omitempty"`

	// Seq is the stream-local sequence index of the line this event was
	// parsed from. Informational only; ordering is preserved by
	// construction.
	Seq int `json:"-"`
}

// KindResult is the synthesized kind for a bare final-result line in
// families with BareResult enabled.
const KindResult = "result"

// Field extracts a top-level string field from the event payload.
// Returns "" if the payload is not an object or the field is absent or
// not a string.
func (e Event) Field(name string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(e.Data, &obj); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(obj[name], &s); err != nil {
		return ""
	}
	return s
}

// ParseFailure records a line that could not be classified. It is
// diagnostic only and never terminates the stream.
type ParseFailure struct {
	// Line is the offending raw line.
	Line string
	// Err describes why classification failed.
	Err error
	// Seq is the stream-local sequence index of the line.
	Seq int
}

// ChunkAccumulator assembles the content of incremental "chunk" events,
// in arrival order, into the full response text.
type ChunkAccumulator struct {
	sb strings.Builder
}

// Add appends the chunk content of ev, ignoring non-chunk events.
func (a *ChunkAccumulator) Add(ev Event) {
	if ev.Type != "chunk" {
		return
	}
	a.sb.WriteString(ev.Field("content"))
}

// String returns the accumulated content.
func (a *ChunkAccumulator) String() string {
	return a.sb.String()
}

// Len returns the accumulated content length in bytes.
func (a *ChunkAccumulator) Len() int {
	return a.sb.Len()
}
