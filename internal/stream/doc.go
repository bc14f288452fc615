// Package stream implements the NDJSON event stream layer between Studio
// and the sunwell agent subprocess.
//
// The agent writes one JSON document per line on stdout. This package
// provides the two components that turn that byte stream into typed events:
//
//   - [Reader]: pumps complete lines off an io.Reader on a dedicated
//     goroutine, filtering blank keep-alive lines, so that consumers and
//     process control are never serialized behind a stalled read.
//   - [Family]: the closed set of event kinds one agent subcommand emits,
//     including which kinds are terminal. Family.Classify turns a raw line
//     into an [Event] or a [ParseFailure].
//
// A ParseFailure is diagnostic, never fatal: a corrupted line from the
// agent must not lose the rest of the run. Classification simply continues
// with the next line.
//
// # Families
//
// Each agent subcommand has its own family:
//
//   - [AgentFamily]: `sunwell agent run` / `agent resume`. The full
//     adaptive event taxonomy, terminals "complete" and "error".
//   - [BacklogFamily]: `sunwell backlog run`. Agent taxonomy plus backlog
//     lifecycle kinds.
//   - [ChatFamily]: `sunwell chat`. Incremental chunk events where the
//     final line may be a bare response object with no recognized "type"
//     discriminator; such objects classify as the complete result.
package stream
