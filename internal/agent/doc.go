// Package agent runs the sunwell CLI as a supervised subprocess and turns
// its NDJSON stdout into an ordered event stream.
//
// The Bridge is the entry point. It spawns the process, reads stdout line
// by line, classifies each line against the run's event family, and fans
// events out to subscribers in arrival order. A session moves through a
// small state machine (Idle, Starting, Running, then one of Completed,
// Failed, Cancelled) and only one non-terminal session exists per Bridge
// at a time.
//
// Stop is safe to call at any point and from any goroutine: it signals the
// process with SIGTERM, escalates to SIGKILL after a grace period, and
// guarantees the child is reaped exactly once. Subscribers always observe
// a closed event channel and a final Status, whatever path the session
// took to its terminal state.
package agent
