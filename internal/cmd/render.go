package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sunwell/studio/internal/agent"
	"github.com/sunwell/studio/internal/errors"
	"github.com/sunwell/studio/internal/stream"
)

var (
	kindStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).Width(22)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	cancelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	chunkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
)

// renderer prints stream events as they arrive. Chat chunks are written
// inline without decoration so streamed text reads naturally; everything
// else becomes one decorated line per event.
type renderer struct {
	w         io.Writer
	streaming bool
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

func (r *renderer) Event(ev stream.Event) {
	if ev.Type == "chunk" {
		fmt.Fprint(r.w, chunkStyle.Render(ev.Field("content")))
		r.streaming = true
		return
	}

	r.endStreaming()

	detail := eventDetail(ev)
	if detail == "" {
		fmt.Fprintln(r.w, kindStyle.Render(ev.Type))
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", kindStyle.Render(ev.Type), detailStyle.Render(detail))
}

// endStreaming terminates an inline chunk run with a newline.
func (r *renderer) endStreaming() {
	if r.streaming {
		fmt.Fprintln(r.w)
		r.streaming = false
	}
}

// Final prints the session outcome, including recovery hints on failure.
func (r *renderer) Final(st agent.Status) {
	r.endStreaming()

	switch st.State {
	case agent.StateCompleted:
		fmt.Fprintln(r.w, successStyle.Render("✓ completed"))
	case agent.StateCancelled:
		fmt.Fprintln(r.w, cancelStyle.Render("✗ cancelled"))
	case agent.StateFailed:
		msg := "run failed"
		if st.Err != nil {
			msg = st.Err.Error()
		}
		fmt.Fprintln(r.w, failureStyle.Render("✗ "+msg))

		var coded *errors.Error
		if errors.As(st.Err, &coded) {
			for _, hint := range coded.RecoveryHints {
				fmt.Fprintln(r.w, hintStyle.Render("  hint: "+hint))
			}
		}
	}
}

// eventDetail picks the most useful single field from an event payload
// for one-line display.
func eventDetail(ev stream.Event) string {
	for _, field := range []string{"message", "task", "goal", "summary", "lens", "path", "response"} {
		if v := ev.Field(field); v != "" {
			return truncate(v, 120)
		}
	}
	return ""
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
