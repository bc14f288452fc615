package stream

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Buffer sizes for agent output. Model-generated lines can be large; the
// per-line cap is configurable per reader.
const (
	initialBufSize     = 256 * 1024
	DefaultMaxLineSize = 1024 * 1024
)

// Line is one complete, non-blank line of agent output.
type Line struct {
	// Text is the line with the trailing newline stripped. Empty for
	// overlong lines.
	Text string
	// Seq is the 0-based index of this line within the stream, counting
	// blank and overlong lines.
	Seq int
	// Overlong marks a line that exceeded the reader's size cap. Its
	// bytes were discarded; the stream continues with the next line.
	Overlong bool
}

// Reader pumps lines from a byte stream on a dedicated goroutine.
//
// One Reader serves exactly one session: it is forward-only and not
// restartable. Blank keep-alive lines are filtered before delivery. A line
// exceeding the size cap is discarded and surfaced with Overlong set
// rather than ending the stream. The Lines channel closes when the stream
// ends, after which Err reports whether the end was a read failure or a
// normal EOF.
type Reader struct {
	lines chan Line

	mu  sync.Mutex
	err error
}

// NewReader starts reading r on a background goroutine. maxLineSize caps
// single-line length; zero or negative selects DefaultMaxLineSize.
func NewReader(r io.Reader, maxLineSize int) *Reader {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}

	rd := &Reader{lines: make(chan Line)}
	go rd.pump(r, maxLineSize)
	return rd
}

// Lines returns the channel of complete lines, in stream order. The
// channel is closed when the stream ends for any reason.
func (r *Reader) Lines() <-chan Line {
	return r.lines
}

// Err returns the read error that ended the stream, or nil for normal
// EOF. Only meaningful after Lines is closed.
func (r *Reader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Reader) pump(src io.Reader, maxLineSize int) {
	defer close(r.lines)

	br := bufio.NewReaderSize(src, initialBufSize)
	var (
		seq      int
		buf      []byte
		overlong bool
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if !overlong {
			buf = append(buf, chunk...)
			if len(buf) > maxLineSize {
				// Stop accumulating; the rest of this line is dropped
				// until the next newline.
				overlong = true
				buf = buf[:0]
			}
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil && err != io.EOF {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			return
		}

		if len(buf) > 0 || overlong {
			seq++
			if overlong {
				r.lines <- Line{Seq: seq - 1, Overlong: true}
			} else {
				text := strings.TrimRight(string(buf), "\r\n")
				if strings.TrimSpace(text) != "" {
					r.lines <- Line{Text: text, Seq: seq - 1}
				}
			}
			buf = buf[:0]
			overlong = false
		}

		if err == io.EOF {
			return
		}
	}
}
