package schedule

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrTruncated is returned by LimitedWriter when a write does not fit.
var ErrTruncated = errors.New("output truncated")

// Format renders the week one line per day, for diagnostics:
//
//	Mon: Doze->06:15 Wake->06:30 Off->07:00 Sleep->18:45
func Format(w Week) string {
	var sb strings.Builder
	_ = FormatTo(&sb, w)
	return sb.String()
}

// FormatTo writes the Format output to out and reports the first write error.
func FormatTo(out io.Writer, w Week) error {
	for i, d := range w.Days {
		_, err := fmt.Fprintf(out, "%s: Doze->%s Wake->%s Off->%s Sleep->%s\n",
			WeekdayName(i), d.Doze, d.Wake, d.Day, d.Sleep)
		if err != nil {
			return fmt.Errorf("format %s: %w", WeekdayName(i), err)
		}
	}
	return nil
}

// LimitedWriter accepts at most N bytes in total. A write that would exceed
// the limit writes what fits and returns ErrTruncated.
type LimitedWriter struct {
	W io.Writer
	N int
}

func (l *LimitedWriter) Write(p []byte) (int, error) {
	if len(p) <= l.N {
		n, err := l.W.Write(p)
		l.N -= n
		return n, err
	}
	n, err := l.W.Write(p[:l.N])
	l.N -= n
	if err != nil {
		return n, err
	}
	return n, ErrTruncated
}
