// Package progress provides terminal progress bars and spinners.
// Output goes to stderr so stdout stays clean for --stdout and --json.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Bar renders an ASCII progress bar.
type Bar struct {
	Total   int
	Current int
	Label   string
	Width   int
	Enabled bool
	Out     io.Writer

	mu sync.Mutex
}

// New creates a progress bar. It is disabled when stderr is not a TTY,
// when quiet is set, or when CHOJSON_NO_PROGRESS=1.
func New(label string, total int, quiet bool) *Bar {
	return &Bar{
		Total:   total,
		Label:   label,
		Width:   30,
		Enabled: !quiet && shouldEnable(),
		Out:     os.Stderr,
	}
}

// Increment advances the bar by 1 and redraws.
func (b *Bar) Increment(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Current++
	if b.Current > b.Total {
		b.Current = b.Total
	}
	b.render(status)
}

// Set sets the bar to a specific value.
func (b *Bar) Set(n int, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Current = n
	if b.Current > b.Total {
		b.Current = b.Total
	}
	b.render(status)
}

// Finish clears the bar and prints a final line.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled {
		return
	}
	fmt.Fprintf(b.out(), "\r\033[K✓ %s\n", summary)
}

func (b *Bar) render(status string) {
	if !b.Enabled {
		return
	}

	pct := 0.0
	if b.Total > 0 {
		pct = float64(b.Current) / float64(b.Total)
	}

	filled := int(pct * float64(b.Width))
	if filled > b.Width {
		filled = b.Width
	}

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.Width-filled)
	fmt.Fprintf(b.out(), "\r\033[K%s [%s] %d/%d  %s",
		b.Label, bar, b.Current, b.Total, status)
}

func (b *Bar) out() io.Writer {
	if b.Out == nil {
		return os.Stderr
	}
	return b.Out
}

// Pct returns the current percentage (0-100) of the bar.
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Total) * 100
}

// Spinner shows activity while a workbook loads.
type Spinner struct {
	Label   string
	Enabled bool
	Out     io.Writer

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
}

// NewSpinner creates a spinner with the same enablement rules as New.
func NewSpinner(label string, quiet bool) *Spinner {
	return &Spinner{
		Label:   label,
		Enabled: !quiet && shouldEnable(),
		Out:     os.Stderr,
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	if !s.Enabled {
		return
	}

	s.mu.Lock()
	s.stopped = false
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		frames := []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}
		i := 0
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.stopped {
					fmt.Fprintf(s.out(), "\r\033[K%c %s", frames[i%len(frames)], s.Label)
					i++
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the animation and clears the line. A non-empty result is
// printed in its place.
func (s *Spinner) Stop(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true

	select {
	case <-s.done:
	default:
		close(s.done)
	}

	if !s.Enabled {
		return
	}
	if result == "" {
		fmt.Fprint(s.out(), "\r\033[K")
		return
	}
	fmt.Fprintf(s.out(), "\r\033[K✓ %s\n", result)
}

// Update changes the spinner label while it's running.
func (s *Spinner) Update(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Label = label
}

func (s *Spinner) out() io.Writer {
	if s.Out == nil {
		return os.Stderr
	}
	return s.Out
}

func shouldEnable() bool {
	if os.Getenv("CHOJSON_NO_PROGRESS") == "1" {
		return false
	}
	return isTTY()
}

func isTTY() bool {
	stat, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
