// Package progress provides a terminal progress bar for the tables or
// plants processed by one command.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Status represents the current state of a unit of work
type Status int

const (
	// StatusPending indicates a unit is waiting to run
	StatusPending Status = iota
	// StatusRunning indicates a unit is currently running
	StatusRunning
	// StatusSuccess indicates a unit completed successfully
	StatusSuccess
	// StatusFailed indicates a unit completed with errors
	StatusFailed
)

// Manager handles the progress display. A nil or disabled Manager only
// counts.
type Manager struct {
	enabled   bool
	total     int
	unit      string
	completed int
	passed    int
	failed    int
	running   map[string]time.Time
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	out       io.Writer
	startTime time.Time
}

// NewManager creates a progress manager writing to stderr.
func NewManager(total int, unit, description string, enabled bool) *Manager {
	return NewManagerWithWriter(os.Stderr, total, unit, description, enabled)
}

// NewManagerWithWriter creates a progress manager writing to out.
func NewManagerWithWriter(out io.Writer, total int, unit, description string, enabled bool) *Manager {
	m := &Manager{
		enabled:   enabled,
		total:     total,
		unit:      unit,
		running:   make(map[string]time.Time),
		out:       out,
		startTime: time.Now(),
	}
	if enabled {
		m.setupProgressBar(description)
	}
	return m
}

func (m *Manager) setupProgressBar(description string) {
	m.bar = progressbar.NewOptions(m.total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(m.out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(m.unit),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "|",
			BarEnd:        "|",
		}),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(m.out)
		}),
	)
}

// Start marks a unit as running
func (m *Manager) Start(key string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running[key] = time.Now()
	if m.bar != nil {
		m.bar.Describe(truncate(key, 30))
	}
}

// Complete marks a unit as done
func (m *Manager) Complete(key string, success bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.running, key)
	m.completed++
	if success {
		m.passed++
	} else {
		m.failed++
	}
	if m.bar != nil {
		_ = m.bar.Add(1)
	}
}

// Counts returns the completed, passed and failed units.
func (m *Manager) Counts() (completed, passed, failed int) {
	if m == nil {
		return 0, 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed, m.passed, m.failed
}

// Running returns the number of units started and not yet completed.
func (m *Manager) Running() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// PrintAbove prints a message above the progress bar
func (m *Manager) PrintAbove(format string, args ...interface{}) {
	if m == nil || !m.enabled {
		fmt.Printf(format+"\n", args...)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.bar.Clear()
	fmt.Fprintf(m.out, format+"\n", args...)
}

// Finish closes the bar and returns the elapsed time.
func (m *Manager) Finish() time.Duration {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bar != nil {
		_ = m.bar.Finish()
	}
	return time.Since(m.startTime)
}

// IsEnabled returns whether progress display is enabled
func (m *Manager) IsEnabled() bool {
	return m != nil && m.enabled
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

// truncate truncates a string to max length with ellipsis
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
