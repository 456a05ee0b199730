// Package notify renders user-facing notices: short banners with a severity
// and a display duration.
package notify

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Severity of a notice.
type Severity int

const (
	Info Severity = iota
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultDuration is how long a notice of severity s stays up when the
// caller does not choose.
func DefaultDuration(s Severity) time.Duration {
	if s == Error {
		return 6 * time.Second
	}
	return 4 * time.Second
}

// Notice is one banner. A zero Duration means DefaultDuration.
type Notice struct {
	Severity Severity
	Message  string
	Duration time.Duration
}

// Notifier shows notices to the user.
type Notifier interface {
	Notify(n Notice)
}

// Helpers for the common case.

func Infof(n Notifier, d time.Duration, format string, args ...any) {
	n.Notify(Notice{Severity: Info, Message: fmt.Sprintf(format, args...), Duration: d})
}

func Successf(n Notifier, d time.Duration, format string, args ...any) {
	n.Notify(Notice{Severity: Success, Message: fmt.Sprintf(format, args...), Duration: d})
}

func Warnf(n Notifier, d time.Duration, format string, args ...any) {
	n.Notify(Notice{Severity: Warning, Message: fmt.Sprintf(format, args...), Duration: d})
}

func Errorf(n Notifier, d time.Duration, format string, args ...any) {
	n.Notify(Notice{Severity: Error, Message: fmt.Sprintf(format, args...), Duration: d})
}

var (
	bannerStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true)

	severityColors = map[Severity]lipgloss.Color{
		Info:    lipgloss.Color("33"),  // blue
		Success: lipgloss.Color("34"),  // green
		Warning: lipgloss.Color("214"), // orange
		Error:   lipgloss.Color("196"), // red
	}

	severityIcons = map[Severity]string{
		Info:    "⏳",
		Success: "✅",
		Warning: "⚠️",
		Error:   "❌",
	}
)

// Terminal writes each notice as a colored banner line.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out}
}

// Notify implements Notifier.
func (t *Terminal) Notify(n Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, Render(n))
}

// Render formats a notice as a banner.
func Render(n Notice) string {
	style := bannerStyle.BorderForeground(severityColors[n.Severity])
	return style.Render(severityIcons[n.Severity] + " " + n.Message)
}

// Recorder keeps every notice in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.Duration == 0 {
		n.Duration = DefaultDuration(n.Severity)
	}
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Messages returns the recorded messages with the given severity.
func (r *Recorder) Messages(s Severity) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices {
		if n.Severity == s {
			out = append(out, n.Message)
		}
	}
	return out
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notice) {}
