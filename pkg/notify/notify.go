package notify

import (
	"sync"
	"time"
)

// Severity represents the notice type.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Default display durations.
const (
	DefaultDuration = 3 * time.Second
	ErrorDuration   = 5 * time.Second
)

// Notice is a transient, user-facing message.
type Notice struct {
	Text     string
	Severity Severity
	Duration time.Duration
}

// Notifier receives notices. Implementations are called from the goroutine
// that drives the presentation loop and need not be safe for concurrent use.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = NotifierFunc(func(Notice) {})

// Show delivers a notice with the given severity and the default duration
// for that severity.
//
//	notify.Show(n, notify.SeverityWarning, "You do not have the map")
func Show(n Notifier, severity Severity, text string) {
	d := DefaultDuration
	if severity == SeverityError {
		d = ErrorDuration
	}
	n.Notify(Notice{Text: text, Severity: severity, Duration: d})
}

// Success shows a success notice.
func Success(n Notifier, text string) { Show(n, SeveritySuccess, text) }

// Error shows an error notice.
func Error(n Notifier, text string) { Show(n, SeverityError, text) }

// Warning shows a warning notice.
func Warning(n Notifier, text string) { Show(n, SeverityWarning, text) }

// Info shows an info notice.
func Info(n Notifier, text string) { Show(n, SeverityInfo, text) }

// Queue is a Notifier that buffers notices produced on background
// goroutines until the presentation loop drains them.
type Queue struct {
	mu      sync.Mutex
	pending []Notice
}

// Notify appends n to the queue. Safe for concurrent use.
func (q *Queue) Notify(n Notice) {
	q.mu.Lock()
	q.pending = append(q.pending, n)
	q.mu.Unlock()
}

// Len returns the number of queued notices.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain removes and returns all queued notices in arrival order.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	out := q.pending
	q.pending = nil
	q.mu.Unlock()
	return out
}

// DeliverTo drains the queue into n and returns the number delivered.
func (q *Queue) DeliverTo(n Notifier) int {
	pending := q.Drain()
	for _, notice := range pending {
		n.Notify(notice)
	}
	return len(pending)
}
