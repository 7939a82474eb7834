package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Sink receives user-facing notifications. Calls are fire-and-forget.
type Sink interface {
	Success(msg string)
	Error(msg string)
}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}

// Discard drops every notification.
var Discard Sink = discard{}

// Log writes notifications to a logrus logger (used by scriptable commands, where stderr is the UI).
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) Success(msg string) {
	if l.Logger == nil {
		return
	}
	l.Logger.WithField("toast", "success").Info(msg)
}

func (l Log) Error(msg string) {
	if l.Logger == nil {
		return
	}
	l.Logger.WithField("toast", "error").Error(msg)
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Toast struct {
	Level   Level
	Message string
}

// Queue buffers toasts until a UI drains them. Safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
}

func (q *Queue) Success(msg string) { q.push(Toast{Level: LevelSuccess, Message: msg}) }
func (q *Queue) Error(msg string)   { q.push(Toast{Level: LevelError, Message: msg}) }

func (q *Queue) push(t Toast) {
	q.mu.Lock()
	q.toasts = append(q.toasts, t)
	q.mu.Unlock()
}

// Drain returns queued toasts (oldest first) and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	return out
}

// Fanout forwards every notification to each sink in order.
type Fanout []Sink

func (f Fanout) Success(msg string) {
	for _, s := range f {
		if s != nil {
			s.Success(msg)
		}
	}
}

func (f Fanout) Error(msg string) {
	for _, s := range f {
		if s != nil {
			s.Error(msg)
		}
	}
}
