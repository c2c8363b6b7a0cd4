// Package notify delivers the one-line outcome of every relation operation to
// whoever is listening: a log, in-process subscribers or remote watchers.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Notifier receives user-facing messages. Calls are fire-and-forget.
type Notifier interface {
	NotifyError(msg string)
	NotifySuccess(msg string)
}

// Level classifies a notification.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Notification is one delivered message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

func (n Notification) String() string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(n.Level)), n.Message)
}

// Nop discards every message.
type Nop struct{}

func (Nop) NotifyError(string)   {}
func (Nop) NotifySuccess(string) {}

// Multi fans a message out to several notifiers in order.
type Multi []Notifier

func (m Multi) NotifyError(msg string) {
	for _, n := range m {
		n.NotifyError(msg)
	}
}

func (m Multi) NotifySuccess(msg string) {
	for _, n := range m {
		n.NotifySuccess(msg)
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) add(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Level: level, Message: msg, Time: time.Now()})
}

func (r *Recorder) NotifyError(msg string)   { r.add(LevelError, msg) }
func (r *Recorder) NotifySuccess(msg string) { r.add(LevelSuccess, msg) }

// All returns the recorded notifications in delivery order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Errors returns the recorded error messages.
func (r *Recorder) Errors() []string {
	return r.messages(LevelError)
}

// Successes returns the recorded success messages.
func (r *Recorder) Successes() []string {
	return r.messages(LevelSuccess)
}

func (r *Recorder) messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.items {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
