package testfixtures

import (
	"context"
	"sync"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
)

// NotifierSpy records every notification it receives. FailNext makes the
// next Notify calls fail, which tests use to exercise delivery rollback.
type NotifierSpy struct {
	mu       sync.Mutex
	sent     []application.Notification
	failures int
	failErr  error
}

// NewNotifierSpy creates a NotifierSpy.
func NewNotifierSpy() *NotifierSpy {
	return &NotifierSpy{}
}

// Notify implements application.Notifier.
func (n *NotifierSpy) Notify(_ context.Context, notification application.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failures > 0 {
		n.failures--
		return n.failErr
	}
	n.sent = append(n.sent, notification)
	return nil
}

// FailNext makes the next count Notify calls return err.
func (n *NotifierSpy) FailNext(count int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = count
	n.failErr = err
}

// Sent returns a copy of the recorded notifications.
func (n *NotifierSpy) Sent() []application.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]application.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

// SentTo returns the recorded notifications for the given recipient kind.
func (n *NotifierSpy) SentTo(kind application.RecipientKind) []application.Notification {
	var out []application.Notification
	for _, notification := range n.Sent() {
		if notification.Recipient.Kind == kind {
			out = append(out, notification)
		}
	}
	return out
}

// Reset clears the recorded notifications.
func (n *NotifierSpy) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}
