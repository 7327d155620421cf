// Package notify delivers emergency alerts to a human contact.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hupe1980/healthbot/logging"
)

// ErrSuppressed is returned by Cooldown when an alert for the same user was
// already sent within the cooldown window.
var ErrSuppressed = errors.New("alert suppressed by cooldown")

// Alert is a message for an emergency contact. An empty To uses the
// notifier's default recipient.
type Alert struct {
	UserID string
	To     string
	Body   string
}

// Notifier sends alerts.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, alert Alert) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, alert Alert) error { return f(ctx, alert) }

// LogNotifier writes alerts to a logger instead of sending them. It is used
// in development when no gateway is configured.
type LogNotifier struct {
	Logger logging.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, alert Alert) error {
	l := n.Logger
	if l == nil {
		l = logging.NoOpLogger{}
	}

	l.Warn("emergency alert (not delivered)", "user_id", alert.UserID, "to", alert.To, "body", alert.Body)

	return nil
}

// Cooldown suppresses repeated alerts for the same user within a window.
// Failed deliveries do not start the window.
type Cooldown struct {
	next   Notifier
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

// NewCooldown wraps next. A non-positive window disables suppression.
func NewCooldown(next Notifier, window time.Duration) *Cooldown {
	return &Cooldown{
		next:   next,
		window: window,
		now:    time.Now,
		last:   make(map[string]time.Time),
	}
}

// Notify implements Notifier. The window is reserved before delivery so
// concurrent alerts for one user send at most once; a failed delivery
// releases the reservation.
func (c *Cooldown) Notify(ctx context.Context, alert Alert) error {
	if c.window <= 0 {
		return c.next.Notify(ctx, alert)
	}

	c.mu.Lock()

	now := c.now()

	prev, hadPrev := c.last[alert.UserID]
	if hadPrev && now.Sub(prev) < c.window {
		c.mu.Unlock()
		return ErrSuppressed
	}

	c.last[alert.UserID] = now
	c.mu.Unlock()

	if err := c.next.Notify(ctx, alert); err != nil {
		c.mu.Lock()
		if t, ok := c.last[alert.UserID]; ok && t.Equal(now) {
			if hadPrev {
				c.last[alert.UserID] = prev
			} else {
				delete(c.last, alert.UserID)
			}
		}
		c.mu.Unlock()

		return err
	}

	return nil
}
