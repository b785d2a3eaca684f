// Package notification delivers operational alerts from the lab server, such
// as the quote cache losing Redis, to the log and optional webhooks.
package notification

import (
	"context"
	"errors"
	"log"
	"time"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level     AlertLevel `json:"level"`
	Component string     `json:"component"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	TS        time.Time  `json:"ts"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the standard logger.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s: %s", alert.Level, alert.Component, alert.Title, alert.Message)
	return nil
}

// Multi sends every alert to all of its notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Dispatcher sends alerts off the caller's goroutine, for callers that hold
// locks or sit on request paths.
type Dispatcher struct {
	n       Notifier
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher wraps n. Each delivery gets timeout.
func NewDispatcher(n Notifier, timeout time.Duration) *Dispatcher {
	return &Dispatcher{n: n, timeout: timeout, now: time.Now}
}

// Alert stamps and delivers an alert in the background. Delivery errors are logged.
func (d *Dispatcher) Alert(level AlertLevel, component, title, message string) {
	a := Alert{Level: level, Component: component, Title: title, Message: message, TS: d.now().UTC()}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.n.Send(ctx, a); err != nil {
			log.Printf("[notify] delivery of %q failed: %v", a.Title, err)
		}
	}()
}
