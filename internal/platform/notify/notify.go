// Package notify delivers pipeline status reports to operators.
package notify

import (
	"context"
	"log/slog"
)

// Message is one status report. Attachments are local file paths.
type Message struct {
	Subject     string
	Body        string
	Attachments []string
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes reports to the structured log only.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info("notification", "subject", msg.Subject, "body", msg.Body, "attachments", len(msg.Attachments))
	return nil
}

// Multi fans a message out to several notifiers, returning the first error
// after trying all of them.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil && first == nil {
			first = err
		}
	}
	return first
}
