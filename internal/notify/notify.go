// AngelaMos | 2026
// notify.go

package notify

import (
	"context"
	"log/slog"
	"time"
)

//go:generate mockgen -source=notify.go -destination=mocks/notifier.go -package=mocks

type EventType string

const (
	PurchaseCompleted EventType = "purchase.completed"
	PurchaseFailed    EventType = "purchase.failed"

	StudentRegistered EventType = "student.registered"
	StudentApproved   EventType = "student.approved"
	StudentRejected   EventType = "student.rejected"
	StudentExtended   EventType = "student.extended"
	StudentGraduated  EventType = "student.graduated"
	StudentConverted  EventType = "student.converted"

	EbookPublished EventType = "ebook.published"
	EbookRejected  EventType = "ebook.rejected"
)

type Event struct {
	Type       EventType         `json:"type"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Send delivers event and only logs a failure. Lifecycle transitions never
// roll back because a message could not be delivered.
func Send(ctx context.Context, n Notifier, logger *slog.Logger, event Event) {
	if n == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	if err := n.Notify(ctx, event); err != nil {
		logger.Warn("notification delivery failed",
			"type", event.Type,
			"recipient", event.Recipient,
			"error", err,
		)
	}
}

// LogNotifier writes events to the log. It backs development setups
// without a broker.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, event Event) error {
	l.logger.Info("notification",
		"type", event.Type,
		"recipient", event.Recipient,
		"subject", event.Subject,
	)
	return nil
}
