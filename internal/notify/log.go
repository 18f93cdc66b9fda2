package notify

import (
	"context"
	"log/slog"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
)

// LogNotifier writes notifications to the structured log. It stands in for
// the webhook sink when no webhook URL is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify implements application.Notifier.
func (n *LogNotifier) Notify(_ context.Context, notification application.Notification) error {
	n.logger.Info("notification",
		slog.String("recipient_kind", string(notification.Recipient.Kind)),
		slog.String("holder_id", notification.Recipient.HolderID),
		slog.String("text", notification.Text),
		slog.Int("affordances", len(notification.Affordances)))
	return nil
}
