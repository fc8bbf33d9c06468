package notifications

import (
	"context"
	"log/slog"

	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/middleware"
)

// LogNotifier writes notifications to the structured log. Used when no
// broker is configured, so local setups run without Kafka.
type LogNotifier struct{}

// Ensure LogNotifier implements the portssvc.Notifier interface
var _ portssvc.Notifier = (*LogNotifier)(nil)

func (LogNotifier) Notify(ctx context.Context, n portssvc.Notification) error {
	middleware.GetLoggerFromCtx(ctx).Info("notification",
		slog.String("community_id", n.CommunityID),
		slog.String("recipient_id", n.RecipientID),
		slog.String("event", string(n.Event)),
		slog.Any("fields", n.Fields))
	return nil
}
