// Package log is a notifier that only writes messages to the application log.
package log

import (
	"context"

	"github.com/gabapcia/depositwatch/internal/deposittrack"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
)

type notifier struct{}

var _ deposittrack.Notifier = notifier{}

// NewNotifier returns a Notifier logging every message at info level.
func NewNotifier() deposittrack.Notifier {
	return notifier{}
}

// Notify implements deposittrack.Notifier.
func (notifier) Notify(ctx context.Context, message string) error {
	logger.Info(ctx, "notification", "message", message)
	return nil
}
