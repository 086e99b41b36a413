// Package notify schedules user-facing notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

type Notification struct {
	Title string
	Body  string
	// At is when the notification should fire; zero means now.
	At time.Time
}

type Scheduler interface {
	Schedule(ctx context.Context, n Notification) (string, error)
	PermissionGranted(ctx context.Context) (bool, error)
}

// LogScheduler delivers notifications as structured log records. It is the
// terminal stand-in for a device notification service.
type LogScheduler struct {
	logger *slog.Logger
	seq    atomic.Int64
}

func NewLogScheduler(logger *slog.Logger) *LogScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogScheduler{logger: logger}
}

func (s *LogScheduler) Schedule(ctx context.Context, n Notification) (string, error) {
	if n.Title == "" {
		return "", fmt.Errorf("schedule notification: title is required")
	}
	at := n.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	id := fmt.Sprintf("notification-%d", s.seq.Add(1))
	s.logger.LogAttrs(ctx, slog.LevelWarn, "notification",
		slog.String("id", id),
		slog.String("title", n.Title),
		slog.String("body", n.Body),
		slog.Time("at", at),
	)
	return id, nil
}

func (s *LogScheduler) PermissionGranted(context.Context) (bool, error) {
	return true, nil
}
