// Package notification reaches participants with no live connection.
// The channel is a logging stand-in for a real provider (email, push);
// callers treat every outcome as best effort.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"support-chat/repositories"

	"github.com/google/uuid"
)

const previewLength = 50

type UserGetter interface {
	Get(ctx context.Context, id string) (repositories.User, error)
}

type LogNotifier struct {
	log   *slog.Logger
	users UserGetter
}

func NewLogNotifier(log *slog.Logger, users UserGetter) *LogNotifier {
	return &LogNotifier{log: log, users: users}
}

// NotifyOffline resolves the recipient and logs the would-be notification.
func (n *LogNotifier) NotifyOffline(ctx context.Context, recipientID string, sessionID uuid.UUID, preview string) error {
	recipient, err := n.users.Get(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("resolving offline recipient %s: %w", recipientID, err)
	}

	if runes := []rune(preview); len(runes) > previewLength {
		preview = string(runes[:previewLength])
	}

	n.log.Info("offline notification",
		"email", recipient.Email,
		"session_id", sessionID,
		"preview", preview,
	)
	return nil
}
