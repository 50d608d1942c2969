package telegram

import (
	"context"
)

const (
	// MaxMessageLength is Telegram's hard sendMessage limit
	MaxMessageLength = 4096
	// SafeMessageLength leaves headroom for entities added by the Bot API
	SafeMessageLength = 4000
)

// Sender abstracts the Bot API calls the calendar needs (for dependency injection)
type Sender interface {
	// SendHTML sends an HTML-formatted message to a chat id or @channel
	SendHTML(ctx context.Context, chatID string, text string) error

	// DeleteWebhook removes the webhook, optionally dropping queued updates
	DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error

	// GetWebhookInfo returns the current webhook state
	GetWebhookInfo(ctx context.Context) (WebhookInfo, error)

	// FlushUpdates issues a short getUpdates call to end a stuck long-poll session
	FlushUpdates(ctx context.Context) error
}

// WebhookInfo represents webhook status
type WebhookInfo struct {
	URL                  string
	HasCustomCertificate bool
	PendingUpdateCount   int
	LastErrorDate        int
	LastErrorMessage     string
}

// Active reports whether a webhook is configured
func (w WebhookInfo) Active() bool {
	return w.URL != ""
}
