package telegram

import (
	"context"
	"time"

	"calendarbot/pkg/errors"
	"calendarbot/pkg/logger"
)

// ChunkPause is the delay between consecutive chunks of one message
var ChunkPause = time.Second

// ClearSessions removes a configured webhook and ends pending long-poll sessions
// so that a fresh sendMessage-only client does not conflict with a previous instance.
// Failures are logged and never returned.
func ClearSessions(ctx context.Context, sender Sender) {
	log := logger.Get().With("component", "telegram_session")

	info, err := sender.GetWebhookInfo(ctx)
	if err != nil {
		log.Warnw("Failed to get webhook info", "error", err)
	}

	if err != nil || info.Active() {
		if err := sender.DeleteWebhook(ctx, true); err != nil {
			log.Warnw("Failed to delete webhook", "url", info.URL, "error", err)
		} else {
			log.Infow("Webhook deleted", "url", info.URL, "pending_updates", info.PendingUpdateCount)
		}
	}

	// a conflict here means another poller held the session, which the call just ended
	if err := sender.FlushUpdates(ctx); err != nil {
		log.Debugw("Update flush returned error", "error", err)
	}
}

// Deliver sends chunks in order, pausing ChunkPause between them.
// It stops at the first failure; the returned count tells how many were sent.
func Deliver(ctx context.Context, sender Sender, chatID string, chunks []string) (int, error) {
	log := logger.Get().With("component", "telegram_deliver", "chat_id", chatID)

	sent := 0
	for i, chunk := range chunks {
		if i > 0 && ChunkPause > 0 {
			select {
			case <-ctx.Done():
				return sent, errors.Wrap(ctx.Err(), "delivery cancelled")
			case <-time.After(ChunkPause):
			}
		}

		if err := sender.SendHTML(ctx, chatID, chunk); err != nil {
			log.Errorw("Failed to send chunk",
				"chunk", i+1,
				"total", len(chunks),
				"error", err,
			)
			return sent, errors.Wrapf(err, "send chunk %d/%d", i+1, len(chunks))
		}
		sent++
	}

	log.Infow("Message delivered", "chunks", sent)
	return sent, nil
}
