package telegram

import (
	"context"
	"time"

	"github.com/volnat/murmur/internal/transport"
)

type tgUser struct {
	ID int64 `json:"id"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgMessage struct {
	MessageID int64   `json:"message_id"`
	From      *tgUser `json:"from"`
	Chat      tgChat  `json:"chat"`
	Text      string  `json:"text"`
}

type tgCallback struct {
	ID      string     `json:"id"`
	From    tgUser     `json:"from"`
	Message *tgMessage `json:"message"`
	Data    string     `json:"data"`
}

type tgUpdate struct {
	UpdateID      int64       `json:"update_id"`
	Message       *tgMessage  `json:"message"`
	CallbackQuery *tgCallback `json:"callback_query"`
}

// GetUpdates long-polls the Bot API for inbound events past offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]tgUpdate, error) {
	var updates []tgUpdate
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message", "callback_query"},
	}, &updates)
	return updates, err
}

// Poll long-polls until ctx is cancelled, invoking handler concurrently
// for each inbound update: one logical worker per event, with per-session
// ordering enforced downstream.
func (c *Client) Poll(ctx context.Context, timeout time.Duration, handler func(transport.Update)) error {
	var offset int64

	for {
		updates, err := c.GetUpdates(ctx, offset, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("getUpdates failed, retrying", "error", err)

			select {
			case <-time.After(3 * time.Second):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for _, raw := range updates {
			if raw.UpdateID >= offset {
				offset = raw.UpdateID + 1
			}

			update, ok := convertUpdate(raw)
			if !ok {
				continue
			}

			go handler(update)
		}
	}
}

func convertUpdate(raw tgUpdate) (transport.Update, bool) {
	if raw.Message != nil && raw.Message.From != nil && raw.Message.Text != "" {
		return transport.Update{
			Message: &transport.Message{
				ChatID: transport.ChatID(raw.Message.Chat.ID),
				UserID: raw.Message.From.ID,
				Text:   raw.Message.Text,
			},
		}, true
	}

	if raw.CallbackQuery != nil && raw.CallbackQuery.Message != nil {
		return transport.Update{
			Callback: &transport.Callback{
				ID:        raw.CallbackQuery.ID,
				ChatID:    transport.ChatID(raw.CallbackQuery.Message.Chat.ID),
				MessageID: transport.MessageID(raw.CallbackQuery.Message.MessageID),
				UserID:    raw.CallbackQuery.From.ID,
				Data:      raw.CallbackQuery.Data,
			},
		}, true
	}

	return transport.Update{}, false
}
