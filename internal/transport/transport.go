// Package transport defines the chat-transport boundary. The core never
// talks wire formats; it sends, edits, and receives through this
// interface, and an edit that changes nothing ("not modified") is success.
package transport

import "context"

type ChatID int64

type MessageID int64

// Button is one inline-keyboard choice; Data comes back verbatim in the
// resulting Callback.
type Button struct {
	Label string
	Data  string
}

// Message is an inbound plain-text message.
type Message struct {
	ChatID ChatID
	UserID int64
	Text   string
}

// Callback is an inbound inline-keyboard press.
type Callback struct {
	ID        string
	ChatID    ChatID
	MessageID MessageID
	UserID    int64
	Data      string
}

// Update is one inbound event; exactly one field is set.
type Update struct {
	Message  *Message
	Callback *Callback
}

type Transport interface {
	// SendMessage sends plain text and returns the new message's ID.
	SendMessage(ctx context.Context, chat ChatID, text string) (MessageID, error)

	// SendKeyboard sends text with an inline keyboard.
	SendKeyboard(ctx context.Context, chat ChatID, text string, rows [][]Button) (MessageID, error)

	// EditMessage replaces a message's content with rendered HTML. Editing
	// to identical content returns nil, not an error.
	EditMessage(ctx context.Context, chat ChatID, message MessageID, html string) error

	// SendVoice sends synthesized speech audio.
	SendVoice(ctx context.Context, chat ChatID, audio []byte) error

	// SendTyping shows a typing indicator; best-effort.
	SendTyping(ctx context.Context, chat ChatID) error

	// AnswerCallback acknowledges an inline-keyboard press.
	AnswerCallback(ctx context.Context, callbackID string) error
}
