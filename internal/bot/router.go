// Package bot routes inbound chat events to commands, the system-prompt
// change flow, and the streaming pipeline. All work for one session goes
// through that session's queue, so commands and turns never interleave.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/volnat/murmur/internal/dispatch"
	"github.com/volnat/murmur/internal/session"
	"github.com/volnat/murmur/internal/transport"
)

const helpText = `Basic commands:
/start - Start the bot
/help - Show this message

Chat commands:
/new - Start a new chat session (the model forgets earlier messages)
/model - Change the model used to generate responses
/system_prompt - Change the system prompt used for new chat sessions
/info - Show the current chat session settings
/audio - Enable/disable voice replies

Send any other message to generate a response.`

const startText = `Hi!

Send me a message to generate a response.

Send /new to start a new chat session.`

const promptInstructions = `Send me a new system prompt. Send "clear" to remove the current one, or /cancel to keep it.`

// clearSentinel, compared case-insensitively after trimming, empties the
// system prompt instead of replacing it.
const clearSentinel = "clear"

type Router struct {
	store      session.Store
	dispatcher *dispatch.Dispatcher
	queues     *dispatch.Queues
	tp         transport.Transport
	auth       Authorizer
	models     []string
	logger     *slog.Logger
}

func NewRouter(
	store session.Store,
	dispatcher *dispatch.Dispatcher,
	queues *dispatch.Queues,
	tp transport.Transport,
	auth Authorizer,
	models []string,
	logger *slog.Logger,
) *Router {
	return &Router{
		store:      store,
		dispatcher: dispatcher,
		queues:     queues,
		tp:         tp,
		auth:       auth,
		models:     models,
		logger:     logger,
	}
}

// HandleUpdate is the entry point for one inbound event. It authorizes,
// resolves session identity, and queues the actual work behind any turn
// already in flight for that session.
func (r *Router) HandleUpdate(ctx context.Context, update transport.Update) {
	switch {
	case update.Message != nil:
		msg := *update.Message
		if !r.auth.IsAuthorized(msg.UserID) {
			return
		}

		id := session.Key(msg.UserID, int64(msg.ChatID))
		r.queues.Submit(id, func() {
			r.routeMessage(ctx, id, msg)
		})

	case update.Callback != nil:
		cb := *update.Callback
		if !r.auth.IsAuthorized(cb.UserID) {
			return
		}

		id := session.Key(cb.UserID, int64(cb.ChatID))
		r.queues.Submit(id, func() {
			r.routeCallback(ctx, id, cb)
		})
	}
}

func (r *Router) routeMessage(ctx context.Context, id session.ID, msg transport.Message) {
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		command, _ := splitCommand(text)
		r.runCommand(ctx, id, msg.ChatID, command)
		return
	}

	sess, err := r.store.Get(ctx, id)
	if err != nil {
		r.logger.Warn("session load degraded", "session", string(id), "error", err)
	}

	if sess.PromptFlow == session.FlowAwaitingPrompt {
		r.consumePrompt(ctx, id, msg.ChatID, msg.Text)
		return
	}

	r.dispatcher.HandleTurn(ctx, id, msg.ChatID, msg.Text)
}

func (r *Router) runCommand(ctx context.Context, id session.ID, chat transport.ChatID, command string) {
	sess, err := r.store.Get(ctx, id)
	if err != nil {
		r.logger.Warn("session load degraded", "session", string(id), "error", err)
	}

	// While the prompt-change flow is waiting for input, /cancel is the
	// only command accepted.
	if sess.PromptFlow == session.FlowAwaitingPrompt && command != "cancel" {
		r.reply(ctx, chat, "Send the new system prompt first, or /cancel.")
		return
	}

	switch command {
	case "start":
		r.reply(ctx, chat, startText)

	case "help":
		r.reply(ctx, chat, helpText)

	case "new":
		if err := r.store.Reset(ctx, id); err != nil {
			r.logger.Warn("session reset failed", "session", string(id), "error", err)
		}
		r.reply(ctx, chat, "New chat session started.\n\nSwitch models with /model.")

	case "model":
		rows := make([][]transport.Button, 0, len(r.models))
		for _, model := range r.models {
			rows = append(rows, []transport.Button{{
				Label: model,
				Data:  "change_model_" + model,
			}})
		}
		if _, err := r.tp.SendKeyboard(ctx, chat, "Select a model:", rows); err != nil {
			r.logger.Warn("failed to send model keyboard", "error", err)
		}

	case "info":
		voiceState := "disabled"
		if sess.VoiceEnabled {
			voiceState = "enabled"
		}
		r.reply(ctx, chat, "Conversation info:\nModel: "+sess.ModelID+"\nVoice replies: "+voiceState)

	case "audio":
		updated, err := r.store.Update(ctx, id, func(s *session.Session) error {
			s.VoiceEnabled = !s.VoiceEnabled
			return nil
		})
		if err != nil {
			r.logger.Warn("voice toggle failed", "session", string(id), "error", err)
			return
		}
		state := "disabled"
		if updated.VoiceEnabled {
			state = "enabled"
		}
		r.reply(ctx, chat, "Voice replies are now "+state+".")

	case "system_prompt":
		if _, err := r.store.Update(ctx, id, func(s *session.Session) error {
			s.PromptFlow = session.FlowAwaitingPrompt
			return nil
		}); err != nil {
			r.logger.Warn("failed to start prompt flow", "session", string(id), "error", err)
			return
		}
		r.reply(ctx, chat, promptInstructions)

	case "cancel":
		if sess.PromptFlow != session.FlowAwaitingPrompt {
			r.reply(ctx, chat, "Nothing to cancel.")
			return
		}
		if _, err := r.store.Update(ctx, id, func(s *session.Session) error {
			s.PromptFlow = session.FlowIdle
			return nil
		}); err != nil {
			r.logger.Warn("failed to cancel prompt flow", "session", string(id), "error", err)
			return
		}
		r.reply(ctx, chat, "System prompt change cancelled.")

	default:
		r.reply(ctx, chat, "Unknown command. Send /help for the list of commands.")
	}
}

// consumePrompt finishes the prompt-change flow with the next plain
// message: the sentinel clears the prompt, anything else becomes the new
// prompt verbatim. Both paths reset the session and return the flow to
// idle.
func (r *Router) consumePrompt(ctx context.Context, id session.ID, chat transport.ChatID, text string) {
	cleared := strings.EqualFold(strings.TrimSpace(text), clearSentinel)

	_, err := r.store.Update(ctx, id, func(s *session.Session) error {
		if cleared {
			s.ClearSystemPrompt()
		} else {
			s.SetSystemPrompt(text)
		}
		s.PromptFlow = session.FlowIdle
		return nil
	})
	if err != nil {
		r.logger.Warn("failed to change system prompt", "session", string(id), "error", err)
		return
	}

	if cleared {
		r.reply(ctx, chat, "System prompt cleared.")
		return
	}
	r.reply(ctx, chat, "System prompt changed.")
}

func (r *Router) routeCallback(ctx context.Context, id session.ID, cb transport.Callback) {
	defer func() {
		if err := r.tp.AnswerCallback(ctx, cb.ID); err != nil {
			r.logger.Debug("failed to answer callback", "error", err)
		}
	}()

	model, ok := strings.CutPrefix(cb.Data, "change_model_")
	if !ok {
		return
	}

	if !r.knownModel(model) {
		r.logger.Warn("callback named unknown model", "model", model)
		return
	}

	if _, err := r.store.Update(ctx, id, func(s *session.Session) error {
		s.ModelID = model
		return nil
	}); err != nil {
		r.logger.Warn("model change failed", "session", string(id), "error", err)
		return
	}

	notice := "Model changed to <code>" + model + "</code>.\n\nSend /new to start a new chat session."
	if err := r.tp.EditMessage(ctx, cb.ChatID, cb.MessageID, notice); err != nil {
		r.logger.Warn("failed to confirm model change", "error", err)
	}
}

func (r *Router) knownModel(model string) bool {
	for _, known := range r.models {
		if known == model {
			return true
		}
	}
	return false
}

func (r *Router) reply(ctx context.Context, chat transport.ChatID, text string) {
	if _, err := r.tp.SendMessage(ctx, chat, text); err != nil {
		r.logger.Warn("failed to send reply", "error", err)
	}
}

// splitCommand parses "/model@somebot arg" into ("model", "arg").
func splitCommand(text string) (string, string) {
	rest := strings.TrimPrefix(text, "/")

	command := rest
	args := ""
	if space := strings.IndexByte(rest, ' '); space >= 0 {
		command = rest[:space]
		args = strings.TrimSpace(rest[space+1:])
	}

	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}

	return strings.ToLower(command), args
}
