package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/volnat/murmur/internal/core"
	"github.com/volnat/murmur/internal/provider"
	"github.com/volnat/murmur/internal/render"
	"github.com/volnat/murmur/internal/session"
	"github.com/volnat/murmur/internal/transport"
	"github.com/volnat/murmur/internal/voice"
)

const (
	placeholderText = "Generating response..."
	failureText     = "An error occurred while processing your request."
)

type Config struct {
	// EditInterval is the minimum spacing between streaming edits for one
	// session. Zero disables throttling.
	EditInterval time.Duration
	EditBurst    int
}

// Dispatcher drives one streaming turn: placeholder out, fragments
// accumulated and re-rendered, throttled edits, then either the session
// append plus optional voice reply, or a failure notice with the session
// left untouched.
type Dispatcher struct {
	store  session.Store
	chat   provider.ChatProvider
	tp     transport.Transport
	synth  voice.Synthesizer
	config Config
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[session.ID]*rate.Limiter
}

func New(
	store session.Store,
	chat provider.ChatProvider,
	tp transport.Transport,
	synth voice.Synthesizer,
	config Config,
	logger *slog.Logger,
) *Dispatcher {
	if config.EditBurst <= 0 {
		config.EditBurst = 1
	}

	return &Dispatcher{
		store:    store,
		chat:     chat,
		tp:       tp,
		synth:    synth,
		config:   config,
		logger:   logger,
		limiters: make(map[session.ID]*rate.Limiter),
	}
}

// pendingAnswer is the transient accumulator for one in-flight turn. It is
// discarded when the turn completes or fails.
type pendingAnswer struct {
	raw         strings.Builder
	lastEmitted string
	lastEmit    time.Time
}

// HandleTurn runs one user message through the streaming pipeline. The
// caller serializes invocations per session; HandleTurn assumes it is the
// only in-flight turn for id.
func (d *Dispatcher) HandleTurn(ctx context.Context, id session.ID, chat transport.ChatID, text string) {
	logger := d.logger.With("turn_id", uuid.NewString(), "session", string(id))

	sess, err := d.store.Get(ctx, id)
	if err != nil {
		// The store hands back a usable default; run the turn degraded.
		logger.Warn("session load degraded", "error", err)
	}

	history := make([]core.Turn, 0, len(sess.History)+1)
	history = append(history, sess.History...)
	history = append(history, core.UserTurn(text))

	messageID, err := d.tp.SendMessage(ctx, chat, placeholderText)
	if err != nil {
		logger.Error("failed to send placeholder", "error", err)
		return
	}

	_ = d.tp.SendTyping(ctx, chat)

	fragments, err := d.chat.Stream(ctx, history, sess.ModelID)
	if err != nil {
		logger.Error("completion request failed", "error", err)
		_ = d.tp.EditMessage(ctx, chat, messageID, failureText)
		return
	}

	// The queue serializes turns per session, so the limiter only needs
	// to live for this turn. Releasing it keeps the map bounded by the
	// number of in-flight sessions.
	limiter := d.limiterFor(id)
	defer d.releaseLimiter(id)

	var pending pendingAnswer
	var streamErr error

	for frag := range fragments {
		if frag.Err != nil {
			streamErr = frag.Err
			break
		}

		pending.raw.WriteString(frag.Text)

		rendered := render.HTML(pending.raw.String())
		if rendered == pending.lastEmitted {
			continue
		}

		// Throttled or transiently failing edits are deferred, never
		// fatal: the next fragment re-renders the full prefix anyway.
		if !limiter.Allow() {
			continue
		}
		if err := d.tp.EditMessage(ctx, chat, messageID, rendered); err != nil {
			logger.Debug("streaming edit deferred", "error", err)
			continue
		}

		pending.lastEmitted = rendered
		pending.lastEmit = time.Now()
	}

	if streamErr == nil && ctx.Err() != nil {
		streamErr = ctx.Err()
	}

	answer := pending.raw.String()
	if streamErr == nil && answer == "" {
		streamErr = &core.UpstreamError{Reason: "empty answer"}
	}

	if streamErr != nil {
		logger.Error("streaming turn failed", "error", streamErr)
		_ = d.tp.EditMessage(ctx, chat, messageID, failureText)
		return
	}

	if rendered := render.HTML(answer); rendered != pending.lastEmitted {
		if err := limiter.Wait(ctx); err == nil {
			if err := d.tp.EditMessage(ctx, chat, messageID, rendered); err != nil {
				logger.Warn("final edit failed", "error", err)
			}
		}
	}

	if _, err := d.store.Update(ctx, id, func(s *session.Session) error {
		return s.Append(core.UserTurn(text), core.AssistantTurn(answer))
	}); err != nil {
		// The answer is already on screen; losing the append degrades
		// history for this session only.
		logger.Warn("failed to persist turn", "error", err)
	}

	if sess.VoiceEnabled && d.synth != nil {
		d.sendVoice(ctx, logger, chat, answer)
	}
}

func (d *Dispatcher) sendVoice(ctx context.Context, logger *slog.Logger, chat transport.ChatID, answer string) {
	audio, err := d.synth.Synthesize(ctx, answer)
	if err != nil {
		logger.Warn("voice synthesis failed", "error", err)
		return
	}

	if err := d.tp.SendVoice(ctx, chat, audio); err != nil {
		logger.Warn("failed to send voice reply", "error", err)
	}
}

func (d *Dispatcher) limiterFor(id session.ID) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()

	limiter, ok := d.limiters[id]
	if !ok {
		limit := rate.Inf
		if d.config.EditInterval > 0 {
			limit = rate.Every(d.config.EditInterval)
		}
		limiter = rate.NewLimiter(limit, d.config.EditBurst)
		d.limiters[id] = limiter
	}
	return limiter
}

func (d *Dispatcher) releaseLimiter(id session.ID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.limiters, id)
}
