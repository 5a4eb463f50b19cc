package provider

import (
	"context"

	"github.com/volnat/murmur/internal/core"
)

// Fragment is one piece of incrementally generated answer text. A
// Fragment with Err set is terminal: the channel closes right after it
// and the turn must be treated as failed.
type Fragment struct {
	Text string
	Err  error
}

// ChatProvider opens a streaming completion request. The returned channel
// is lazy, forward-only, and closes when the backend signals completion,
// when a terminal error fragment has been delivered, or when ctx is
// cancelled. Cancelling ctx releases the underlying connection, so a
// caller may abandon consumption at any point without leaking it.
type ChatProvider interface {
	Stream(ctx context.Context, history []core.Turn, modelID string) (<-chan Fragment, error)
}
