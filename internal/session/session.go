package session

import (
	"fmt"
	"time"

	"github.com/volnat/murmur/internal/core"
)

// ID identifies one (user, chat) conversation.
type ID string

func Key(userID, chatID int64) ID {
	return ID(fmt.Sprintf("tg:%d:%d", userID, chatID))
}

// FlowState tracks the interactive system-prompt change flow.
type FlowState string

const (
	FlowIdle           FlowState = ""
	FlowAwaitingPrompt FlowState = "awaiting_prompt"
)

// DefaultVoiceEnabled is the single source of truth for whether voice
// replies are on for a fresh session.
const DefaultVoiceEnabled = true

// Session is the per-conversation state. All mutation goes through the
// Store's Update so the system-prompt invariant cannot be broken by a
// stale snapshot: when SystemPrompt is set, History[0] is the matching
// system turn; when it is empty, no turn has the system role.
type Session struct {
	History      []core.Turn `json:"history"`
	ModelID      string      `json:"model_id"`
	SystemPrompt string      `json:"system_prompt,omitempty"`
	VoiceEnabled bool        `json:"voice_enabled"`
	PromptFlow   FlowState   `json:"prompt_flow,omitempty"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// New returns a fresh session with defaults applied.
func New(defaultModel string) Session {
	return Session{
		ModelID:      defaultModel,
		VoiceEnabled: DefaultVoiceEnabled,
	}
}

// Reset clears the history, reinserting the system turn when a system
// prompt is set.
func (s *Session) Reset() {
	if s.SystemPrompt != "" {
		s.History = []core.Turn{core.SystemTurn(s.SystemPrompt)}
		return
	}
	s.History = nil
}

// SetSystemPrompt replaces the system prompt and resets the history so the
// prompt becomes turn zero.
func (s *Session) SetSystemPrompt(prompt string) {
	s.SystemPrompt = prompt
	s.Reset()
}

// ClearSystemPrompt removes the system prompt and resets the history.
func (s *Session) ClearSystemPrompt() {
	s.SystemPrompt = ""
	s.Reset()
}

// Append adds conversation turns to the history. System turns are managed
// exclusively through SetSystemPrompt and are rejected here.
func (s *Session) Append(turns ...core.Turn) error {
	for _, turn := range turns {
		if turn.Role == core.RoleSystem {
			return ErrSystemTurnManaged
		}
	}
	s.History = append(s.History, turns...)
	return nil
}

// Clone returns a deep copy so callers can hold a snapshot without
// aliasing the stored history slice.
func (s Session) Clone() Session {
	clone := s
	if s.History != nil {
		clone.History = make([]core.Turn, len(s.History))
		copy(clone.History, s.History)
	}
	return clone
}
