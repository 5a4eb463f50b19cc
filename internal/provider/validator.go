package provider

import (
	"fmt"

	"github.com/volnat/murmur/internal/core"
)

type ValidationError struct {
	Index   int
	Role    core.Role
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// validateHistory checks the shape replayed to the completion service: an
// optional leading system turn, then user/assistant turns in strict
// alternation starting with user.
func validateHistory(turns []core.Turn) error {
	start := 0
	if len(turns) > 0 && turns[0].Role == core.RoleSystem {
		start = 1
	}

	expected := core.RoleUser
	for i := start; i < len(turns); i++ {
		turn := turns[i]

		if turn.Role == core.RoleSystem {
			return &ValidationError{
				Index:   i,
				Role:    turn.Role,
				Message: fmt.Sprintf("system turn at index %d; only turn 0 may be system", i),
			}
		}

		if turn.Role != expected {
			return &ValidationError{
				Index:   i,
				Role:    turn.Role,
				Message: fmt.Sprintf("expected %s turn at index %d, got %s", expected, i, turn.Role),
			}
		}

		if expected == core.RoleUser {
			expected = core.RoleAssistant
		} else {
			expected = core.RoleUser
		}
	}

	return nil
}
