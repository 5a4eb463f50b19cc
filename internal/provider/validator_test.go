package provider

import (
	"strings"
	"testing"

	"github.com/volnat/murmur/internal/core"
)

func TestValidateHistory(t *testing.T) {
	tests := []struct {
		name        string
		turns       []core.Turn
		expectError bool
		errorSubstr string
	}{
		{
			name:        "empty history",
			turns:       nil,
			expectError: false,
		},
		{
			name: "single user turn",
			turns: []core.Turn{
				core.UserTurn("hello"),
			},
			expectError: false,
		},
		{
			name: "system then alternating",
			turns: []core.Turn{
				core.SystemTurn("be terse"),
				core.UserTurn("hello"),
				core.AssistantTurn("hi"),
				core.UserTurn("more"),
			},
			expectError: false,
		},
		{
			name: "no system prompt",
			turns: []core.Turn{
				core.UserTurn("hello"),
				core.AssistantTurn("hi"),
			},
			expectError: false,
		},
		{
			name: "consecutive user turns",
			turns: []core.Turn{
				core.UserTurn("first"),
				core.UserTurn("second"),
			},
			expectError: true,
			errorSubstr: "expected assistant",
		},
		{
			name: "consecutive assistant turns",
			turns: []core.Turn{
				core.UserTurn("question"),
				core.AssistantTurn("answer"),
				core.AssistantTurn("more"),
			},
			expectError: true,
			errorSubstr: "expected user",
		},
		{
			name: "assistant first",
			turns: []core.Turn{
				core.AssistantTurn("unprompted"),
			},
			expectError: true,
			errorSubstr: "expected user",
		},
		{
			name: "system turn in the middle",
			turns: []core.Turn{
				core.UserTurn("hello"),
				core.SystemTurn("late"),
			},
			expectError: true,
			errorSubstr: "only turn 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateHistory(tt.turns)

			if !tt.expectError {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errorSubstr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.errorSubstr)
			}
		})
	}
}
