package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTurn(t *testing.T) {
	tests := []struct {
		name    string
		turn    *Turn
		wantErr error
	}{
		{
			name: "valid user turn",
			turn: &Turn{ConversationId: "c1", Role: RoleUser, Content: "hi"},
		},
		{
			name: "valid assistant turn",
			turn: &Turn{ConversationId: "c1", Role: RoleAssistant, Content: "hello"},
		},
		{
			name:    "nil turn",
			turn:    nil,
			wantErr: ErrInvalidTurn,
		},
		{
			name:    "missing conversation",
			turn:    &Turn{Role: RoleUser, Content: "hi"},
			wantErr: ErrEmptyConversationID,
		},
		{
			name:    "empty content",
			turn:    &Turn{ConversationId: "c1", Role: RoleUser},
			wantErr: ErrEmptyContent,
		},
		{
			name:    "unknown role",
			turn:    &Turn{ConversationId: "c1", Role: Role("SYSTEM"), Content: "hi"},
			wantErr: ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTurn(tt.turn)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateRole(t *testing.T) {
	assert.NoError(t, ValidateRole(RoleUser))
	assert.NoError(t, ValidateRole(RoleAssistant))
	assert.ErrorIs(t, ValidateRole(Role("bot")), ErrInvalidRole)
	assert.ErrorIs(t, ValidateRole(Role("")), ErrInvalidRole)
}
