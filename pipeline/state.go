package pipeline

import (
	"github.com/becomeliminal/vox-go-sdk/core"
	"github.com/becomeliminal/vox-go-sdk/memory"
)

// TurnState carries one conversation turn through the pipeline stages and
// persists across turns within a session. It is created empty at session
// start and discarded at process end; nothing here survives the session.
type TurnState struct {
	// Messages is the role-tagged conversation so far.
	Messages []core.Message

	// UserID scopes every memory operation in the turn.
	UserID string

	// MemoryResults holds the most recent memory search, set by RETRIEVE.
	MemoryResults *memory.SearchResults

	// SpokenResponse is the speech-optimized rendering of the most recent
	// assistant message, set by GENERATE and consumed by RENDER.
	SpokenResponse string
}

// NewTurnState creates the empty session state for a user.
func NewTurnState(userID string) *TurnState {
	return &TurnState{UserID: userID}
}

// lastUserMessage returns the content of the most recent user-role message.
func (s *TurnState) lastUserMessage() (string, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == core.RoleUser {
			return s.Messages[i].Content, true
		}
	}
	return "", false
}
