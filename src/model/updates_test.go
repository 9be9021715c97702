package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentUpdateApply(t *testing.T) {
	tests := []struct {
		name        string
		update      AgentUpdate
		wantChanged bool
		check       func(t *testing.T, a Agent)
	}{
		{
			name:        "empty update leaves agent untouched",
			update:      AgentUpdate{},
			wantChanged: false,
			check: func(t *testing.T, a Agent) {
				assert.Equal(t, "Ada", a.Name)
				assert.Equal(t, "be helpful", a.Instructions)
			},
		},
		{
			name:        "name only",
			update:      AgentUpdate{Name: Ptr("Grace")},
			wantChanged: false,
			check: func(t *testing.T, a Agent) {
				assert.Equal(t, "Grace", a.Name)
			},
		},
		{
			name:        "same instructions do not count as a change",
			update:      AgentUpdate{Instructions: Ptr("be helpful")},
			wantChanged: false,
		},
		{
			name:        "new instructions",
			update:      AgentUpdate{Instructions: Ptr("be brief"), IsActive: Ptr(false)},
			wantChanged: true,
			check: func(t *testing.T, a Agent) {
				assert.Equal(t, "be brief", a.Instructions)
				assert.False(t, a.IsActive)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Agent{ID: "agent-1", Name: "Ada", Instructions: "be helpful", IsActive: true}
			changed := tt.update.Apply(&a)
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, "agent-1", a.ID)
			if tt.check != nil {
				tt.check(t, a)
			}
		})
	}
}

func TestMessageUpdateApply(t *testing.T) {
	m := Message{ID: "m1", Content: "old", Mentions: []string{"a1"}}
	MessageUpdate{Content: Ptr("new")}.Apply(&m)

	assert.Equal(t, "new", m.Content)
	assert.Equal(t, []string{"a1"}, m.Mentions)
	assert.Equal(t, "m1", m.ID)
}

func TestConversationCloneIsDeep(t *testing.T) {
	orig := Conversation{
		ID:           "c1",
		Participants: Participants{AgentIDs: []string{"a1"}},
		Messages: []Message{
			{ID: "m1", Mentions: []string{"a1"}, FileAttachment: &FileAttachment{Name: "f"}},
		},
	}
	clone := orig.Clone()
	clone.Participants.AgentIDs[0] = "changed"
	clone.Messages[0].Mentions[0] = "changed"
	clone.Messages[0].FileAttachment.Name = "changed"

	assert.Equal(t, "a1", orig.Participants.AgentIDs[0])
	assert.Equal(t, "a1", orig.Messages[0].Mentions[0])
	assert.Equal(t, "f", orig.Messages[0].FileAttachment.Name)
}

func TestConversationJSONFieldNames(t *testing.T) {
	conv := Conversation{
		ID:           "c1",
		Title:        "t",
		Participants: Participants{UserID: "u1", AgentIDs: []string{"a1"}},
		CreatedAt:    1,
		UpdatedAt:    2,
		Messages:     []Message{{ID: "m1", ConversationID: "c1", AssignedTo: []string{}, InReplyTo: "m0"}},
	}
	data, err := json.Marshal(conv)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "createdAt")
	assert.Contains(t, raw, "updatedAt")
	participants := raw["participants"].(map[string]any)
	assert.Contains(t, participants, "agentIds")
	msg := raw["messages"].([]any)[0].(map[string]any)
	assert.Contains(t, msg, "conversationId")
	assert.Contains(t, msg, "assignedTo")
	assert.Equal(t, "m0", msg["inReplyTo"])
}

func TestGenerationErrorMatching(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("send: %w", &GenerationError{AgentID: "a1", Model: "m", Err: cause})

	assert.ErrorIs(t, err, ErrGenerationFailure)
	assert.ErrorIs(t, err, cause)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "a1", genErr.AgentID)
}
