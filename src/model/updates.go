package model

// AgentInput carries the fields of a new agent. The registry assigns the id.
type AgentInput struct {
	Name          string
	Avatar        string
	Model         string
	Description   string
	Instructions  string
	IsActive      bool
	KnowledgeBase []KnowledgeItem
	Tools         []Tool
}

// AgentUpdate lists the mutable agent fields. Nil fields are left untouched.
type AgentUpdate struct {
	Name         *string
	Avatar       *string
	Model        *string
	Description  *string
	Instructions *string
	IsActive     *bool
}

// Apply merges the update into a and reports whether the instructions changed.
func (u AgentUpdate) Apply(a *Agent) (instructionsChanged bool) {
	if u.Name != nil {
		a.Name = *u.Name
	}
	if u.Avatar != nil {
		a.Avatar = *u.Avatar
	}
	if u.Model != nil {
		a.Model = *u.Model
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.Instructions != nil && *u.Instructions != a.Instructions {
		a.Instructions = *u.Instructions
		instructionsChanged = true
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}
	return instructionsChanged
}

// KnowledgeItemInput carries a new knowledge item.
type KnowledgeItemInput struct {
	Name    string
	Content string
	Type    KnowledgeType
	Size    *int64
}

// ToolInput carries a new tool.
type ToolInput struct {
	Name        string
	Description string
	Parameters  []ToolParameter
	IsActive    bool
	Script      string
}

// ToolUpdate lists the mutable tool fields.
type ToolUpdate struct {
	Name        *string
	Description *string
	Parameters  *[]ToolParameter
	IsActive    *bool
	Script      *string
}

// Apply merges the update into t.
func (u ToolUpdate) Apply(t *Tool) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Parameters != nil {
		t.Parameters = append([]ToolParameter(nil), (*u.Parameters)...)
	}
	if u.IsActive != nil {
		t.IsActive = *u.IsActive
	}
	if u.Script != nil {
		t.Script = *u.Script
	}
}

// MessageInput carries a message to append. The store assigns the id and
// fills ConversationID.
type MessageInput struct {
	Content         string
	Sender          Sender
	Mentions        []string
	AssignedTo      []string
	Timestamp       int64
	IsTask          bool
	ParentMessageID string
	InReplyTo       string
	FileAttachment  *FileAttachment
}

// MessageUpdate lists the mutable message fields.
type MessageUpdate struct {
	Content        *string
	Mentions       *[]string
	AssignedTo     *[]string
	IsTask         *bool
	FileAttachment *FileAttachment
}

// Apply merges the update into m.
func (u MessageUpdate) Apply(m *Message) {
	if u.Content != nil {
		m.Content = *u.Content
	}
	if u.Mentions != nil {
		m.Mentions = cloneStrings(*u.Mentions)
	}
	if u.AssignedTo != nil {
		m.AssignedTo = cloneStrings(*u.AssignedTo)
	}
	if u.IsTask != nil {
		m.IsTask = *u.IsTask
	}
	if u.FileAttachment != nil {
		fa := *u.FileAttachment
		m.FileAttachment = &fa
	}
}

// Ptr returns a pointer to v. It keeps update literals short.
func Ptr[T any](v T) *T {
	return &v
}
