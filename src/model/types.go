// Package model holds the entities shared by the registry, the conversation
// store and the persistence layers. JSON field names follow the cache format,
// which is also the wire format of the messages column in the record store.
package model

import "time"

// SenderType identifies who produced a message
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderAgent  SenderType = "agent"
	SenderSystem SenderType = "system"
)

// KnowledgeType distinguishes inline text from stored files
type KnowledgeType string

const (
	KnowledgeText KnowledgeType = "text"
	KnowledgeFile KnowledgeType = "file"
)

// User is the authenticated identity driving a session.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// Agent is a configured persona capable of producing chat responses.
type Agent struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Avatar                string          `json:"avatar"`
	Model                 string          `json:"model"`
	Description           string          `json:"description"`
	Instructions          string          `json:"instructions"`
	InstructionTokenCount int             `json:"instructionTokenCount"`
	IsActive              bool            `json:"isActive"`
	KnowledgeBase         []KnowledgeItem `json:"knowledgeBase"`
	Tools                 []Tool          `json:"tools"`
}

// KnowledgeItem is one entry in an agent's knowledge base. For file items
// Content holds the storage path rather than the file bytes.
type KnowledgeItem struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Content string        `json:"content"`
	Type    KnowledgeType `json:"type"`
	Size    *int64        `json:"size,omitempty"`
}

// Tool is a callable capability advertised to the model.
type Tool struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	IsActive    bool            `json:"isActive"`
	Script      string          `json:"script,omitempty"`
}

// ToolParameter describes one tool argument.
type ToolParameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, boolean, array, object
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Sender identifies the author of a message.
type Sender struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Type   SenderType `json:"type"`
	Avatar string     `json:"avatar,omitempty"`
}

// FileAttachment references an uploaded file.
type FileAttachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Message is one entry in a conversation log. Timestamp is Unix milliseconds.
type Message struct {
	ID              string          `json:"id"`
	ConversationID  string          `json:"conversationId"`
	Content         string          `json:"content"`
	Sender          Sender          `json:"sender"`
	Mentions        []string        `json:"mentions"`
	AssignedTo      []string        `json:"assignedTo"`
	Timestamp       int64           `json:"timestamp"`
	IsTask          bool            `json:"isTask"`
	ParentMessageID string          `json:"parentMessageId,omitempty"`
	InReplyTo       string          `json:"inReplyTo,omitempty"`
	FileAttachment  *FileAttachment `json:"fileAttachment,omitempty"`
}

// Participants lists who takes part in a conversation.
type Participants struct {
	UserID   string   `json:"userId,omitempty"`
	AgentIDs []string `json:"agentIds"`
}

// Conversation is an ordered message log shared by a user and a set of agents.
// CreatedAt and UpdatedAt are Unix milliseconds.
type Conversation struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Participants Participants `json:"participants"`
	CreatedAt    int64        `json:"createdAt"`
	UpdatedAt    int64        `json:"updatedAt"`
	Messages     []Message    `json:"messages"`
}

// ModelConfig binds a model id to a provider and credentials.
type ModelConfig struct {
	ID        string `json:"id" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Provider  string `json:"provider" validate:"required,oneof=google openrouter"`
	APIKey    string `json:"apiKey"`
	IsDefault bool   `json:"isDefault"`
}

// DatabaseConnection holds discrete connection fields for a data source.
type DatabaseConnection struct {
	Host     string `json:"host,omitempty"`
	Port     string `json:"port,omitempty"`
	Database string `json:"database,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	URL      string `json:"url,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
}

// DatabaseConfig describes an external retrieval data source. The
// conversation core never reads it.
type DatabaseConfig struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Provider         string              `json:"provider"` // supabase, postgres, mysql
	ConnectionString string              `json:"connectionString,omitempty"`
	APIKey           string              `json:"apiKey,omitempty"`
	Tables           []string            `json:"tables,omitempty"`
	IsDefault        bool                `json:"isDefault,omitempty"`
	APIURL           string              `json:"apiUrl,omitempty"`
	IsActive         bool                `json:"isActive,omitempty"`
	Type             string              `json:"type,omitempty"`
	Connection       *DatabaseConnection `json:"connection,omitempty"`
}

// AppConfig is the user-editable model and data source configuration.
type AppConfig struct {
	Models    []ModelConfig    `json:"models"`
	Databases []DatabaseConfig `json:"databases"`
}

// NowMillis returns the current time as Unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	out := c
	out.Participants.AgentIDs = cloneStrings(c.Participants.AgentIDs)
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		for i, m := range c.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Mentions = cloneStrings(m.Mentions)
	out.AssignedTo = cloneStrings(m.AssignedTo)
	if m.FileAttachment != nil {
		fa := *m.FileAttachment
		out.FileAttachment = &fa
	}
	return out
}

// Clone returns a deep copy of the agent.
func (a Agent) Clone() Agent {
	out := a
	if a.KnowledgeBase != nil {
		out.KnowledgeBase = make([]KnowledgeItem, len(a.KnowledgeBase))
		for i, k := range a.KnowledgeBase {
			out.KnowledgeBase[i] = k
			if k.Size != nil {
				size := *k.Size
				out.KnowledgeBase[i].Size = &size
			}
		}
	}
	if a.Tools != nil {
		out.Tools = make([]Tool, len(a.Tools))
		for i, t := range a.Tools {
			out.Tools[i] = t
			out.Tools[i].Parameters = append([]ToolParameter(nil), t.Parameters...)
		}
	}
	return out
}

// HasAgent reports whether agentID participates in the conversation.
func (c Conversation) HasAgent(agentID string) bool {
	for _, id := range c.Participants.AgentIDs {
		if id == agentID {
			return true
		}
	}
	return false
}

// FindMessage returns the index of the message with the given id, or -1.
func (c Conversation) FindMessage(messageID string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
