package conversation

import (
	"log/slog"

	"github.com/elee1766/parley/src/model"
)

// Notification is a user-visible event, such as a failed agent reply.
type Notification struct {
	Title          string
	Message        string
	ConversationID string
	AgentID        string
	Err            error
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs n at error level.
func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error(n.Title, "message", n.Message, "conversation_id", n.ConversationID, "agent_id", n.AgentID)
}

// Callbacks holds optional hooks into store activity.
type Callbacks struct {
	// OnMessage is called after a message is appended.
	OnMessage func(msg model.Message)

	// OnAgentStart is called before an agent reply is generated.
	OnAgentStart func(agent model.Agent)
}

// Message calls the OnMessage callback if it's set.
func (c *Callbacks) Message(msg model.Message) {
	if c == nil || c.OnMessage == nil {
		return
	}
	c.OnMessage(msg.Clone())
}

// AgentStart calls the OnAgentStart callback if it's set.
func (c *Callbacks) AgentStart(agent model.Agent) {
	if c == nil || c.OnAgentStart == nil {
		return
	}
	c.OnAgentStart(agent)
}
