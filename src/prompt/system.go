package prompt

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/schema"
)

const closingSection = `Respond in a conversational and helpful manner. If you're asked about something that's not in your knowledge, be honest about it. When answering, use markdown formatting where appropriate.`

const knowledgeLead = "Here is some relevant information to help with your response:"

// personaSection introduces the agent.
func personaSection(agent model.Agent) string {
	intro := "You are " + agent.Name + "."
	if d := strings.TrimSpace(agent.Description); d != "" {
		intro += " " + d
	}
	if strings.TrimSpace(agent.Instructions) == "" {
		return intro
	}
	return intro + "\n\nInstructions: " + agent.Instructions
}

// toolsSection lists the active tools with their parameter schemas.
func toolsSection(tools []model.Tool) string {
	var toolStrings []string
	for _, tool := range tools {
		if !tool.IsActive {
			continue
		}
		parts := []string{
			fmt.Sprintf("Tool: %s", tool.Name),
			fmt.Sprintf("Description: %s", tool.Description),
			"Input Schema:",
		}
		if len(tool.Parameters) > 0 {
			parts = append(parts, schema.FormatForPrompt(schema.FromToolParameters(tool.Parameters), 1))
		} else {
			parts = append(parts, "  # No parameters")
		}
		toolStrings = append(toolStrings, strings.Join(parts, "\n"))
	}
	if len(toolStrings) == 0 {
		return ""
	}
	return "You have access to the following tools:\n\n" + strings.Join(toolStrings, "\n\n---\n\n")
}

func knowledgeBaseSection(items []model.KnowledgeItem) string {
	if len(items) == 0 {
		return ""
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, "You have access to the following knowledge base:")
	for _, item := range items {
		lines = append(lines, "- "+item.Name)
	}
	return strings.Join(lines, "\n")
}

// SystemPrompt assembles the persona system prompt for an agent.
func SystemPrompt(agent model.Agent) string {
	sections := []string{
		personaSection(agent),
		toolsSection(agent.Tools),
		knowledgeBaseSection(agent.KnowledgeBase),
		closingSection,
	}

	result := ""
	for _, section := range sections {
		if section == "" {
			continue
		}
		if result != "" {
			result += "\n\n"
		}
		result += section
	}
	return result
}

// environmentInfo describes the host the conversation runs on.
func environmentInfo(now time.Time) string {
	return fmt.Sprintf(`Here is useful information about the environment you are running in:
<env>
Platform: %s
OS Version: %s
Today's date: %s
</env>`, runtime.GOOS, osVersion(), now.Format("2006-01-02"))
}

// osVersion returns detailed OS version information
func osVersion() string {
	info, err := host.Info()
	if err == nil {
		if info.PlatformVersion != "" {
			return fmt.Sprintf("%s %s", info.Platform, info.PlatformVersion)
		}
		return info.Platform
	}
	return runtime.GOOS
}

// KnowledgeContext renders selected knowledge for inclusion in a message.
func KnowledgeContext(items []NamedText) string {
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		blocks = append(blocks, fmt.Sprintf("--- %s ---\n%s\n---\n", it.Name, it.Text))
	}
	return strings.Join(blocks, "\n")
}

// NamedText is a resolved knowledge item.
type NamedText struct {
	Name string
	Text string
}

// WithKnowledge appends the knowledge context to a message.
func WithKnowledge(message string, items []NamedText) string {
	if len(items) == 0 {
		return message
	}
	return message + "\n\n" + knowledgeLead + "\n" + KnowledgeContext(items)
}
