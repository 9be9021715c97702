package main

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/x/ansi"

	"github.com/elee1766/parley/src/model"
	"github.com/elee1766/parley/src/theme"
)

var fence = regexp.MustCompile("(?s)```([\\w+-]*)\\n(.*?)```")

// renderTranscript writes a conversation in reading order.
func renderTranscript(w io.Writer, conv model.Conversation, names func(id string) string) {
	th := theme.CurrentTheme
	fmt.Fprintln(w, th.Title().Render(conv.Title))
	if len(conv.Participants.AgentIDs) > 0 {
		parts := make([]string, 0, len(conv.Participants.AgentIDs))
		for _, id := range conv.Participants.AgentIDs {
			parts = append(parts, names(id))
		}
		fmt.Fprintln(w, th.Muted().Render("with "+strings.Join(parts, ", ")))
	}
	fmt.Fprintln(w)
	for _, m := range conv.Messages {
		renderMessage(w, m, names)
	}
}

func renderMessage(w io.Writer, m model.Message, names func(id string) string) {
	th := theme.CurrentTheme
	header := th.Sender(m.Sender.Type).Render(m.Sender.Name)
	meta := []string{time.UnixMilli(m.Timestamp).Format("15:04"), shortID(m.ID)}
	if m.IsTask {
		meta = append(meta, "task")
	}
	if len(m.AssignedTo) > 0 {
		to := make([]string, 0, len(m.AssignedTo))
		for _, id := range m.AssignedTo {
			to = append(to, "@"+names(id))
		}
		meta = append(meta, "to "+strings.Join(to, " "))
	}
	fmt.Fprintf(w, "%s %s\n", header, th.Muted().Render(strings.Join(meta, " · ")))

	body := highlightCode(m.Content, th.CodeStyle)
	if m.FileAttachment != nil {
		body += "\n" + th.Muted().Render(fmt.Sprintf("[%s, %d bytes]", m.FileAttachment.Name, m.FileAttachment.Size))
	}
	fmt.Fprintln(w, th.Body().Render(body))
	fmt.Fprintln(w)
}

// highlightCode colors fenced code blocks. Blocks that fail to highlight are
// left as written.
func highlightCode(content, style string) string {
	return fence.ReplaceAllStringFunc(content, func(block string) string {
		sub := fence.FindStringSubmatch(block)
		lang := sub[1]
		if lang == "" {
			lang = "plaintext"
		}
		var b strings.Builder
		if err := quick.Highlight(&b, sub[2], lang, "terminal256", style); err != nil {
			return block
		}
		return b.String()
	})
}

// truncate shortens s to width terminal cells, keeping ANSI sequences intact.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return ansi.Truncate(s, width, "…")
}

// editDiff shows what an edit changed as a unified diff.
func editDiff(before, after string) string {
	return udiff.Unified("before", "after", ensureNewline(before), ensureNewline(after))
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
