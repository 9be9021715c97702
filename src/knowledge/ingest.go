package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/afero"

	"github.com/elee1766/parley/src/model"
)

// Formats understood by FromHTML and FromURL.
const (
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// MaxFetchSize caps the body read by FromURL.
const MaxFetchSize = 5 * 1024 * 1024

// FromHTML converts an HTML document into a text knowledge item. When name
// is empty the document title is used.
func FromHTML(name, html, format string) (model.KnowledgeItemInput, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return model.KnowledgeItemInput{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if name == "" {
		name = strings.TrimSpace(doc.Find("title").First().Text())
	}

	var content string
	switch strings.ToLower(format) {
	case FormatText:
		content = extractText(doc)
	case "", FormatMarkdown:
		content, err = convertToMarkdown(html)
		if err != nil {
			content = extractText(doc)
		}
	default:
		return model.KnowledgeItemInput{}, fmt.Errorf("unknown format %q", format)
	}

	return model.KnowledgeItemInput{
		Name:    name,
		Content: content,
		Type:    model.KnowledgeText,
	}, nil
}

// extractText returns the visible text of doc, one trimmed line per line.
func extractText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	var cleaned []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}

func convertToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script", "style", "noscript")

	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	for strings.Contains(markdown, "\n\n\n") {
		markdown = strings.ReplaceAll(markdown, "\n\n\n", "\n\n")
	}
	return markdown, nil
}

// FromURL fetches a page and converts it into a knowledge item. Non-HTML
// bodies are kept verbatim. A nil client uses a 30 second timeout.
func FromURL(ctx context.Context, client *http.Client, rawURL, format string) (model.KnowledgeItemInput, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return model.KnowledgeItemInput{}, fmt.Errorf("URL must start with http:// or https://: %q", rawURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.KnowledgeItemInput{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "parley/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return model.KnowledgeItemInput{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.KnowledgeItemInput{}, fmt.Errorf("request failed with status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchSize))
	if err != nil {
		return model.KnowledgeItemInput{}, fmt.Errorf("failed to read response: %w", err)
	}

	fallbackName := u.Host + u.Path
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		item, err := FromHTML("", string(body), format)
		if err != nil {
			return model.KnowledgeItemInput{}, err
		}
		if item.Name == "" {
			item.Name = fallbackName
		}
		return item, nil
	}

	return model.KnowledgeItemInput{
		Name:    fallbackName,
		Content: string(body),
		Type:    model.KnowledgeText,
	}, nil
}

// FromFile references a stored file as a knowledge item. The content holds
// the path; the file itself is not read.
func FromFile(fs afero.Fs, p string) (model.KnowledgeItemInput, error) {
	info, err := fs.Stat(p)
	if err != nil {
		return model.KnowledgeItemInput{}, fmt.Errorf("stat knowledge file: %w", err)
	}
	if info.IsDir() {
		return model.KnowledgeItemInput{}, fmt.Errorf("%s is a directory", p)
	}
	size := info.Size()
	return model.KnowledgeItemInput{
		Name:    path.Base(p),
		Content: p,
		Type:    model.KnowledgeFile,
		Size:    &size,
	}, nil
}

// ErrNotText is returned by Resolve for files that look binary.
var ErrNotText = errors.New("knowledge file is not text")

// Resolve returns the text to show a model for item. Text items return their
// content; file items are read from fs, truncated to maxBytes when positive.
func Resolve(fs afero.Fs, item model.KnowledgeItem, maxBytes int64) (string, error) {
	if item.Type != model.KnowledgeFile {
		return item.Content, nil
	}
	if fs == nil {
		return "", fmt.Errorf("no filesystem for knowledge file %s", item.Content)
	}
	f, err := fs.Open(item.Content)
	if err != nil {
		return "", fmt.Errorf("open knowledge file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read knowledge file: %w", err)
	}
	if !isText(data) {
		return "", ErrNotText
	}
	return string(data), nil
}

func isText(data []byte) bool {
	for _, b := range data {
		if b == 0 {
			return false
		}
	}
	return true
}
