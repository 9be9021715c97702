// Package knowledge decides which knowledge items accompany a prompt and
// turns external documents into knowledge items.
package knowledge

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/elee1766/parley/src/model"
)

// Policy names accepted by PolicyByName.
const (
	PolicyAll      = "all"
	PolicyNone     = "none"
	PolicyKeyword  = "keyword"
	PolicySemantic = "semantic"
)

// DefaultTopK bounds keyword and semantic selections when no limit is set.
const DefaultTopK = 3

// Policy selects the knowledge items relevant to a query.
type Policy interface {
	Select(ctx context.Context, agent model.Agent, query string) ([]model.KnowledgeItem, error)
}

// PolicyByName returns the named policy.
func PolicyByName(name string, topK int) (Policy, error) {
	switch strings.ToLower(name) {
	case "", PolicyAll:
		return All{}, nil
	case PolicyNone:
		return None{}, nil
	case PolicyKeyword:
		return Keyword{TopK: topK}, nil
	case PolicySemantic:
		return NewSemantic(SemanticConfig{TopK: topK}), nil
	default:
		return nil, fmt.Errorf("unknown knowledge policy %q", name)
	}
}

// All returns the whole knowledge base.
type All struct{}

// Select returns a copy of every item.
func (All) Select(_ context.Context, agent model.Agent, _ string) ([]model.KnowledgeItem, error) {
	return slices.Clone(agent.KnowledgeBase), nil
}

// None never attaches knowledge.
type None struct{}

// Select returns no items.
func (None) Select(context.Context, model.Agent, string) ([]model.KnowledgeItem, error) {
	return nil, nil
}

// Keyword ranks items by how many distinct query terms they contain.
type Keyword struct {
	TopK int
}

// Select returns up to TopK items that share a term with query, best first.
func (k Keyword) Select(_ context.Context, agent model.Agent, query string) ([]model.KnowledgeItem, error) {
	terms := Terms(query)
	if len(terms) == 0 || len(agent.KnowledgeBase) == 0 {
		return nil, nil
	}

	type scored struct {
		item  model.KnowledgeItem
		score int
	}
	var hits []scored
	for _, item := range agent.KnowledgeBase {
		text := item.Name
		if item.Type != model.KnowledgeFile {
			text += " " + item.Content
		}
		have := make(map[string]struct{})
		for _, t := range Terms(text) {
			have[t] = struct{}{}
		}
		score := 0
		for _, t := range terms {
			if _, ok := have[t]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{item: item, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	limit := topK(k.TopK)
	out := make([]model.KnowledgeItem, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		out = append(out, hits[i].item)
	}
	return out, nil
}

func topK(k int) int {
	if k <= 0 {
		return DefaultTopK
	}
	return k
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {},
	"with": {}, "this": {}, "that": {}, "from": {}, "what": {}, "how": {},
	"can": {}, "was": {}, "has": {}, "have": {}, "about": {}, "your": {},
}

// Terms splits text into distinct lowercase words of three or more letters,
// dropping common stop words. Order of first appearance is kept.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
