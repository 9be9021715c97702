package agents

import (
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/elee1766/parley/src/model"
)

// Resolve maps @mention tokens to agent ids. A token matches an agent id,
// then an agent name case-insensitively, then the best fuzzy name match.
// Tokens that match nothing are returned in unresolved.
func (r *Registry) Resolve(tokens []string) (ids []string, unresolved []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.agents))
	for i, a := range r.agents {
		names[i] = a.Name
	}

	add := func(id string) {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	for _, tok := range tokens {
		tok = strings.TrimSpace(strings.TrimPrefix(tok, "@"))
		if tok == "" {
			continue
		}
		if i := r.index(tok); i >= 0 {
			add(tok)
			continue
		}
		if i := slices.IndexFunc(r.agents, func(a model.Agent) bool { return strings.EqualFold(a.Name, tok) }); i >= 0 {
			add(r.agents[i].ID)
			continue
		}
		matches := fuzzy.Find(tok, names)
		if len(matches) == 0 {
			unresolved = append(unresolved, tok)
			continue
		}
		add(r.agents[matches[0].Index].ID)
	}
	return ids, unresolved
}
