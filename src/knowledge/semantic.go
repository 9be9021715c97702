package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/elee1766/parley/src/model"
)

// HashDimensions is the vector size of HashEmbedding.
const HashDimensions = 256

// DefaultMinSimilarity is the similarity a match must exceed when none is
// configured.
const DefaultMinSimilarity = 0.05

// HashEmbedding is a deterministic bag-of-words embedding: every term is
// hashed into one of HashDimensions buckets and the result is normalized.
// It needs no network access.
func HashEmbedding(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, HashDimensions)
	// bias bucket keeps the vector non-zero for empty text
	vec[0] = 0.001
	for _, term := range Terms(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		sum := h.Sum32()
		bucket := 1 + int(sum%(HashDimensions-1))
		if sum&(1<<31) != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// SemanticConfig configures a Semantic policy.
type SemanticConfig struct {
	TopK      int
	Embedding chromem.EmbeddingFunc
	// MinSimilarity drops weaker matches. Zero means DefaultMinSimilarity.
	MinSimilarity float32
	Logger        *slog.Logger
}

// Semantic ranks items by embedding similarity using an in-memory vector
// collection per agent. Collections are rebuilt when the knowledge base
// changes.
type Semantic struct {
	topK    int
	embed   chromem.EmbeddingFunc
	minSim  float32
	logger  *slog.Logger
	db      *chromem.DB
	mu      sync.Mutex
	indexed map[string]string // agent id -> knowledge base fingerprint
}

// NewSemantic creates a Semantic policy.
func NewSemantic(cfg SemanticConfig) *Semantic {
	if cfg.Embedding == nil {
		cfg.Embedding = HashEmbedding
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MinSimilarity == 0 {
		cfg.MinSimilarity = DefaultMinSimilarity
	}
	return &Semantic{
		topK:    topK(cfg.TopK),
		embed:   cfg.Embedding,
		minSim:  cfg.MinSimilarity,
		logger:  cfg.Logger.With("component", "knowledge_semantic"),
		db:      chromem.NewDB(),
		indexed: make(map[string]string),
	}
}

func collectionName(agentID string) string {
	return "agent_" + agentID
}

func fingerprint(items []model.KnowledgeItem) string {
	h := fnv.New64a()
	for _, it := range items {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", it.ID, it.Name, it.Content)
	}
	return fmt.Sprintf("%x", h.Sum64())
}

func documentText(item model.KnowledgeItem) string {
	if item.Type == model.KnowledgeFile {
		return item.Name
	}
	return item.Name + "\n" + item.Content
}

func (s *Semantic) collection(ctx context.Context, agent model.Agent) (*chromem.Collection, error) {
	name := collectionName(agent.ID)
	fp := fingerprint(agent.KnowledgeBase)
	if s.indexed[agent.ID] == fp {
		if col := s.db.GetCollection(name, s.embed); col != nil {
			return col, nil
		}
	}

	if err := s.db.DeleteCollection(name); err != nil {
		return nil, fmt.Errorf("reset collection: %w", err)
	}
	col, err := s.db.CreateCollection(name, map[string]string{"agent": agent.ID}, s.embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	for _, item := range agent.KnowledgeBase {
		doc := chromem.Document{
			ID:      item.ID,
			Content: documentText(item),
			Metadata: map[string]string{
				"name": item.Name,
				"type": string(item.Type),
			},
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("index knowledge item %s: %w", item.ID, err)
		}
	}
	s.indexed[agent.ID] = fp
	s.logger.Debug("indexed knowledge base", "agent_id", agent.ID, "items", len(agent.KnowledgeBase))
	return col, nil
}

// Select returns up to topK items most similar to query, indexing the
// agent's knowledge base first when it changed.
func (s *Semantic) Select(ctx context.Context, agent model.Agent, query string) ([]model.KnowledgeItem, error) {
	if len(agent.KnowledgeBase) == 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection(ctx, agent)
	if err != nil {
		return nil, err
	}
	n := min(s.topK, col.Count())
	if n == 0 {
		return nil, nil
	}
	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })

	byID := make(map[string]model.KnowledgeItem, len(agent.KnowledgeBase))
	for _, item := range agent.KnowledgeBase {
		byID[item.ID] = item
	}
	out := make([]model.KnowledgeItem, 0, len(results))
	for _, r := range results {
		if r.Similarity <= s.minSim {
			continue
		}
		if item, ok := byID[r.ID]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}
