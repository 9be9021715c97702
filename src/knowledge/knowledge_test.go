package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/parley/src/model"
)

func testAgent() model.Agent {
	return model.Agent{
		ID:   "agent-1",
		Name: "Ada",
		KnowledgeBase: []model.KnowledgeItem{
			{ID: "k1", Name: "Refund policy", Content: "Customers may request a refund within thirty days of purchase.", Type: model.KnowledgeText},
			{ID: "k2", Name: "Shipping", Content: "Orders ship from the Rotterdam warehouse within two business days.", Type: model.KnowledgeText},
			{ID: "k3", Name: "Warranty", Content: "Hardware carries a two year warranty covering manufacturing defects.", Type: model.KnowledgeText},
			{ID: "k4", Name: "manual.pdf", Content: "/files/manual.pdf", Type: model.KnowledgeFile},
		},
	}
}

func ids(items []model.KnowledgeItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestPolicyByName(t *testing.T) {
	tests := []struct {
		name    string
		want    any
		wantErr bool
	}{
		{"", All{}, false},
		{"all", All{}, false},
		{"NONE", None{}, false},
		{"keyword", Keyword{TopK: 2}, false},
		{"semantic", &Semantic{}, false},
		{"magic", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PolicyByName(tt.name, 2)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}

func TestAllAndNone(t *testing.T) {
	ctx := context.Background()
	a := testAgent()

	all, err := All{}.Select(ctx, a, "anything")
	require.NoError(t, err)
	assert.Equal(t, a.KnowledgeBase, all)
	all[0].Name = "changed"
	assert.Equal(t, "Refund policy", a.KnowledgeBase[0].Name)

	none, err := None{}.Select(ctx, a, "refund")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestKeyword(t *testing.T) {
	ctx := context.Background()
	a := testAgent()

	tests := []struct {
		name  string
		query string
		topK  int
		want  []string
	}{
		{"single hit", "How do I get a refund?", 3, []string{"k1"}},
		{"ranked by overlap", "two year warranty", 3, []string{"k3", "k2"}},
		{"limited", "two year warranty", 1, []string{"k3"}},
		{"file matched by name", "manual", 3, []string{"k4"}},
		{"file content path not searched", "files", 3, []string{}},
		{"stop words only", "what is the", 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Keyword{TopK: tt.topK}.Select(ctx, a, tt.query)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"refund", "policy", "2024"}, Terms("The refund-policy for 2024, refund!"))
	assert.Empty(t, Terms("a an is"))
}

func TestHashEmbeddingNormalized(t *testing.T) {
	for _, text := range []string{"", "refund policy", "a much longer text about shipping and warranty terms"} {
		vec, err := HashEmbedding(context.Background(), text)
		require.NoError(t, err)
		require.Len(t, vec, HashDimensions)
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, sum, 1e-4, text)
	}
}

func TestSemantic(t *testing.T) {
	ctx := context.Background()
	a := testAgent()
	s := NewSemantic(SemanticConfig{TopK: 2})

	got, err := s.Select(ctx, a, "refund within thirty days")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "k1", got[0].ID)

	got, err = s.Select(ctx, a, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	a.KnowledgeBase = append(a.KnowledgeBase, model.KnowledgeItem{
		ID: "k5", Name: "Returns address", Content: "Send returns to the Utrecht depot.", Type: model.KnowledgeText,
	})
	got, err = s.Select(ctx, a, "utrecht depot returns")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "k5", got[0].ID)

	got, err = s.Select(ctx, model.Agent{ID: "empty"}, "anything")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFromHTML(t *testing.T) {
	page := `<html><head><title>Pricing</title><style>p{}</style></head>
<body><h1>Plans</h1><p>Basic costs <b>5 EUR</b>.</p><script>var x;</script></body></html>`

	text, err := FromHTML("", page, FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Pricing", text.Name)
	assert.Equal(t, model.KnowledgeText, text.Type)
	assert.Contains(t, text.Content, "Plans")
	assert.Contains(t, text.Content, "Basic costs 5 EUR.")
	assert.NotContains(t, text.Content, "var x")

	mdItem, err := FromHTML("plans", page, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "plans", mdItem.Name)
	assert.Contains(t, mdItem.Content, "# Plans")
	assert.Contains(t, mdItem.Content, "**5 EUR**")

	_, err = FromHTML("x", page, "pdf")
	assert.Error(t, err)
}

func TestFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><head><title>Docs</title></head><body><p>Hello docs</p></body></html>`))
		case "/notes.txt":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("plain notes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	item, err := FromURL(ctx, srv.Client(), srv.URL+"/doc", FormatText)
	require.NoError(t, err)
	assert.Equal(t, "Docs", item.Name)
	assert.Contains(t, item.Content, "Hello docs")

	item, err = FromURL(ctx, srv.Client(), srv.URL+"/notes.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "plain notes", item.Content)
	assert.Contains(t, item.Name, "/notes.txt")

	_, err = FromURL(ctx, srv.Client(), srv.URL+"/missing", "")
	assert.Error(t, err)

	_, err = FromURL(ctx, nil, "ftp://example.com", "")
	assert.Error(t, err)
}

func TestFromFileAndResolve(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/kb/notes.md", []byte("# Notes\nremember the milk"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/kb/blob.bin", []byte{0x00, 0x01}, 0o644))
	require.NoError(t, fs.MkdirAll("/kb/dir", 0o755))

	in, err := FromFile(fs, "/kb/notes.md")
	require.NoError(t, err)
	assert.Equal(t, "notes.md", in.Name)
	assert.Equal(t, "/kb/notes.md", in.Content)
	assert.Equal(t, model.KnowledgeFile, in.Type)
	require.NotNil(t, in.Size)
	assert.Equal(t, int64(25), *in.Size)

	_, err = FromFile(fs, "/kb/dir")
	assert.Error(t, err)
	_, err = FromFile(fs, "/kb/missing")
	assert.Error(t, err)

	item := model.KnowledgeItem{ID: "k", Name: in.Name, Content: in.Content, Type: in.Type}
	text, err := Resolve(fs, item, 7)
	require.NoError(t, err)
	assert.Equal(t, "# Notes", text)

	_, err = Resolve(fs, model.KnowledgeItem{Content: "/kb/blob.bin", Type: model.KnowledgeFile}, 0)
	assert.ErrorIs(t, err, ErrNotText)

	text, err = Resolve(nil, model.KnowledgeItem{Content: "inline", Type: model.KnowledgeText}, 0)
	require.NoError(t, err)
	assert.Equal(t, "inline", text)
}
