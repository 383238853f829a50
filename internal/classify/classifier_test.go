package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/bookbrain-go/internal/models"
)

// fakeEmbedder returns canned vectors keyed by input text prefix.
type fakeEmbedder struct {
	vectors map[string][]float32
	fallback []float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	for prefix, v := range f.vectors {
		if strings.HasPrefix(text, prefix) {
			return v, nil
		}
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(context.Background(), t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func TestClassifyRuleTier(t *testing.T) {
	c := New(nil, nil)

	got := c.Classify(context.Background(),
		"Fluent Python", "python python django flask data", "Luciano Ramalho")

	assert.Equal(t, "Programming", got.Category)
	require.NotNil(t, got.Subcategory)
	assert.Equal(t, "Python", *got.Subcategory)
	assert.Equal(t, models.SourceRule, got.Source)
	assert.Nil(t, got.Confidence)
}

func TestClassifyRuleTierKeywordCap(t *testing.T) {
	c := New(nil, nil)

	// "golang" repeated many times counts at most 5, still >= minimum.
	text := strings.Repeat("golang ", 50)
	got := c.Classify(context.Background(), "", text, "")
	assert.Equal(t, "Programming", got.Category)
	require.NotNil(t, got.Subcategory)
	assert.Equal(t, "Go", *got.Subcategory)
}

func TestClassifyRuleTierBelowThreshold(t *testing.T) {
	c := New(nil, nil)

	// Two keyword hits only: below the minimum rule score, no embedder.
	got := c.Classify(context.Background(), "", "golang golang", "")
	assert.Equal(t, "Uncategorized", got.Category)
	assert.Nil(t, got.Subcategory)
	assert.Equal(t, models.SourceDefault, got.Source)
}

func TestClassifyRuleTierTieBreakFirstWins(t *testing.T) {
	taxonomy := Taxonomy{
		{Name: "A", Subcategories: []Subcategory{{Name: "first", Keywords: []string{"shared"}}}},
		{Name: "B", Subcategories: []Subcategory{{Name: "second", Keywords: []string{"shared"}}}},
	}
	c := New(taxonomy, nil)

	got := c.Classify(context.Background(), "", "shared shared shared", "")
	assert.Equal(t, "A", got.Category)
	require.NotNil(t, got.Subcategory)
	assert.Equal(t, "first", *got.Subcategory)
}

func TestClassifyEmbeddingFallback(t *testing.T) {
	taxonomy := Taxonomy{
		{Name: "Science", Subcategories: []Subcategory{
			{Name: "Physics", Keywords: []string{"thermodynamics"}},
			{Name: "Biology", Keywords: []string{"genetics"}},
		}},
	}
	emb := &fakeEmbedder{
		vectors: map[string][]float32{
			"Science / Physics": {1, 0},
			"Science / Biology": {0, 1},
		},
		fallback: []float32{0.9, 0.1}, // the book text: close to Physics
	}
	c := New(taxonomy, emb)

	got := c.Classify(context.Background(), "Strange Particles", "a story of the universe", "")
	assert.Equal(t, "Science", got.Category)
	require.NotNil(t, got.Subcategory)
	assert.Equal(t, "Physics", *got.Subcategory)
	assert.Equal(t, models.SourceEmbedding, got.Source)
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.993, *got.Confidence, 0.01)
}

func TestClassifyEmbeddingBelowSimilarityFloor(t *testing.T) {
	taxonomy := Taxonomy{
		{Name: "Science", Subcategories: []Subcategory{{Name: "Physics", Keywords: []string{"x"}}}},
	}
	emb := &fakeEmbedder{
		vectors:  map[string][]float32{"Science / Physics": {1, 0}},
		fallback: []float32{0.1, 0.995}, // nearly orthogonal to every label
	}
	c := New(taxonomy, emb)

	got := c.Classify(context.Background(), "unrelated", "nothing matches", "")
	assert.Equal(t, "Uncategorized", got.Category)
	assert.Equal(t, models.SourceDefault, got.Source)
}

func TestClassifyEmbeddingErrorFallsThrough(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("model unavailable")}
	c := New(nil, emb)

	got := c.Classify(context.Background(), "x", "y", "z")
	assert.Equal(t, "Uncategorized", got.Category)
	assert.Equal(t, models.SourceDefault, got.Source)
}

func TestTaxonomyLabels(t *testing.T) {
	taxonomy := Taxonomy{
		{Name: "A", Subcategories: []Subcategory{{Name: "x"}, {Name: "y"}}},
		{Name: "B", Subcategories: []Subcategory{{Name: "z"}}},
	}
	assert.Equal(t, []string{"A / x", "A / y", "B / z"}, taxonomy.Labels())
}

func TestLoadTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	content := `
- name: Cooking
  subcategories:
    - name: Baking
      keywords: [bread, sourdough, pastry]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	taxonomy, err := LoadTaxonomy(path)
	require.NoError(t, err)
	require.Len(t, taxonomy, 1)
	assert.Equal(t, "Cooking", taxonomy[0].Name)
	require.Len(t, taxonomy[0].Subcategories, 1)
	assert.Equal(t, []string{"bread", "sourdough", "pastry"}, taxonomy[0].Subcategories[0].Keywords)
}

func TestLoadTaxonomyMissingFile(t *testing.T) {
	_, err := LoadTaxonomy("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
}
