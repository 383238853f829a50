package classify

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/raphaelgruber/bookbrain-go/internal/models"
)

const (
	// minRuleScore is the minimum capped keyword score for a rule match.
	minRuleScore = 3
	// keywordCap bounds the influence of a single repeated keyword.
	keywordCap = 5
	// minSimilarity is the floor below which embedding matches are rejected.
	minSimilarity = 0.3
	// embedTextLimit caps how much of the combined text is embedded.
	embedTextLimit = 1000
)

// Embedder produces fixed-length vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Classifier assigns books to the taxonomy: keyword rules first, embedding
// similarity against flattened labels as fallback, "Uncategorized" default.
type Classifier struct {
	taxonomy Taxonomy
	embedder Embedder

	// Label embeddings are computed once on first use.
	mu        sync.Mutex
	labels    []string
	labelVecs [][]float32
}

// New creates a classifier. The embedder may be nil, in which case only the
// rule tier and the default apply.
func New(taxonomy Taxonomy, embedder Embedder) *Classifier {
	if len(taxonomy) == 0 {
		taxonomy = DefaultTaxonomy()
	}
	return &Classifier{taxonomy: taxonomy, embedder: embedder}
}

// Classify categorizes a book from its title, text and author.
func (c *Classifier) Classify(ctx context.Context, title, text, author string) models.Classification {
	combined := title + " " + author + " " + text

	if result := c.ruleClassify(combined); result != nil {
		slog.Info("rule-classified",
			"title", truncate(title, 50),
			"category", result.Category,
			"subcategory", deref(result.Subcategory))
		return *result
	}

	if result := c.embeddingClassify(ctx, combined); result != nil {
		slog.Info("embedding-classified",
			"title", truncate(title, 50),
			"category", result.Category,
			"subcategory", deref(result.Subcategory),
			"confidence", deref(result.Confidence))
		return *result
	}

	return models.Classification{Category: "Uncategorized", Source: models.SourceDefault}
}

// ruleClassify scores every (category, subcategory) by capped keyword
// occurrence counts. Ties keep the first entry in taxonomy order because the
// comparison is strictly greater-than.
func (c *Classifier) ruleClassify(text string) *models.Classification {
	lower := strings.ToLower(text)

	var best *models.Classification
	bestScore := 0

	for _, category := range c.taxonomy {
		for _, sub := range category.Subcategories {
			score := 0
			for _, kw := range sub.Keywords {
				count := strings.Count(lower, kw)
				if count > keywordCap {
					count = keywordCap
				}
				score += count
			}
			if score > bestScore {
				bestScore = score
				sc := sub.Name
				best = &models.Classification{
					Category:    category.Name,
					Subcategory: &sc,
					Source:      models.SourceRule,
				}
			}
		}
	}

	if bestScore >= minRuleScore {
		return best
	}
	return nil
}

// embeddingClassify compares the text embedding against every flattened
// label embedding. Any failure is treated as "no match", never propagated.
func (c *Classifier) embeddingClassify(ctx context.Context, text string) *models.Classification {
	if c.embedder == nil {
		return nil
	}

	labels, labelVecs, err := c.labelEmbeddings(ctx)
	if err != nil {
		slog.Warn("embedding classification unavailable", "error", err)
		return nil
	}

	vec, err := c.embedder.Embed(ctx, truncate(text, embedTextLimit))
	if err != nil {
		slog.Warn("embedding classification failed", "error", err)
		return nil
	}

	bestIdx := -1
	bestScore := math.Inf(-1)
	for i, lv := range labelVecs {
		score := cosineSimilarity(vec, lv)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestScore < minSimilarity {
		return nil
	}

	category, subcategory, _ := strings.Cut(labels[bestIdx], " / ")
	result := &models.Classification{
		Category:   category,
		Confidence: &bestScore,
		Source:     models.SourceEmbedding,
	}
	if subcategory != "" {
		result.Subcategory = &subcategory
	}
	return result
}

// labelEmbeddings encodes the flattened taxonomy labels, caching the result.
func (c *Classifier) labelEmbeddings(ctx context.Context) ([]string, [][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.labelVecs != nil {
		return c.labels, c.labelVecs, nil
	}

	labels := c.taxonomy.Labels()
	slog.Info("encoding taxonomy labels", "count", len(labels))
	vecs, err := c.embedder.EmbedBatch(ctx, labels)
	if err != nil {
		return nil, nil, err
	}

	c.labels = labels
	c.labelVecs = vecs
	return labels, vecs, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
