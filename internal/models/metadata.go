package models

// ExtractedMeta holds metadata and text pulled out of an ebook file.
// Produced once per file by the extractor and never mutated afterwards.
// On extraction failure only Title is populated (the filename stem).
type ExtractedMeta struct {
	Title       string
	Author      string
	ISBN        *string
	Publisher   *string
	Year        *int
	Language    *string
	Description *string
	PageCount   *int
	TextContent string
	CoverImage  []byte
	CoverExt    string
}

// Classification source tags.
type ClassificationSource string

const (
	SourceRule      ClassificationSource = "rule"
	SourceEmbedding ClassificationSource = "embedding"
	SourceDefault   ClassificationSource = "default"
)

// Classification is the result of classifying a book into the taxonomy.
// Confidence is only set on the embedding-fallback path.
type Classification struct {
	Category    string               `json:"category"`
	Subcategory *string              `json:"subcategory,omitempty"`
	Confidence  *float64             `json:"confidence,omitempty"`
	Source      ClassificationSource `json:"source"`
}
