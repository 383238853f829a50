// Package models defines data structures for the BookBrain library.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Book represents a stored ebook record.
type Book struct {
	ID surrealmodels.RecordID `json:"id"`

	// Basic metadata
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	ISBN        *string `json:"isbn,omitempty"`
	Publisher   *string `json:"publisher,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Language    *string `json:"language,omitempty"`
	Description *string `json:"description,omitempty"`

	// File info
	Format   string  `json:"format"`
	FilePath string  `json:"file_path"`
	FileSize int64   `json:"file_size"`
	FileHash *string `json:"file_hash,omitempty"`

	// Cover
	CoverPath *string `json:"cover_path,omitempty"`

	// Classification
	Category    string   `json:"category"`
	Subcategory *string  `json:"subcategory,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Content
	Summary     *string `json:"summary,omitempty"`
	TextContent *string `json:"text_content,omitempty"`
	PageCount   *int    `json:"page_count,omitempty"`

	// Vector search
	VectorID *int64 `json:"vector_id,omitempty"`

	// Processing status
	OCRProcessed     bool    `json:"ocr_processed"`
	ProcessingStatus string  `json:"processing_status"`
	ProcessingError  *string `json:"processing_error,omitempty"`

	// Timestamps
	Created time.Time `json:"created,omitempty"`
	Updated time.Time `json:"updated,omitempty"`
}

// BookInput holds the fields for creating a book record.
type BookInput struct {
	Title            string   `json:"title"`
	Author           string   `json:"author"`
	ISBN             *string  `json:"isbn,omitempty"`
	Publisher        *string  `json:"publisher,omitempty"`
	Year             *int     `json:"year,omitempty"`
	Language         *string  `json:"language,omitempty"`
	Description      *string  `json:"description,omitempty"`
	Format           string   `json:"format"`
	FilePath         string   `json:"file_path"`
	FileSize         int64    `json:"file_size"`
	FileHash         *string  `json:"file_hash,omitempty"`
	CoverPath        *string  `json:"cover_path,omitempty"`
	Category         string   `json:"category"`
	Subcategory      *string  `json:"subcategory,omitempty"`
	Tags             []string `json:"tags,omitempty"`
	Summary          *string  `json:"summary,omitempty"`
	TextContent      *string  `json:"text_content,omitempty"`
	PageCount        *int     `json:"page_count,omitempty"`
	OCRProcessed     bool     `json:"ocr_processed"`
	ProcessingStatus string   `json:"processing_status"`
}

// BookUpdate holds optional fields for updating a book record.
type BookUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Author      *string  `json:"author,omitempty"`
	ISBN        *string  `json:"isbn,omitempty"`
	Publisher   *string  `json:"publisher,omitempty"`
	Year        *int     `json:"year,omitempty"`
	Language    *string  `json:"language,omitempty"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Subcategory *string  `json:"subcategory,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Summary     *string  `json:"summary,omitempty"`
}

// Processing status values for Book.ProcessingStatus.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)
