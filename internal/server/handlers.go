// Package server provides the REST API over the book library.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/raphaelgruber/bookbrain-go/internal/config"
	"github.com/raphaelgruber/bookbrain-go/internal/ingest"
	"github.com/raphaelgruber/bookbrain-go/internal/metrics"
	"github.com/raphaelgruber/bookbrain-go/internal/models"
	"github.com/raphaelgruber/bookbrain-go/internal/store"
	"github.com/raphaelgruber/bookbrain-go/internal/vectorindex"
)

// BookStore is the subset of store operations the API needs.
type BookStore interface {
	Get(ctx context.Context, id string) (*models.Book, error)
	List(ctx context.Context, opts store.ListOptions) ([]models.Book, int, error)
	Update(ctx context.Context, id string, upd models.BookUpdate) (*models.Book, error)
	Delete(ctx context.Context, id string) (*models.Book, error)
	Categories(ctx context.Context) ([]store.CategoryCount, error)
	GetStats(ctx context.Context) (*store.Stats, error)
}

// SearchIndex answers semantic queries over indexed books.
type SearchIndex interface {
	Search(ctx context.Context, query string, topK int) ([]vectorindex.Result, error)
	Size() int
}

// Ingestor triggers and reports on ingest runs.
type Ingestor interface {
	Start(ctx context.Context, directories []string) (*ingest.Status, error)
	Status() ingest.StatusSnapshot
}

// Handler holds the dependencies for HTTP handlers.
type Handler struct {
	cfg       config.Config
	store     BookStore
	index     SearchIndex
	ingestor  Ingestor
	collector *metrics.Collector
}

// NewHandler creates a Handler wired to the given collaborators.
func NewHandler(cfg config.Config, books BookStore, index SearchIndex, ingestor Ingestor, collector *metrics.Collector) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     books,
		index:     index,
		ingestor:  ingestor,
		collector: collector,
	}
}

// BookListResponse is the paginated book listing payload.
type BookListResponse struct {
	Books      []models.Book `json:"books"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// SearchResult pairs a book with its similarity score.
type SearchResult struct {
	Book  models.Book `json:"book"`
	Score float32     `json:"score"`
}

// SearchResponse is the semantic search payload.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// IngestRequest optionally overrides the configured ebook directories.
type IngestRequest struct {
	Directories []string `json:"directories"`
}

// StatsResponse combines library aggregates with runtime metrics.
type StatsResponse struct {
	Library     *store.Stats     `json:"library"`
	VectorCount int              `json:"vector_count"`
	Runtime     metrics.Snapshot `json:"runtime"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// HandleListBooks handles GET /api/books.
func (h *Handler) HandleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := queryInt(q.Get("page"), 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(q.Get("page_size"), 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	opts := store.ListOptions{
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("sort_order") != "asc",
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	}
	if v := q.Get("category"); v != "" {
		opts.Category = &v
	}
	if v := q.Get("format"); v != "" {
		opts.Format = &v
	}
	if v := q.Get("q"); v != "" {
		opts.Search = &v
	}

	books, total, err := h.store.List(r.Context(), opts)
	if err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}
	sendJSON(w, http.StatusOK, BookListResponse{
		Books:      books,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// HandleGetBook handles GET /api/books/{id}.
func (h *Handler) HandleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "Book not found")
			return
		}
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, book)
}

// HandleUpdateBook handles PUT /api/books/{id}.
func (h *Handler) HandleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var upd models.BookUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	book, err := h.store.Update(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "Book not found")
			return
		}
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, book)
}

// HandleDeleteBook handles DELETE /api/books/{id}.
// Removes the record only, never the file on disk.
func (h *Handler) HandleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			sendError(w, http.StatusNotFound, "Book not found")
			return
		}
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, messageResponse{Message: "Book deleted", ID: id})
}

// HandleGetCover handles GET /api/books/{id}/cover.
func (h *Handler) HandleGetCover(w http.ResponseWriter, r *http.Request) {
	book, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil || book.CoverPath == nil {
		sendError(w, http.StatusNotFound, "Cover not found")
		return
	}
	if _, err := os.Stat(*book.CoverPath); err != nil {
		sendError(w, http.StatusNotFound, "Cover file not found")
		return
	}
	http.ServeFile(w, r, *book.CoverPath)
}

// HandleListCategories handles GET /api/categories.
func (h *Handler) HandleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, categories)
}

// HandleSearch handles GET /api/search.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		sendError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}
	limit := queryInt(r.URL.Query().Get("limit"), 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	start := time.Now()
	hits, err := h.index.Search(r.Context(), query, limit)
	h.collector.RecordTiming(metrics.OpSearch, time.Since(start))
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		book, err := h.store.Get(r.Context(), hit.OwnerID)
		if err != nil {
			// Dangling index entry, e.g. a book deleted after indexing
			continue
		}
		results = append(results, SearchResult{Book: *book, Score: hit.Score})
	}

	sendJSON(w, http.StatusOK, SearchResponse{
		Query:   query,
		Results: results,
		Total:   len(results),
	})
}

// HandleTriggerIngest handles POST /api/ingest. Rejects with 409 while a
// run is active.
func (h *Handler) HandleTriggerIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			sendError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
			return
		}
	}

	directories := req.Directories
	if len(directories) == 0 {
		directories = h.cfg.EbookDirectories()
	}
	if len(directories) == 0 {
		sendError(w, http.StatusBadRequest, "No ebook directories configured")
		return
	}
	for _, dir := range directories {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			sendError(w, http.StatusBadRequest, "Directory not found: "+dir)
			return
		}
	}

	// The run outlives the request context
	st, err := h.ingestor.Start(context.Background(), directories)
	if err != nil {
		if errors.Is(err, ingest.ErrRunInProgress) {
			sendError(w, http.StatusConflict, "Ingest is already running")
			return
		}
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, st.Snapshot())
}

// HandleIngestStatus handles GET /api/ingest/status.
func (h *Handler) HandleIngestStatus(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, h.ingestor.Status())
}

// HandleStats handles GET /api/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	library, err := h.store.GetStats(r.Context())
	if err != nil {
		sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sendJSON(w, http.StatusOK, StatsResponse{
		Library:     library,
		VectorCount: h.index.Size(),
		Runtime:     h.collector.Snapshot(),
	})
}

// HandleHealth handles GET /health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"vector_count": h.index.Size(),
	})
}

func queryInt(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// sendJSON sends a JSON response with the given status code.
func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func sendError(w http.ResponseWriter, status int, msg string) {
	sendJSON(w, status, errorResponse{Error: msg})
}
