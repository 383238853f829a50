package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/bookbrain-go/internal/models"
)

// CategoryCount represents a category with its book count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// FormatCount represents a file format with its book count.
type FormatCount struct {
	Format string `json:"format"`
	Count  int    `json:"count"`
}

// Stats aggregates library-wide counters.
type Stats struct {
	TotalBooks   int             `json:"total_books"`
	TotalBytes   int64           `json:"total_bytes"`
	OCRProcessed int             `json:"ocr_processed"`
	ByFormat     []FormatCount   `json:"by_format"`
	ByCategory   []CategoryCount `json:"by_category"`
}

// ListOptions controls filtering, sorting and pagination for List.
type ListOptions struct {
	Category    *string
	Subcategory *string
	Format      *string
	Status      *string
	Search      *string // case-insensitive substring match on title/author
	SortBy      string  // one of title, author, category, created, updated, year
	SortDesc    bool
	Limit       int
	Offset      int
}

// sortFields whitelists ORDER BY columns. Values are interpolated into SQL
// so anything outside this map is rejected.
var sortFields = map[string]string{
	"title":    "title",
	"author":   "author",
	"category": "category",
	"created":  "created",
	"updated":  "updated",
	"year":     "year",
}

// Create inserts a new book record. Returns ErrAlreadyExists when a record
// with the same file path is already stored.
func (c *Client) Create(ctx context.Context, in models.BookInput) (*models.Book, error) {
	results, err := surrealdb.Query[[]models.Book](ctx, c.db, `
		CREATE book CONTENT $book RETURN AFTER
	`, map[string]any{"book": in})
	if err != nil {
		return nil, fmt.Errorf("create book: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create book: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// Get retrieves a book by ID. Returns ErrNotFound if it does not exist.
func (c *Client) Get(ctx context.Context, id string) (*models.Book, error) {
	results, err := surrealdb.Query[[]models.Book](ctx, c.db, `
		SELECT * FROM type::record("book", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// GetByPath retrieves a book by its file path.
// Returns ErrNotFound if no record references the path.
func (c *Client) GetByPath(ctx context.Context, path string) (*models.Book, error) {
	results, err := surrealdb.Query[[]models.Book](ctx, c.db, `
		SELECT * FROM book WHERE file_path = $path LIMIT 1
	`, map[string]any{"path": path})
	if err != nil {
		return nil, fmt.Errorf("get book by path: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// ExistsByPath reports whether a book record references the given file path.
func (c *Client) ExistsByPath(ctx context.Context, path string) (bool, error) {
	results, err := surrealdb.Query[[]models.Book](ctx, c.db, `
		SELECT id FROM book WHERE file_path = $path LIMIT 1
	`, map[string]any{"path": path})
	if err != nil {
		return false, fmt.Errorf("exists by path: %w", err)
	}

	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// List returns books matching the options plus the total match count
// (ignoring pagination).
func (c *Client) List(ctx context.Context, opts ListOptions) ([]models.Book, int, error) {
	where, vars := listFilter(opts)

	sortBy, ok := sortFields[opts.SortBy]
	if opts.SortBy == "" {
		sortBy = "created"
	} else if !ok {
		return nil, 0, fmt.Errorf("list books: unsupported sort field %q", opts.SortBy)
	}
	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	vars["limit"] = limit
	vars["offset"] = opts.Offset

	sql := fmt.Sprintf(`
		SELECT * OMIT text_content FROM book %s ORDER BY %s %s LIMIT $limit START $offset
	`, where, sortBy, direction)

	results, err := surrealdb.Query[[]models.Book](ctx, c.db, sql, vars)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}

	countSQL := fmt.Sprintf(`SELECT VALUE count() FROM book %s GROUP ALL`, where)
	counts, err := surrealdb.Query[[]int](ctx, c.db, countSQL, vars)
	if err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	total := 0
	if counts != nil && len(*counts) > 0 && len((*counts)[0].Result) > 0 {
		total = (*counts)[0].Result[0]
	}

	if results == nil || len(*results) == 0 {
		return []models.Book{}, total, nil
	}
	return (*results)[0].Result, total, nil
}

// listFilter builds the WHERE clause and query vars for List.
func listFilter(opts ListOptions) (string, map[string]any) {
	clauses := []string{}
	vars := map[string]any{}

	if opts.Category != nil {
		clauses = append(clauses, "category = $category")
		vars["category"] = *opts.Category
	}
	if opts.Subcategory != nil {
		clauses = append(clauses, "subcategory = $subcategory")
		vars["subcategory"] = *opts.Subcategory
	}
	if opts.Format != nil {
		clauses = append(clauses, "format = $format")
		vars["format"] = *opts.Format
	}
	if opts.Status != nil {
		clauses = append(clauses, "processing_status = $status")
		vars["status"] = *opts.Status
	}
	if opts.Search != nil && *opts.Search != "" {
		clauses = append(clauses,
			"(string::lowercase(title) CONTAINS $search OR string::lowercase(author) CONTAINS $search)")
		vars["search"] = strings.ToLower(*opts.Search)
	}

	if len(clauses) == 0 {
		return "", vars
	}
	return "WHERE " + strings.Join(clauses, " AND "), vars
}

// Update merges the non-nil fields of upd into the book record.
// Returns ErrNotFound if the record does not exist.
func (c *Client) Update(ctx context.Context, id string, upd models.BookUpdate) (*models.Book, error) {
	sets := []string{"updated = time::now()"}
	vars := map[string]any{"id": id}

	set := func(field string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%s", field, field))
		vars[field] = value
	}

	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Author != nil {
		set("author", *upd.Author)
	}
	if upd.ISBN != nil {
		set("isbn", *upd.ISBN)
	}
	if upd.Publisher != nil {
		set("publisher", *upd.Publisher)
	}
	if upd.Year != nil {
		set("year", *upd.Year)
	}
	if upd.Language != nil {
		set("language", *upd.Language)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Category != nil {
		set("category", *upd.Category)
	}
	if upd.Subcategory != nil {
		set("subcategory", *upd.Subcategory)
	}
	if upd.Tags != nil {
		set("tags", upd.Tags)
	}
	if upd.Summary != nil {
		set("summary", *upd.Summary)
	}

	sql := fmt.Sprintf(`
		UPDATE type::record("book", $id) SET %s RETURN AFTER
	`, strings.Join(sets, ", "))

	results, err := surrealdb.Query[[]models.Book](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// UpdateVectorID records the vector index slot assigned to a book.
func (c *Client) UpdateVectorID(ctx context.Context, id string, vectorID int64) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("book", $id) SET
			vector_id = $vector_id,
			updated = time::now()
	`, map[string]any{"id": id, "vector_id": vectorID})
	if err != nil {
		return fmt.Errorf("update vector id: %w", err)
	}
	return nil
}

// SetStatus transitions a book's processing status. procErr is stored for
// the error status and cleared otherwise.
func (c *Client) SetStatus(ctx context.Context, id string, status string, procErr *string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("book", $id) SET
			processing_status = $status,
			processing_error = $error,
			updated = time::now()
	`, map[string]any{"id": id, "status": status, "error": procErr})
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// Delete removes a book record. Returns ErrNotFound if it does not exist.
func (c *Client) Delete(ctx context.Context, id string) (*models.Book, error) {
	book, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	_, err = surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("book", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("delete book: %w", err)
	}
	return book, nil
}

// Categories returns category counts ordered by count descending.
func (c *Client) Categories(ctx context.Context) ([]CategoryCount, error) {
	results, err := surrealdb.Query[[]CategoryCount](ctx, c.db, `
		SELECT category, count() AS count FROM book GROUP BY category ORDER BY count DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []CategoryCount{}, nil
	}
	return (*results)[0].Result, nil
}

// GetStats returns library-wide aggregate counters.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	type totals struct {
		Count int   `json:"count"`
		Bytes int64 `json:"bytes"`
		OCR   int   `json:"ocr"`
	}
	totalResults, err := surrealdb.Query[[]totals](ctx, c.db, `
		SELECT count() AS count,
			math::sum(file_size) AS bytes,
			count(ocr_processed = true) AS ocr
		FROM book GROUP ALL
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("library stats: %w", err)
	}

	stats := &Stats{ByFormat: []FormatCount{}, ByCategory: []CategoryCount{}}
	if totalResults != nil && len(*totalResults) > 0 && len((*totalResults)[0].Result) > 0 {
		t := (*totalResults)[0].Result[0]
		stats.TotalBooks = t.Count
		stats.TotalBytes = t.Bytes
		stats.OCRProcessed = t.OCR
	}

	formatResults, err := surrealdb.Query[[]FormatCount](ctx, c.db, `
		SELECT format, count() AS count FROM book GROUP BY format ORDER BY count DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("format stats: %w", err)
	}
	if formatResults != nil && len(*formatResults) > 0 {
		stats.ByFormat = (*formatResults)[0].Result
	}

	categories, err := c.Categories(ctx)
	if err != nil {
		return nil, err
	}
	stats.ByCategory = categories

	return stats, nil
}

// AllForReindex returns every completed book with the fields needed to
// rebuild the vector index, in creation order.
func (c *Client) AllForReindex(ctx context.Context) ([]models.Book, error) {
	results, err := surrealdb.Query[[]models.Book](ctx, c.db, `
		SELECT id, title, author, file_path, text_content, vector_id FROM book
		WHERE processing_status = $status
		ORDER BY created ASC
	`, map[string]any{"status": models.StatusDone})
	if err != nil {
		return nil, fmt.Errorf("books for reindex: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Book{}, nil
	}
	return (*results)[0].Result, nil
}
