// Package ingest orchestrates the scan-extract-classify-index pipeline
// across a bounded worker pool.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/bookbrain-go/internal/config"
	"github.com/raphaelgruber/bookbrain-go/internal/extractor"
	"github.com/raphaelgruber/bookbrain-go/internal/metrics"
	"github.com/raphaelgruber/bookbrain-go/internal/models"
	"github.com/raphaelgruber/bookbrain-go/internal/ocr"
	"github.com/raphaelgruber/bookbrain-go/internal/scanner"
)

const (
	// classifyTextLimit bounds the text handed to the classifier.
	classifyTextLimit = 5000
	// embedTextLimit bounds the text portion of the embedding input.
	embedTextLimit = 2000
	// summaryLimit bounds the stored summary excerpt.
	summaryLimit = 500
)

// ErrRunInProgress is returned when a run is triggered while another
// run is still active.
var ErrRunInProgress = errors.New("ingest run already in progress")

// RecordStore is the subset of store operations the pipeline needs.
type RecordStore interface {
	ExistsByPath(ctx context.Context, path string) (bool, error)
	Create(ctx context.Context, in models.BookInput) (*models.Book, error)
	UpdateVectorID(ctx context.Context, id string, vectorID int64) error
}

// VectorIndex receives embedding inserts for persisted books.
type VectorIndex interface {
	Add(ctx context.Context, text, ownerID string) (int64, error)
}

// Classifier assigns a category to extracted book content.
type Classifier interface {
	Classify(ctx context.Context, title, text, author string) models.Classification
}

// Pipeline drives ebook files through extraction, recognition,
// classification, persistence and vector indexing.
type Pipeline struct {
	scanner    *scanner.Scanner
	extractor  *extractor.Extractor
	ocr        *ocr.Processor
	classifier Classifier
	store      RecordStore
	index      VectorIndex
	collector  *metrics.Collector
	logger     *slog.Logger

	coversDir     string
	maxTextLength int
	workers       int

	running atomic.Bool
	status  atomic.Pointer[Status]
}

// New creates an ingest pipeline wired to the given collaborators.
func New(
	cfg config.Config,
	classifier Classifier,
	store RecordStore,
	index VectorIndex,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Pipeline {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{
		scanner:       scanner.New(cfg.SupportedFormats),
		extractor:     extractor.New(cfg.MaxTextLength),
		ocr:           ocr.NewProcessor(cfg),
		classifier:    classifier,
		store:         store,
		index:         index,
		collector:     collector,
		logger:        logger,
		coversDir:     cfg.CoversDir,
		maxTextLength: cfg.MaxTextLength,
		workers:       workers,
	}
}

// Start triggers a run in the background and returns its status handle.
// Returns ErrRunInProgress if a run is already active.
func (p *Pipeline) Start(ctx context.Context, directories []string) (*Status, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}

	st := newStatus()
	p.status.Store(st)
	go p.run(ctx, st, directories)
	return st, nil
}

// Run executes a run synchronously. Returns ErrRunInProgress if a run
// is already active.
func (p *Pipeline) Run(ctx context.Context, directories []string) (*Status, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}

	st := newStatus()
	p.status.Store(st)
	p.run(ctx, st, directories)
	return st, nil
}

// Status returns a snapshot of the most recent run. Before the first
// run it reports an idle, empty state.
func (p *Pipeline) Status() StatusSnapshot {
	st := p.status.Load()
	if st == nil {
		return StatusSnapshot{Errors: []string{}}
	}
	return st.Snapshot()
}

// outcome carries the result of one file through the ordered drain.
type outcome struct {
	path      string
	skipped   bool
	input     *models.BookInput
	embedText string
	err       error
}

// run drives a single ingest pass. The status object is frozen and the
// single-flight guard released on every exit path.
func (p *Pipeline) run(ctx context.Context, st *Status, directories []string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("ingest run aborted", "run_id", st.RunID(), "panic", r)
			st.appendError(fmt.Sprintf("run aborted: %v", r))
		}
		st.finish()
		p.running.Store(false)
	}()

	scanStart := time.Now()
	files := p.scanner.Scan(directories)
	p.collector.RecordTiming(metrics.OpScan, time.Since(scanStart))
	st.setTotal(len(files))

	if len(files) == 0 {
		p.logger.Info("no ebook files found", "run_id", st.RunID())
		return
	}
	p.logger.Info("starting ingest run", "run_id", st.RunID(), "files", len(files), "workers", p.workers)

	// The dispatcher walks files in scan order, skipping known paths and
	// handing the heavy per-file work to the pool. Results are drained in
	// the same order so store writes and counters stay serialized.
	results := make(chan chan outcome, p.workers)
	go p.dispatch(ctx, st, files, results)

	for ch := range results {
		p.consume(ctx, st, <-ch)
	}

	snap := st.Snapshot()
	p.logger.Info("ingest complete",
		"run_id", snap.RunID,
		"processed", snap.ProcessedFiles,
		"failed", snap.FailedFiles,
	)
}

func (p *Pipeline) dispatch(ctx context.Context, st *Status, files []string, results chan<- chan outcome) {
	defer close(results)

	sem := make(chan struct{}, p.workers)
	for idx, path := range files {
		// Cooperative cancellation between files
		if err := ctx.Err(); err != nil {
			st.appendError(fmt.Sprintf("run cancelled: %v", err))
			return
		}

		st.beginFile(filepath.Base(path), idx, len(files))

		ready := func(out outcome) {
			ch := make(chan outcome, 1)
			ch <- out
			results <- ch
		}

		exists, err := p.store.ExistsByPath(ctx, path)
		if err != nil {
			ready(outcome{path: path, err: fmt.Errorf("lookup: %w", err)})
			continue
		}
		if exists {
			p.logger.Info("skipping already processed", "file", filepath.Base(path))
			ready(outcome{path: path, skipped: true})
			continue
		}

		ch := make(chan outcome, 1)
		results <- ch
		sem <- struct{}{}
		go func(path string) {
			defer func() { <-sem }()
			ch <- p.processFile(ctx, path)
		}(path)
	}
}

// consume applies one file outcome: the serialized store write, vector
// insert and status update.
func (p *Pipeline) consume(ctx context.Context, st *Status, out outcome) {
	name := filepath.Base(out.path)

	switch {
	case out.skipped:
		st.incProcessed()

	case out.err != nil:
		p.logger.Error("processing failed", "file", name, "error", out.err)
		st.recordFailure(name, out.err)

	default:
		storeStart := time.Now()
		book, err := p.store.Create(ctx, *out.input)
		p.collector.RecordTiming(metrics.OpStoreWrite, time.Since(storeStart))
		if err != nil {
			p.logger.Error("saving book failed", "file", name, "error", err)
			st.recordFailure(name, err)
			return
		}

		// Indexing failures degrade to an unindexed record, matching the
		// record-first ordering: the book is persisted either way.
		if id, err := models.RecordIDString(book.ID); err != nil {
			p.logger.Warn("vector indexing skipped", "file", name, "error", err)
		} else {
			embedStart := time.Now()
			vectorID, err := p.index.Add(ctx, out.embedText, id)
			p.collector.RecordTiming(metrics.OpEmbed, time.Since(embedStart))
			if err != nil {
				p.logger.Warn("vector indexing failed", "file", name, "error", err)
			} else if err := p.store.UpdateVectorID(ctx, id, vectorID); err != nil {
				p.logger.Warn("linking vector id failed", "file", name, "error", err)
			}
		}

		st.incProcessed()
		p.logger.Info("saved", "file", name, "title", out.input.Title)
	}
}

// processFile runs the blocking per-file work: extraction, scanned-page
// recovery, cover write and classification. Runs on the worker pool.
func (p *Pipeline) processFile(ctx context.Context, path string) outcome {
	name := filepath.Base(path)
	p.logger.Info("processing", "file", name)

	extractStart := time.Now()
	meta := p.extractor.Extract(path)
	p.collector.RecordTiming(metrics.OpExtract, time.Since(extractStart))

	info, err := os.Stat(path)
	if err != nil {
		return outcome{path: path, err: fmt.Errorf("stat: %w", err)}
	}
	hash, err := extractor.FileHash(path)
	if err != nil {
		return outcome{path: path, err: fmt.Errorf("hash: %w", err)}
	}

	ocrProcessed := false
	if p.ocr.Enabled() &&
		extractor.FormatForPath(path) == extractor.FormatPDF &&
		meta.PageCount != nil &&
		p.ocr.IsScanned(path, meta.TextContent, *meta.PageCount) {
		ocrStart := time.Now()
		text, err := p.ocr.Recognize(path, p.maxTextLength)
		p.collector.RecordTiming(metrics.OpOCR, time.Since(ocrStart))
		switch {
		case err != nil:
			// Keep the original (possibly empty) text
			p.logger.Warn("text recognition failed", "file", name, "error", err)
		case text != "":
			meta.TextContent = text
			ocrProcessed = true
		}
	}

	var coverPath *string
	if len(meta.CoverImage) > 0 {
		target := filepath.Join(p.coversDir, hash+meta.CoverExt)
		if err := os.WriteFile(target, meta.CoverImage, 0o644); err != nil {
			p.logger.Warn("writing cover failed", "file", name, "error", err)
		} else {
			coverPath = &target
		}
	}

	classifyStart := time.Now()
	cls := p.classifier.Classify(ctx, meta.Title, truncateRunes(meta.TextContent, classifyTextLimit), meta.Author)
	p.collector.RecordTiming(metrics.OpClassify, time.Since(classifyStart))

	input := &models.BookInput{
		Title:            meta.Title,
		Author:           meta.Author,
		ISBN:             meta.ISBN,
		Publisher:        meta.Publisher,
		Year:             meta.Year,
		Language:         meta.Language,
		Description:      meta.Description,
		Format:           strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		FilePath:         path,
		FileSize:         info.Size(),
		FileHash:         &hash,
		CoverPath:        coverPath,
		Category:         cls.Category,
		Subcategory:      cls.Subcategory,
		Summary:          models.StrPtr(summarize(meta.TextContent)),
		TextContent:      models.StrPtr(meta.TextContent),
		PageCount:        meta.PageCount,
		OCRProcessed:     ocrProcessed,
		ProcessingStatus: models.StatusDone,
	}

	return outcome{
		path:      path,
		input:     input,
		embedText: EmbeddingInput(meta.Title, meta.Author, meta.TextContent),
	}
}

// EmbeddingInput combines title, author and a bounded text excerpt into
// the string handed to the vector index.
func EmbeddingInput(title, author, text string) string {
	return strings.TrimSpace(title + " " + author + " " + truncateRunes(text, embedTextLimit))
}

// summarize returns a short excerpt of the text with an ellipsis when cut.
func summarize(text string) string {
	r := []rune(text)
	if len(r) <= summaryLimit {
		return text
	}
	return string(r[:summaryLimit]) + "..."
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
