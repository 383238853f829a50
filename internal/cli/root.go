// Package cli provides the command-line interface for BookBrain.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/raphaelgruber/bookbrain-go/internal/classify"
	"github.com/raphaelgruber/bookbrain-go/internal/config"
	"github.com/raphaelgruber/bookbrain-go/internal/ingest"
	"github.com/raphaelgruber/bookbrain-go/internal/llm"
	"github.com/raphaelgruber/bookbrain-go/internal/metrics"
	"github.com/raphaelgruber/bookbrain-go/internal/store"
	"github.com/raphaelgruber/bookbrain-go/internal/vectorindex"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logging and db client
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
	dbClient *store.Client

	// Lazy-initialized embedding components
	embedder  *llm.Embedder
	index     *vectorindex.Index
	collector = metrics.NewCollector()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bookbrain",
	Short: "Ebook library ingest and semantic search",
	Long: `BookBrain scans ebook directories, extracts metadata and text from
PDF and EPUB files, recovers text from scanned documents, classifies
every book into a topic taxonomy and builds a searchable vector index.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		_ = godotenv.Load()
		cfg = config.Load()
		if err := cfg.EnsureDirectories(); err != nil {
			return fmt.Errorf("create data directories: %w", err)
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, level)
		slog.SetDefault(logger)

		ctx := context.Background()
		var err error
		dbClient, err = store.NewClient(ctx, store.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// getIndex lazily initializes the embedder and vector index.
// Commands that need embeddings call this on first use.
func getIndex() (*vectorindex.Index, error) {
	if index != nil {
		return index, nil
	}

	var err error
	embedder, err = llm.NewEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	index, err = vectorindex.New(embedder, cfg.EmbedDimension, cfg.BatchSize, cfg.IndexDir)
	if err != nil {
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	return index, nil
}

// getClassifier builds the two-tier classifier, loading the taxonomy
// override when configured.
func getClassifier() (*classify.Classifier, error) {
	taxonomy := classify.DefaultTaxonomy()
	if cfg.TaxonomyFile != "" {
		var err error
		taxonomy, err = classify.LoadTaxonomy(cfg.TaxonomyFile)
		if err != nil {
			return nil, fmt.Errorf("load taxonomy: %w", err)
		}
	}

	if _, err := getIndex(); err != nil {
		return nil, err
	}
	return classify.New(taxonomy, embedder), nil
}

// getPipeline wires the full ingest pipeline.
func getPipeline() (*ingest.Pipeline, error) {
	classifier, err := getClassifier()
	if err != nil {
		return nil, err
	}
	return ingest.New(cfg, classifier, dbClient, index, collector, logger), nil
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(statsCmd)
}
