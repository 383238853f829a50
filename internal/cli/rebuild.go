package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/bookbrain-go/internal/ingest"
	"github.com/raphaelgruber/bookbrain-go/internal/models"
	"github.com/raphaelgruber/bookbrain-go/internal/vectorindex"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from stored books",
	Long: `Re-embed every completed book and write a fresh index to disk.
Use this after changing the embedding model, or when the index files
have diverged and refuse to load.`,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	idx, err := getIndex()
	if err != nil {
		return err
	}

	books, err := dbClient.AllForReindex(ctx)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Println("No books to index.")
		return nil
	}

	fmt.Printf("Re-embedding %d books...\n", len(books))

	entries := make([]vectorindex.Entry, 0, len(books))
	ids := make([]string, 0, len(books))
	for _, book := range books {
		id, err := models.RecordIDString(book.ID)
		if err != nil {
			continue
		}
		text := ""
		if book.TextContent != nil {
			text = *book.TextContent
		}
		entries = append(entries, vectorindex.Entry{
			Text:    ingest.EmbeddingInput(book.Title, book.Author, text),
			OwnerID: id,
		})
		ids = append(ids, id)
	}

	if err := idx.Rebuild(ctx, entries); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	// Vector ids are assigned sequentially in input order
	for i, id := range ids {
		if err := dbClient.UpdateVectorID(ctx, id, int64(i)); err != nil {
			fmt.Printf("%s linking %s: %v\n", defaultTheme.errorStyle().Render("!"), id, err)
		}
	}

	fmt.Println(defaultTheme.successStyle().Render(fmt.Sprintf("✓ Index rebuilt with %d vectors", idx.Size())))
	return nil
}
