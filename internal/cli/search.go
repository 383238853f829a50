package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search across the library",
	Long: `Search indexed books by meaning rather than exact words.

Examples:
  bookbrain search "distributed systems"
  bookbrain search "dragons and politics" --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	ctx := context.Background()

	idx, err := getIndex()
	if err != nil {
		return err
	}

	hits, err := idx.Search(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(hits))
	rank := 0
	for _, hit := range hits {
		book, err := dbClient.Get(ctx, hit.OwnerID)
		if err != nil {
			continue
		}
		rank++
		fmt.Printf("%d. %s — %s  %s\n", rank, book.Title, book.Author,
			defaultTheme.hintStyle().Render(fmt.Sprintf("(%.3f)", hit.Score)))
		category := book.Category
		if book.Subcategory != nil {
			category += " / " + *book.Subcategory
		}
		fmt.Printf("   %s\n", category)
		if verbose {
			fmt.Printf("   %s\n", book.FilePath)
		}
		fmt.Println()
	}

	if rank == 0 {
		fmt.Println("No results found.")
	}
	return nil
}
