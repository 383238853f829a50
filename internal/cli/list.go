package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/bookbrain-go/internal/store"
)

var (
	listCategory string
	listFormat   string
	listQuery    string
	listLimit    int
	listOffset   int
	listSortBy   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List books in the library",
	Long: `List stored books with optional filters.

Examples:
  bookbrain list
  bookbrain list --category Technology --limit 50
  bookbrain list -q tolkien --sort title`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listCategory, "category", "c", "", "filter by category")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "", "filter by format (pdf, epub)")
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "substring match on title/author")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "max results")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "results to skip")
	listCmd.Flags().StringVar(&listSortBy, "sort", "created", "sort field (title, author, category, created, updated, year)")
}

func runList(cmd *cobra.Command, args []string) error {
	opts := store.ListOptions{
		SortBy:   listSortBy,
		SortDesc: listSortBy == "created" || listSortBy == "updated",
		Limit:    listLimit,
		Offset:   listOffset,
	}
	if listCategory != "" {
		opts.Category = &listCategory
	}
	if listFormat != "" {
		opts.Format = &listFormat
	}
	if listQuery != "" {
		opts.Search = &listQuery
	}

	books, total, err := dbClient.List(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("list books: %w", err)
	}

	if total == 0 {
		fmt.Println("No books found.")
		return nil
	}

	fmt.Printf("Showing %d of %d books:\n\n", len(books), total)
	for _, book := range books {
		marker := " "
		if book.VectorID == nil {
			marker = defaultTheme.errorStyle().Render("!")
		}
		fmt.Printf("%s %s — %s\n", marker, book.Title, book.Author)
		category := book.Category
		if book.Subcategory != nil {
			category += " / " + *book.Subcategory
		}
		fmt.Printf("  %s  %s\n", category,
			defaultTheme.hintStyle().Render(fmt.Sprintf("[%s] %s", book.Format, book.FilePath)))
	}
	fmt.Println()
	fmt.Println(defaultTheme.hintStyle().Render("! marks books missing from the vector index (run 'bookbrain rebuild')"))

	return nil
}
