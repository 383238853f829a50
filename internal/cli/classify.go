package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/bookbrain-go/internal/extractor"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify a single ebook without storing it",
	Long: `Extract metadata from a file and print the category it would be
assigned, without touching the database or the index. Useful for
tuning the taxonomy.

Example:
  bookbrain classify ~/Books/some-novel.epub`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx := context.Background()

	classifier, err := getClassifier()
	if err != nil {
		return err
	}

	meta := extractor.New(cfg.MaxTextLength).Extract(path)
	result := classifier.Classify(ctx, meta.Title, meta.TextContent, meta.Author)

	fmt.Printf("Title:    %s\n", meta.Title)
	fmt.Printf("Author:   %s\n", meta.Author)
	fmt.Printf("Category: %s\n", defaultTheme.successStyle().Render(result.Category))
	if result.Subcategory != nil {
		fmt.Printf("Subcategory: %s\n", *result.Subcategory)
	}
	fmt.Printf("Source:   %s", result.Source)
	if result.Confidence != nil {
		fmt.Printf(" (confidence %.3f)", *result.Confidence)
	}
	fmt.Println()

	return nil
}
