package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	stats, err := dbClient.GetStats(context.Background())
	if err != nil {
		return fmt.Errorf("library stats: %w", err)
	}

	fmt.Printf("Books:        %d\n", stats.TotalBooks)
	fmt.Printf("Total size:   %.1f MB\n", float64(stats.TotalBytes)/(1024*1024))
	fmt.Printf("OCR recovered: %d\n", stats.OCRProcessed)

	if len(stats.ByFormat) > 0 {
		fmt.Println("\nBy format:")
		for _, f := range stats.ByFormat {
			fmt.Printf("  %-6s %d\n", f.Format, f.Count)
		}
	}
	if len(stats.ByCategory) > 0 {
		fmt.Println("\nBy category:")
		for _, c := range stats.ByCategory {
			fmt.Printf("  %-24s %d\n", c.Category, c.Count)
		}
	}

	return nil
}
