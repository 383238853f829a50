package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const statusPollInterval = 500 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory...]",
	Short: "Scan directories and ingest ebook files",
	Long: `Scan the given directories (or BOOKBRAIN_EBOOK_DIRS when omitted)
for PDF and EPUB files, extract metadata and text, classify each book
and add it to the vector index. Already ingested paths are skipped.

Examples:
  bookbrain ingest ~/Books
  bookbrain ingest /mnt/library /mnt/incoming`,
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	directories := args
	if len(directories) == 0 {
		directories = cfg.EbookDirectories()
	}
	if len(directories) == 0 {
		return fmt.Errorf("no directories given and BOOKBRAIN_EBOOK_DIRS is empty")
	}
	for _, dir := range directories {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("directory not found: %s", dir)
		}
	}

	pipeline, err := getPipeline()
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := pipeline.Start(ctx, directories)
	if err != nil {
		return err
	}

	// Poll the run and render progress on one line
	for {
		snap := st.Snapshot()
		if !snap.IsRunning {
			break
		}
		current := ""
		if snap.CurrentFile != nil {
			current = *snap.CurrentFile
		}
		fmt.Printf("\r%s %5.1f%% (%d/%d) %s\033[K",
			defaultTheme.statusStyle().Render("[ingesting]"),
			snap.ProgressPercent,
			snap.ProcessedFiles+snap.FailedFiles,
			snap.TotalFiles,
			defaultTheme.hintStyle().Render(current),
		)
		time.Sleep(statusPollInterval)
	}
	fmt.Print("\r\033[K")

	// Flush the partially filled persistence batch
	if err := index.Persist(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: persisting index failed: %v\n", err)
	}

	snap := st.Snapshot()
	fmt.Println(defaultTheme.successStyle().Render("✓ Ingest complete"))
	fmt.Printf("  Files found:  %d\n", snap.TotalFiles)
	fmt.Printf("  Processed:    %d\n", snap.ProcessedFiles)
	fmt.Printf("  Failed:       %d\n", snap.FailedFiles)

	if len(snap.Errors) > 0 {
		fmt.Println(defaultTheme.errorStyle().Render(fmt.Sprintf("\nErrors (%d):", len(snap.Errors))))
		for _, e := range snap.Errors {
			fmt.Printf("  • %s\n", e)
		}
	}

	return nil
}
