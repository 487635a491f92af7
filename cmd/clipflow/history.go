package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/clipflow/internal/classifier"
	"github.com/MrSnakeDoc/clipflow/internal/domain"
)

var (
	// history command flags
	historyLimit int
	historyJSON  bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of entries to show (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output entries as JSON")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded clipboard entries",
	Long: `List recorded clipboard entries, pinned entries first, then newest first.

Examples:
  # Show the 20 most recent entries
  clipflow history

  # Show everything as JSON
  clipflow history -n 0 --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.Store.GetRecent(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	if historyJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	return printEntries(cmd.OutOrStdout(), entries)
}

// printEntries renders entries as an aligned table.
func printEntries(out io.Writer, entries []*domain.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(out, "No clipboard history.")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPINNED\tCOPIED\tPREVIEW")
	for _, e := range entries {
		pinned := ""
		if e.IsPinned {
			pinned = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.ContentType,
			pinned,
			e.CopiedAt.Local().Format(time.DateTime),
			classifier.GeneratePreview(e.Preview, 60))
	}
	return w.Flush()
}
