package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearYes bool

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Confirm removal of all unpinned entries")
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every unpinned entry",
	Long: `Remove every unpinned clipboard entry and its archived image.
Pinned entries are kept.

A running daemon does not notice the removal until its next refresh; stop
it first or use DELETE /api/entries instead.

Examples:
  clipflow clear --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to clear history without --yes")
		}

		s, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.Store.ClearAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", n)
		return nil
	},
}
