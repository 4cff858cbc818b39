// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2txt/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List and inspect past conversion batches",
	Long: `History reads the SQLite database that convert records each batch in.
Use list to see recent batches and show to see the items of one batch.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent batches, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	batches, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), batches)
	}
	formatBatchList(cmd.OutOrStdout(), batches)
	return nil
}

func formatBatchList(w io.Writer, batches []history.Batch) {
	if len(batches) == 0 {
		fmt.Fprintln(w, "No batches recorded.")
		return
	}

	fmt.Fprintf(w, "%-36s  %-20s  %-9s  %-7s  %s\n", "ID", "Started", "Backend", "Result", "Output")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, b := range batches {
		fmt.Fprintf(w, "%-36s  %-20s  %-9s  %-7s  %s\n",
			b.ID,
			b.StartedAt.Local().Format(time.DateTime),
			b.Backend,
			fmt.Sprintf("%d/%d", b.Summary.Succeeded, b.Summary.Total),
			b.OutputDir)
	}
	fmt.Fprintf(w, "\n%d batches\n", len(batches))
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <batch-id>",
	Short: "Show the items of one batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), b)
	}
	formatBatch(cmd.OutOrStdout(), b)
	return nil
}

func formatBatch(w io.Writer, b *history.Batch) {
	fmt.Fprintf(w, "Batch:    %s\n", b.ID)
	fmt.Fprintf(w, "Started:  %s\n", b.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Duration: %s\n", b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "Backend:  %s\n", b.Backend)
	fmt.Fprintf(w, "Output:   %s\n\n", b.OutputDir)

	for _, item := range b.Items {
		if item.Succeeded() {
			fmt.Fprintf(w, "[%d/%d] converted %s (%d pages)\n", item.Index, b.Summary.Total, item.InputPath, item.Pages)
			continue
		}
		fmt.Fprintf(w, "[%d/%d] failed %s: %s\n", item.Index, b.Summary.Total, item.InputPath, item.Error)
	}
	fmt.Fprintf(w, "\n%d of %d succeeded\n", b.Summary.Succeeded, b.Summary.Total)
}

// --- shared helpers ---

func openHistory() (*history.Store, error) {
	path := viper.GetString("history")
	if path == "" {
		return nil, fmt.Errorf("no history database configured: set --history or history in pdf2txt.yaml")
	}
	return history.NewStore(path)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	historyCmd.PersistentFlags().Bool("json", false, "output as JSON")
	historyListCmd.Flags().Int("limit", 20, "maximum batches to list")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)

	rootCmd.AddCommand(historyCmd)
}
