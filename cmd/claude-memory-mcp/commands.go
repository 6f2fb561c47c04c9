package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/conversation"
	"github.com/adamkwhite/claude-memory-mcp-sub001/internal/sanitize"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var title, date, file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a conversation",
		Long: `Store a conversation read from --file or stdin.

Examples:
  claude-memory-mcp add --title "Design review" --file notes.md
  pbpaste | claude-memory-mcp add --title "Pairing" --date 2025-06-02T14:30:00`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var content []byte
			var err error
			if file == "" || file == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("failed to read content: %w", err)
			}

			rt, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if date == "" {
				date = time.Now().Format("2006-01-02T15:04:05")
			}
			id, err := rt.store.Add(cmd.Context(), title, string(content), date)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "conversation title (required)")
	cmd.Flags().StringVar(&date, "date", "", "ISO-8601 date (default now)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read content from file instead of stdin")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newWeekCmd(opts *rootOptions) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "List conversations dated within a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := sanitize.ValidateDate(start)
			if err != nil {
				return err
			}
			to, err := sanitize.ValidateDateRangeEnd(end)
			if err != nil {
				return err
			}

			rt, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			return printJSON(cmd, rt.store.GetRange(cmd.Context(), from, to))
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "range start date (required)")
	cmd.Flags().StringVar(&end, "end", "", "range end date, inclusive (required)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search titles and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !cmd.Flags().Changed("limit") {
				limit = rt.cfg.Search.DefaultLimit
			}
			matches, err := rt.store.Search(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, matches)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	return cmd
}

func newRebuildCmd(opts *rootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate week index shards from the records",
		Long: `Regenerate week index shards from the conversation records on disk.

With --date only the week containing that date is rebuilt; otherwise every
week with records or an existing shard is.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if date == "" {
				result, err := rt.store.Rebuild(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			}

			ts, err := sanitize.ValidateDate(date)
			if err != nil {
				return err
			}
			week := conversation.WeekOf(ts)
			n, err := rt.store.RebuildWeek(cmd.Context(), week)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", week, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "rebuild only the week containing this date")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
