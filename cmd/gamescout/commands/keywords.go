package commands

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/holos-run/gamescout/internal/igdb"
	"github.com/spf13/cobra"
)

var keywordLimit int

// NewKeywordsCmd creates the keywords command.
func NewKeywordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keywords",
		Short: "Query the keyword catalog",
	}

	cmd.PersistentFlags().IntVar(&keywordLimit, "limit", 0,
		"Maximum number of keywords to print (search defaults to the configured search limit)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the complete keyword catalog",
		Args:  cobra.NoArgs,
		RunE:  runKeywordsList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Print keywords whose name contains query, ignoring case",
		Args:  cobra.ExactArgs(1),
		RunE:  runKeywordsSearch,
	})

	return cmd
}

func runKeywordsList(cmd *cobra.Command, args []string) error {
	svc, err := newServices(slog.Default())
	if err != nil {
		return err
	}

	snap, err := svc.keywords.GetAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load keywords: %w", err)
	}

	items := snap.Items()
	if keywordLimit > 0 && len(items) > keywordLimit {
		items = items[:keywordLimit]
	}
	return printKeywords(cmd.OutOrStdout(), items)
}

func runKeywordsSearch(cmd *cobra.Command, args []string) error {
	svc, err := newServices(slog.Default())
	if err != nil {
		return err
	}

	limit := keywordLimit
	if limit <= 0 {
		limit = svc.config.Keywords.SearchLimit
	}

	items, err := svc.keywords.Search(cmd.Context(), args[0], limit)
	if err != nil {
		return fmt.Errorf("failed to search keywords: %w", err)
	}
	return printKeywords(cmd.OutOrStdout(), items)
}

func printKeywords(out io.Writer, items []igdb.CatalogItem) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSLUG")
	for _, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\n", item.ID, item.Name, item.Slug)
	}
	return w.Flush()
}
