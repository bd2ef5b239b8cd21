package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/catalog"
)

// CatalogOptions holds flags shared by the catalog subcommands.
type CatalogOptions struct {
	*RootOptions
	Catalog string
}

// CatalogEntry is the JSON payload of one catalog row.
type CatalogEntry struct {
	RuleID      string `json:"rule_id,omitempty"`
	Title       string `json:"title"`
	Path        string `json:"path"`
	Dialect     string `json:"dialect"`
	QueryIndex  int    `json:"query_index"`
	Query       string `json:"query"`
	ConvertedAt string `json:"converted_at"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the conversion catalog",
	}
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "catalog.db", "catalog database path")

	cmd.AddCommand(newCatalogListCommand(opts))
	cmd.AddCommand(newCatalogRuleCommand(opts))

	return cmd
}

func newCatalogListCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List recorded conversions, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogQuery(opts, cmd, "")
		},
	}
}

func newCatalogRuleCommand(opts *CatalogOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rule <rule-id>",
		Short:         "Show recorded conversions of one rule",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogQuery(opts, cmd, args[0])
		},
	}
}

func runCatalogQuery(opts *CatalogOptions, cmd *cobra.Command, ruleID string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cat, err := catalog.Open(opts.Catalog)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}
	defer cat.Close()

	var entries []catalog.Entry
	if ruleID == "" {
		entries, err = cat.List(cmd.Context())
	} else {
		entries, err = cat.ByRule(cmd.Context(), ruleID)
	}
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeCatalog, err.Error(), nil)
	}

	payload := make([]CatalogEntry, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, CatalogEntry{
			RuleID:      e.RuleID,
			Title:       e.RuleTitle,
			Path:        e.RulePath,
			Dialect:     e.Dialect,
			QueryIndex:  e.QueryIndex,
			Query:       e.Query,
			ConvertedAt: e.ConvertedAt.Format("2006-01-02 15:04:05"),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(payload)
	}
	if len(payload) == 0 {
		fmt.Fprintln(formatter.Writer, "No recorded conversions")
		return nil
	}
	for _, e := range payload {
		fmt.Fprintf(formatter.Writer, "%s  %s [%d]\n    %s\n", e.ConvertedAt, e.Title, e.QueryIndex, e.Query)
	}
	return nil
}
