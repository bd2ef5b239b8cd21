package cli

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/catalog"
	"github.com/obviouslynotraffa/sigma-surrealql/internal/config"
	"github.com/obviouslynotraffa/sigma-surrealql/internal/convert"
	"github.com/obviouslynotraffa/sigma-surrealql/internal/rules"
	"github.com/obviouslynotraffa/sigma-surrealql/internal/surrealql"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Config     string
	Table      string
	RuleFields bool
	Output     string
	OutputDir  string
	Catalog    string
	FailFast   bool
}

// ConvertedRule is the per-rule payload of a conversion run.
type ConvertedRule struct {
	Path    string   `json:"path"`
	RuleID  string   `json:"rule_id,omitempty"`
	Title   string   `json:"title"`
	Queries []string `json:"queries"`
}

// ConvertResult is the JSON payload of a successful conversion run.
type ConvertResult struct {
	Rules []ConvertedRule `json:"rules"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <rules-path>",
		Short: "Convert Sigma rules to SurrealQL queries",
		Long: `Convert Sigma rules from a file or directory into SurrealQL SELECT
statements. Without --table the generated queries target the <TABLE_NAME>
placeholder and must be edited before execution.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "configuration file")
	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "target table of generated queries")
	cmd.Flags().BoolVar(&opts.RuleFields, "rule-fields", false, "project the rule's fields list alongside *")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write all queries to one file")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "write one .surql file per rule")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "record conversions in a catalog database")
	cmd.Flags().BoolVar(&opts.FailFast, "fail-fast", false, "stop at the first failing rule")

	return cmd
}

func runConvert(opts *ConvertOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var cfg config.Config
	if opts.Config != "" {
		var err error
		if cfg, err = config.Load(opts.Config); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
	}

	mode := rules.LoadModeCollectAll
	if opts.FailFast {
		mode = rules.LoadModeFailFast
	}
	loaded, loadErrs := rules.Load(rulesPath, mode)
	if loaded == nil {
		return fail(formatter, ExitCommandError, ErrCodeLoad, loadErrs[0].Error(), nil)
	}
	formatter.VerboseLog("Found %d rule file(s) in %s", loaded.FileCount, rulesPath)
	for _, warning := range loaded.Warnings {
		formatter.VerboseLog("Warning: %s", warning)
	}
	if len(loadErrs) > 0 {
		return fail(formatter, ExitFailure, ErrCodeLoad,
			fmt.Sprintf("%d rule(s) failed to load", len(loadErrs)), errStrings(loadErrs))
	}

	converter := newConverter(opts, cfg)

	result := &ConvertResult{}
	var convErrs []error
	for _, rule := range loaded.Rules {
		formatter.VerboseLog("Converting: %s", rule.Title)
		queries, err := converter.ConvertRule(rule.Rule)
		if err != nil {
			convErrs = append(convErrs, err)
			if opts.FailFast {
				return fail(formatter, ExitFailure, ErrCodeConvert, err.Error(), nil)
			}
			continue
		}
		result.Rules = append(result.Rules, ConvertedRule{
			Path:    rule.Path,
			RuleID:  rule.ID,
			Title:   rule.Title,
			Queries: queries,
		})
	}
	if len(convErrs) > 0 {
		return fail(formatter, ExitFailure, ErrCodeConvert,
			fmt.Sprintf("%d rule(s) failed to convert", len(convErrs)), errStrings(convErrs))
	}

	if catalogPath := firstNonEmpty(opts.Catalog, cfg.Catalog); catalogPath != "" {
		if err := recordConversions(cmd, catalogPath, loaded.Rules, result.Rules); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeCatalog, err.Error(), nil)
		}
		formatter.VerboseLog("Recorded %d rule(s) in %s", len(result.Rules), catalogPath)
	}

	if opts.OutputDir != "" {
		if err := writeQueryDir(opts.OutputDir, result.Rules); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWrite, err.Error(), nil)
		}
	}
	if opts.Output != "" {
		if err := writeQueryFile(opts.Output, result.Rules); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeWrite, err.Error(), nil)
		}
	}

	return outputConvertSuccess(formatter, result)
}

// newConverter builds the converter from flags and config; flags win.
func newConverter(opts *ConvertOptions, cfg config.Config) *convert.Converter {
	var dialectOpts []surrealql.Option
	if table := firstNonEmpty(opts.Table, cfg.Table); table != "" {
		dialectOpts = append(dialectOpts, surrealql.WithTable(table))
	}
	if opts.RuleFields || cfg.SelectRuleFields {
		dialectOpts = append(dialectOpts, surrealql.WithRuleFields())
	}
	return convert.New(surrealql.New(dialectOpts...), convert.WithFieldMappings(cfg.FieldMappings))
}

func recordConversions(cmd *cobra.Command, path string, loaded []rules.Rule, converted []ConvertedRule) error {
	cat, err := catalog.Open(path)
	if err != nil {
		return err
	}
	defer cat.Close()

	raws := make(map[string][]byte, len(loaded))
	for _, rule := range loaded {
		raws[rule.Path] = rule.Raw
	}

	for _, rule := range converted {
		sum := sha256.Sum256(raws[rule.Path])
		err := cat.Store(cmd.Context(), catalog.Record{
			RuleID:     rule.RuleID,
			RuleTitle:  rule.Title,
			RulePath:   rule.Path,
			RuleSHA256: hex.EncodeToString(sum[:]),
			Dialect:    "surrealql",
			Queries:    rule.Queries,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func writeQueryDir(dir string, converted []ConvertedRule) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, rule := range converted {
		path := filepath.Join(dir, slugify(rule.Title)+".surql")
		if err := os.WriteFile(path, []byte(strings.Join(rule.Queries, "\n")+"\n"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func writeQueryFile(path string, converted []ConvertedRule) error {
	var b strings.Builder
	for _, rule := range converted {
		for _, query := range rule.Queries {
			b.WriteString(query)
			b.WriteByte('\n')
		}
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func outputConvertSuccess(formatter *OutputFormatter, result *ConvertResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, rule := range result.Rules {
		for _, query := range rule.Queries {
			fmt.Fprintln(formatter.Writer, query)
		}
	}
	return nil
}

// fail prints the error through the formatter and carries the exit code out.
func fail(formatter *OutputFormatter, exitCode int, code, message string, details interface{}) error {
	formatter.Error(code, message, details)
	return NewExitError(exitCode, message)
}

func errStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
