package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obviouslynotraffa/sigma-surrealql/internal/rules"
)

// CheckResult is the JSON payload of a check run.
type CheckResult struct {
	Files    int      `json:"files"`
	Rules    int      `json:"rules"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <rules-path>",
		Short: "Validate Sigma rules without converting them",
		Long: `Parse and validate Sigma rules from a file or directory. Structural
problems fail the check; stylistic ones (missing UUID, unknown level) are
reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(rootOpts *RootOptions, rulesPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	loaded, loadErrs := rules.Load(rulesPath, rules.LoadModeCollectAll)
	if loaded == nil {
		return fail(formatter, ExitCommandError, ErrCodeLoad, loadErrs[0].Error(), nil)
	}
	if len(loadErrs) > 0 {
		return fail(formatter, ExitFailure, ErrCodeLoad,
			fmt.Sprintf("%d rule(s) failed validation", len(loadErrs)), errStrings(loadErrs))
	}

	result := &CheckResult{Files: loaded.FileCount, Rules: len(loaded.Rules)}
	for _, warning := range loaded.Warnings {
		result.Warnings = append(result.Warnings, warning.String())
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d rule(s) in %d file(s)\n", result.Rules, result.Files)
	for _, warning := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "Warning: %s\n", warning)
	}
	return nil
}
