package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SublimeCT/movie-games/internal/decode"
	"github.com/SublimeCT/movie-games/internal/story"
)

// CheckResult holds structural check results.
type CheckResult struct {
	Valid  bool                    `json:"valid"`
	Errors []story.ValidationError `json:"errors,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <story.json>",
		Short: "Check a story against the structural invariants",
		Long: `Check an already-typed story document without repairing it.

Verifies referential closure, acyclicity, duplicate signatures, the
ending cap, terminal consistency, and affinity-effect bounds. Reports
every violation found; a story fresh out of repair always passes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, inputPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return outputCheckError(formatter, ErrCodeInput, fmt.Sprintf("cannot read %s: %v", inputPath, err))
	}

	s, err := decode.Strict(data)
	if err != nil {
		return outputCheckError(formatter, ErrCodeParse, err.Error())
	}
	formatter.VerboseLog("Checking story with %d node(s), %d ending(s)", len(s.Nodes), len(s.Endings))

	violations := story.Check(s)
	if len(violations) > 0 {
		return outputCheckFailures(formatter, violations)
	}

	if formatter.Format == "json" {
		return formatter.Success(CheckResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ story valid")
	return nil
}

func outputCheckError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputCheckFailures(formatter *OutputFormatter, errs []story.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   CheckResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d violation(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ story invalid")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("check failed with %d violation(s)", len(errs)))
}
