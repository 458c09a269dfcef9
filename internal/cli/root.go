package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// FormatEnvVar overrides the default output format when set.
const FormatEnvVar = "MOVIEGAMES_FORMAT"

// NewRootCommand creates the root command for the movie-games CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "moviegames",
		Short: "movie-games story tooling",
		Long:  "Repair and validate machine-generated branching-narrative stories.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", defaultFormat(), "output format (json|text)")

	cmd.AddCommand(NewRepairCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

func defaultFormat() string {
	if f := os.Getenv(FormatEnvVar); isValidFormat(f) {
		return f
	}
	return "text"
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
