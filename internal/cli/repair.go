package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SublimeCT/movie-games/internal/decode"
	"github.com/SublimeCT/movie-games/internal/pipeline"
	"github.com/SublimeCT/movie-games/internal/story"
)

// NewRepairCommand creates the repair command.
func NewRepairCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		outPath   string
		castPath  string
		language  string
		canonical bool
	)

	cmd := &cobra.Command{
		Use:   "repair <story.json>",
		Short: "Repair a generated story into a structurally valid one",
		Long: `Repair a machine-generated story document.

Decodes the loosely-typed generator output, then runs the deterministic
repair pipeline: key normalization, ending canonicalization, graph
sanitization (duplicate collapse, cycle breaking, reference repair),
affinity-effect sanitization, and cast enforcement when a roster file is
supplied.

Repairs are silent and always succeed; the only warning surfaced is a
story with zero endings, whose dead ends point at the END sentinel.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepair(rootOpts, args[0], repairOptions{
				outPath:   outPath,
				castPath:  castPath,
				language:  language,
				canonical: canonical,
			}, cmd)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the repaired story to a file instead of stdout")
	cmd.Flags().StringVar(&castPath, "cast", "", "YAML roster allow-list to enforce on the cast")
	cmd.Flags().StringVar(&language, "lang", "zh", "language tag for story metadata")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "emit canonical JSON bytes")

	return cmd
}

type repairOptions struct {
	outPath   string
	castPath  string
	language  string
	canonical bool
}

func runRepair(opts *RootOptions, inputPath string, ro repairOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return outputRepairError(formatter, ErrCodeInput, fmt.Sprintf("cannot read %s: %v", inputPath, err))
	}

	var roster []pipeline.CastMember
	if ro.castPath != "" {
		roster, err = loadRoster(ro.castPath)
		if err != nil {
			return outputRepairError(formatter, ErrCodeCast, err.Error())
		}
		formatter.VerboseLog("Loaded %d roster member(s) from %s", len(roster), ro.castPath)
	}

	s, err := decode.Decode(data, ro.language)
	if err != nil {
		return outputRepairError(formatter, ErrCodeParse, err.Error())
	}
	formatter.VerboseLog("Decoded story with %d node(s), %d ending(s), %d cast member(s)",
		len(s.Nodes), len(s.Endings), len(s.Cast))

	warnings := pipeline.Run(s, pipeline.Options{Cast: roster})
	for _, w := range warnings {
		fmt.Fprintf(formatter.GetErrWriter(), "warning [%s]: %s\n", w.Code, w.Message)
	}

	encoded, err := encodeStory(s, ro.canonical)
	if err != nil {
		return outputRepairError(formatter, ErrCodeWrite, err.Error())
	}

	if ro.outPath != "" {
		if err := os.WriteFile(ro.outPath, encoded, 0o644); err != nil {
			return outputRepairError(formatter, ErrCodeWrite, fmt.Sprintf("cannot write %s: %v", ro.outPath, err))
		}
		formatter.VerboseLog("Wrote repaired story to %s", ro.outPath)
		if formatter.Format == "json" {
			return formatter.SuccessWithWarnings(s, warnings)
		}
		return nil
	}

	if formatter.Format == "json" {
		return formatter.SuccessWithWarnings(s, warnings)
	}
	fmt.Fprintln(formatter.Writer, string(encoded))
	return nil
}

func encodeStory(s *story.Story, canonical bool) ([]byte, error) {
	if canonical {
		return story.MarshalCanonical(s)
	}
	return json.MarshalIndent(s, "", "  ")
}

func loadRoster(path string) ([]pipeline.CastMember, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read roster %s: %w", path, err)
	}
	var roster []pipeline.CastMember
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("roster %s is not a valid YAML member list: %w", path, err)
	}
	return roster, nil
}

func outputRepairError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}
