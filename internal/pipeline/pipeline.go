package pipeline

import (
	"fmt"
	"strings"

	"github.com/SublimeCT/movie-games/internal/story"
)

// Warning codes (W001-W099).
const (
	// WarnSentinelTerminal: the story defines no endings at all, so
	// invalid choice targets were redirected to the END sentinel
	// instead of a real ending. Playback renders dead ends; callers
	// should consider requesting regeneration.
	WarnSentinelTerminal = "W001"
)

// Warning is a caller-visible condition the pipeline could not fully
// repair. Warnings never abort the pipeline; the story is always left
// structurally consistent.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CastMember is one entry of the caller's roster allow-list: the
// characters the requester originally asked for. When a roster is
// supplied, EnforceCast rebuilds the story's cast from it and IsMain
// overrides the protagonist heuristic in SanitizeEffects.
type CastMember struct {
	Name        string `json:"name" yaml:"name"`
	Gender      string `json:"gender" yaml:"gender"`
	Description string `json:"description" yaml:"description"`
	IsMain      bool   `json:"isMain" yaml:"isMain"`
}

// Options configures a pipeline run.
type Options struct {
	// Cast is the caller's roster allow-list. Nil means the generator's
	// cast is kept as-is and the protagonist is inferred heuristically.
	Cast []CastMember
}

// Run threads the story through all five repair stages in order and
// returns any caller-visible warnings. It never fails: the worst case is
// a sentinel-only story flagged with WarnSentinelTerminal.
//
// Run is idempotent: applied to its own output it makes no structural
// change and reports the same warnings.
func Run(s *story.Story, opts Options) []Warning {
	NormalizeKeys(s)
	CanonicalizeEndings(s)
	SanitizeGraph(s)

	protagonist := explicitProtagonist(opts.Cast)
	if protagonist == "" {
		protagonist = ProtagonistName(s.Cast)
	}
	sanitizeEffects(s, protagonist)

	EnforceCast(s, opts.Cast)

	return warnings(s)
}

func explicitProtagonist(cast []CastMember) string {
	for _, m := range cast {
		if m.IsMain && strings.TrimSpace(m.Name) != "" {
			return strings.TrimSpace(m.Name)
		}
	}
	return ""
}

func warnings(s *story.Story) []Warning {
	var warns []Warning
	if len(s.Endings) == 0 && len(s.Nodes) > 0 {
		warns = append(warns, Warning{
			Code: WarnSentinelTerminal,
			Message: fmt.Sprintf(
				"story defines no endings; %d node(s) terminate at the %q sentinel",
				len(s.Nodes), story.SentinelEnd),
		})
	}
	return warns
}

// fallbackTerminalKey picks the ending key substituted for invalid,
// cyclic or self-referential choice targets: the canonical neutral
// ending, then bad, then good, then the lexicographically smallest
// remaining ending key, then the END sentinel. Picking by sorted order
// keeps repair output reproducible for any endings map.
func fallbackTerminalKey(endings map[string]story.Ending) string {
	for _, k := range []string{story.EndingNeutralKey, story.EndingBadKey, story.EndingGoodKey} {
		if _, ok := endings[k]; ok {
			return k
		}
	}
	smallest := ""
	for k := range endings {
		if smallest == "" || k < smallest {
			smallest = k
		}
	}
	if smallest != "" {
		return smallest
	}
	return story.SentinelEnd
}
