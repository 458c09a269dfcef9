package pipeline

import (
	"strings"

	"github.com/SublimeCT/movie-games/internal/story"
)

// CanonicalizeEndings collapses synonymous terminal-state keys onto the
// three canonical per-category keys and rewrites every choice target that
// pointed at a non-canonical spelling. When two keys canonicalize to the
// same target the first-registered entry wins and the alias is dropped.
// After merging, the endings map is capped at story.MaxEndings entries:
// the canonical three survive, then lexicographically-first extras.
func CanonicalizeEndings(s *story.Story) {
	if len(s.Endings) == 0 {
		return
	}

	for _, key := range s.EndingKeys() {
		canonical, ok := canonicalEndingKey(key)
		if !ok || canonical == key {
			continue
		}
		if _, exists := s.Endings[canonical]; exists {
			delete(s.Endings, key)
			continue
		}
		s.Endings[canonical] = s.Endings[key]
		delete(s.Endings, key)
	}

	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		for i := range node.Choices {
			if canonical, ok := canonicalEndingKey(node.Choices[i].Next); ok {
				node.Choices[i].Next = canonical
			}
		}
	}

	capEndings(s)
}

// canonicalEndingKey maps alias spellings (case variants, "_end" suffix
// variants, bare category words) onto a canonical ending key.
func canonicalEndingKey(key string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case story.EndingGoodKey, "good_end", "end_good", story.EndingTypeGood:
		return story.EndingGoodKey, true
	case story.EndingNeutralKey, "neutral_end", "end_neutral", story.EndingTypeNeutral:
		return story.EndingNeutralKey, true
	case story.EndingBadKey, "bad_end", "end_bad", story.EndingTypeBad:
		return story.EndingBadKey, true
	default:
		return "", false
	}
}

func capEndings(s *story.Story) {
	if len(s.Endings) <= story.MaxEndings {
		return
	}
	keep := make(map[string]story.Ending, story.MaxEndings)
	for _, k := range []string{story.EndingGoodKey, story.EndingNeutralKey, story.EndingBadKey} {
		if e, ok := s.Endings[k]; ok {
			keep[k] = e
		}
	}
	for _, k := range s.EndingKeys() {
		if len(keep) >= story.MaxEndings {
			break
		}
		if _, ok := keep[k]; ok {
			continue
		}
		keep[k] = s.Endings[k]
	}
	s.Endings = keep
}
