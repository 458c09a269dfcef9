package pipeline

import (
	"sort"
	"strings"

	"github.com/SublimeCT/movie-games/internal/story"
)

// SanitizeEffects makes every affinity effect referentially and
// numerically safe: targets are resolved through the cast id→name map,
// deltas are clamped into the valid range, and the effect is dropped
// entirely (never zeroed) when its target is blank, is the protagonist,
// or is absent from the node's character list. The protagonist is
// inferred with the scoring heuristic; Run substitutes the caller's
// explicit is-main roster entry when one was supplied.
func SanitizeEffects(s *story.Story) {
	sanitizeEffects(s, ProtagonistName(s.Cast))
}

func sanitizeEffects(s *story.Story, protagonist string) {
	if len(s.Nodes) == 0 {
		return
	}

	idToName := make(map[string]string, len(s.Cast))
	for _, ch := range s.Cast {
		id := strings.TrimSpace(ch.ID)
		name := strings.TrimSpace(ch.Name)
		if id != "" && name != "" {
			idToName[id] = name
		}
	}

	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]

		allowed := make(map[string]bool, len(node.Characters))
		for _, raw := range node.Characters {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			if resolved, ok := idToName[name]; ok {
				name = resolved
			}
			allowed[name] = true
		}

		for i := range node.Choices {
			effect := node.Choices[i].Effect
			if effect == nil {
				continue
			}
			effect.Delta = clampDelta(effect.Delta)

			raw := strings.TrimSpace(effect.CharacterID)
			if raw == "" {
				node.Choices[i].Effect = nil
				continue
			}
			resolved := raw
			if name, ok := idToName[raw]; ok {
				resolved = name
			}
			effect.CharacterID = resolved

			if protagonist != "" && resolved == protagonist {
				node.Choices[i].Effect = nil
				continue
			}
			if !allowed[resolved] {
				node.Choices[i].Effect = nil
			}
		}
	}
}

func clampDelta(delta int) int {
	if delta < story.MinAffinityDelta {
		return story.MinAffinityDelta
	}
	if delta > story.MaxAffinityDelta {
		return story.MaxAffinityDelta
	}
	return delta
}

// Protagonist marker tokens. The generator writes first-person stories,
// so a cast entry literally named "我" (or containing "主角") is the
// player character; English markers cover localized output.
const (
	selfReferenceName = "我"
	protagonistMarker = "主角"
)

// ProtagonistName scores every cast entry on role/key/name signals and
// returns the display name of the best match, or "" for an empty cast.
// Cast keys are visited in sorted order so ties break deterministically
// toward the lexicographically first entry.
func ProtagonistName(cast map[string]*story.Character) string {
	best := ""
	bestScore := -1

	keys := make([]string, 0, len(cast))
	for k := range cast {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ch := cast[k]
		name := strings.TrimSpace(ch.Name)
		if name == "" {
			continue
		}

		key := strings.ToLower(k)
		role := strings.ToLower(ch.Role)
		lowerName := strings.ToLower(name)

		score := 0
		if containsAny(key, "player", "protagonist", "main") {
			score += 5
		}
		if containsAny(role, "protagonist", "player", "main") {
			score += 6
		}
		if name == selfReferenceName || strings.Contains(name, protagonistMarker) {
			score += 7
		}
		if containsAny(lowerName, "protagonist", "player") {
			score += 4
		}

		if score > bestScore {
			best, bestScore = name, score
		}
	}
	return best
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
