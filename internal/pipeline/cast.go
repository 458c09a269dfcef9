package pipeline

import (
	"strings"

	"github.com/SublimeCT/movie-games/internal/story"
)

// EnforceCast restricts the story to the caller's roster allow-list.
// The entire cast map is rebuilt from the roster (keyed by name), and
// every node's character list is filtered down to allowed names with
// blanks and duplicates removed. A node whose list empties out has the
// field cleared entirely rather than left as an empty list. Affinity
// effects whose target leaves the list are dropped with it, keeping
// every surviving effect aimed at someone still present in the scene.
// A nil roster leaves the story untouched.
func EnforceCast(s *story.Story, roster []CastMember) {
	if roster == nil {
		return
	}

	out := make(map[string]*story.Character, len(roster))
	allowed := make(map[string]bool, len(roster))
	for _, m := range roster {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		allowed[name] = true
		out[name] = &story.Character{
			ID:     name,
			Name:   name,
			Gender: m.Gender,
			Role:   m.Description,
		}
	}

	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		if node.Characters != nil {
			seen := make(map[string]bool, len(node.Characters))
			kept := node.Characters[:0]
			for _, raw := range node.Characters {
				name := strings.TrimSpace(raw)
				if name == "" || !allowed[name] || seen[name] {
					continue
				}
				seen[name] = true
				kept = append(kept, name)
			}
			if len(kept) == 0 {
				kept = nil
			}
			node.Characters = kept
		}
		for i := range node.Choices {
			effect := node.Choices[i].Effect
			if effect == nil {
				continue
			}
			if !allowed[strings.TrimSpace(effect.CharacterID)] {
				node.Choices[i].Effect = nil
			}
		}
	}

	s.Cast = out
}
