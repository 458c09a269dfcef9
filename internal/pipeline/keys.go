package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SublimeCT/movie-games/internal/story"
)

// Legacy node key prefixes the generator was told to stop using but
// still emits occasionally.
var legacyNodePrefixes = []string{"n_", "node_"}

// NormalizeKeys produces stable, collision-free keys for the cast and
// node maps, independent of whatever identifier convention the generator
// used. It never fails; defects are corrected in place.
func NormalizeKeys(s *story.Story) {
	normalizeCastKeys(s)
	normalizeNodeKeys(s)
}

// normalizeCastKeys re-keys the cast so each character's map key equals
// its display name, falling back to its id and then the original key
// when the name is empty. The id field is rewritten to match the new
// key. Two characters resolving to the same name merge last-writer-wins
// in sorted key order; the merge is lossy and accepted.
func normalizeCastKeys(s *story.Story) {
	if len(s.Cast) == 0 {
		return
	}
	out := make(map[string]*story.Character, len(s.Cast))
	for _, oldKey := range s.CastKeys() {
		ch := s.Cast[oldKey]
		key := ch.Name
		if key == "" {
			key = ch.ID
		}
		if key == "" {
			key = oldKey
		}
		ch.ID = key
		out[key] = ch
	}
	s.Cast = out
}

// normalizeNodeKeys canonicalizes the entry node to "start", strips
// legacy prefixes from other keys, disambiguates collisions with numeric
// suffixes assigned in lexicographic order, rewrites every choice target
// that referenced an old key, and resynchronizes each node's id field to
// its final key.
func normalizeNodeKeys(s *story.Story) {
	if len(s.Nodes) == 0 {
		return
	}

	oldKeys := make([]string, 0, len(s.Nodes))
	for k := range s.Nodes {
		oldKeys = append(oldKeys, k)
	}
	sort.Strings(oldKeys)

	mapping := make(map[string]string, len(oldKeys))
	used := make(map[string]bool, len(oldKeys))
	for _, oldKey := range oldKeys {
		newKey := canonicalNodeKey(oldKey)
		finalKey := newKey
		for i := 2; used[finalKey]; i++ {
			finalKey = fmt.Sprintf("%s_%d", newKey, i)
		}
		used[finalKey] = true
		mapping[oldKey] = finalKey
	}

	out := make(map[string]*story.Node, len(s.Nodes))
	for oldKey, node := range s.Nodes {
		newKey := mapping[oldKey]
		node.ID = newKey
		for i := range node.Choices {
			if mapped, ok := mapping[node.Choices[i].Next]; ok {
				node.Choices[i].Next = mapped
			}
		}
		out[newKey] = node
	}
	s.Nodes = out
}

func canonicalNodeKey(key string) string {
	if key == story.EntryKey || key == "n_"+story.EntryKey {
		return story.EntryKey
	}
	for _, prefix := range legacyNodePrefixes {
		if stripped, ok := strings.CutPrefix(key, prefix); ok {
			return stripped
		}
	}
	return key
}
