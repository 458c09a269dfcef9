package story

import "sort"

// Reserved keys in the node and ending maps.
const (
	// EntryKey is the canonical key of the entry node. Legacy spellings
	// ("n_start") are folded onto it by the key normalizer.
	EntryKey = "start"

	// SentinelEnd is the placeholder choice target used only when the
	// story defines no endings at all. It has no backing Ending entry;
	// playback renders it as a dead end.
	SentinelEnd = "END"
)

// Canonical ending keys, one per ending category. The ending
// canonicalizer folds alias spellings ("good_end", "BAD", ...) onto these.
const (
	EndingGoodKey    = "ending_good"
	EndingNeutralKey = "ending_neutral"
	EndingBadKey     = "ending_bad"
)

// Ending categories.
const (
	EndingTypeGood    = "good"
	EndingTypeNeutral = "neutral"
	EndingTypeBad     = "bad"
)

// MaxEndings is the hard cap on the endings map after canonicalization.
const MaxEndings = 5

// Delta bounds for affinity effects. Values outside the range are clamped.
const (
	MinAffinityDelta = -20
	MaxAffinityDelta = 20
)

// Story is the full branching-narrative document: nodes, endings, cast
// and metadata. It is the root aggregate the repair pipeline operates on,
// exclusively owned by one request for the lifetime of a pipeline run.
type Story struct {
	ProjectID             string                `json:"projectId"`
	Title                 string                `json:"title"`
	Version               string                `json:"version"`
	Owner                 string                `json:"owner"`
	Meta                  Meta                  `json:"meta"`
	BackgroundImageBase64 string                `json:"backgroundImageBase64,omitempty"`
	Nodes                 map[string]*Node      `json:"nodes"`
	Endings               map[string]Ending     `json:"endings"`
	Cast                  map[string]*Character `json:"characters"`
	Provenance            Provenance            `json:"provenance"`
}

// Meta holds story-level descriptive metadata.
type Meta struct {
	Logline              string `json:"logline"`
	Synopsis             string `json:"synopsis"`
	TargetRuntimeMinutes int    `json:"targetRuntimeMinutes"`
	Genre                string `json:"genre"`
	Language             string `json:"language"`
}

// Node is a single narrative beat with content and outgoing choices.
//
// ID must equal the node's key in Story.Nodes; the key normalizer repairs
// mismatches. A node with a valid EndingKey is terminal and must have no
// choices; the graph sanitizer enforces both directions.
type Node struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	EndingKey  string   `json:"endingKey,omitempty"`
	Level      int      `json:"level,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Choices    []Choice `json:"choices"`
}

// Choice is a labeled edge from a node to another node or to an ending.
type Choice struct {
	Text   string          `json:"text"`
	Next   string          `json:"nextNodeId"`
	Effect *AffinityEffect `json:"affinityEffect,omitempty"`
}

// AffinityEffect is a numeric relationship delta attached to a choice.
// CharacterID holds the target's canonical display name after the
// side-effect sanitizer has run.
type AffinityEffect struct {
	CharacterID string `json:"characterId"`
	Delta       int    `json:"delta"`
}

// Ending is a terminal narrative state.
type Ending struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Character is a cast entry, keyed by canonical display name after
// normalization.
type Character struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	Age        int    `json:"age"`
	Role       string `json:"role"`
	Background string `json:"background"`
	AvatarPath string `json:"avatarPath,omitempty"`
}

// Provenance records where the document came from.
type Provenance struct {
	CreatedBy string `json:"createdBy"`
	CreatedAt string `json:"createdAt"`
}

// NodeKeys returns all node keys sorted lexicographically, with the entry
// node first when present. Every traversal in the pipeline iterates this
// slice, never natural map order, so output is reproducible.
func (s *Story) NodeKeys() []string {
	keys := make([]string, 0, len(s.Nodes))
	for k := range s.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if k == EntryKey {
			copy(keys[1:i+1], keys[:i])
			keys[0] = EntryKey
			break
		}
	}
	return keys
}

// EndingKeys returns all ending keys sorted lexicographically.
func (s *Story) EndingKeys() []string {
	keys := make([]string, 0, len(s.Endings))
	for k := range s.Endings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CastKeys returns all cast keys sorted lexicographically.
func (s *Story) CastKeys() []string {
	keys := make([]string, 0, len(s.Cast))
	for k := range s.Cast {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CanonicalEndingKeyFor maps an ending category to its canonical key.
// Returns "" for unknown categories.
func CanonicalEndingKeyFor(endingType string) string {
	switch endingType {
	case EndingTypeGood:
		return EndingGoodKey
	case EndingTypeNeutral:
		return EndingNeutralKey
	case EndingTypeBad:
		return EndingBadKey
	default:
		return ""
	}
}
