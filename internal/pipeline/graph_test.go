package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SublimeCT/movie-games/internal/story"
)

func graphStory() *story.Story {
	return &story.Story{
		Nodes: map[string]*story.Node{},
		Endings: map[string]story.Ending{
			story.EndingNeutralKey: {Type: story.EndingTypeNeutral, Description: "meh"},
			"ending_good":          {Type: story.EndingTypeGood, Description: "yay"},
		},
		Cast: map[string]*story.Character{},
	}
}

// TestSanitizeGraph_DuplicateCollapse tests that two nodes with the same
// signature merge: the survivor inherits references and the removed
// node's terminal marker.
func TestSanitizeGraph_DuplicateCollapse(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "intro", Choices: []story.Choice{
		{Text: "go", Next: "02"},
	}}
	s.Nodes["02"] = &story.Node{ID: "02", Content: "dup", Choices: []story.Choice{
		{Text: "end it", Next: "ending_good"},
	}}
	s.Nodes["03"] = &story.Node{ID: "03", Content: "dup", EndingKey: "ending_good", Choices: []story.Choice{
		{Text: "end it", Next: "ending_good"},
	}}

	SanitizeGraph(s)

	require.NotContains(t, s.Nodes, "03", "duplicate node removed")
	assert.Equal(t, "02", s.Nodes["start"].Choices[0].Next)
	assert.Equal(t, "ending_good", s.Nodes["02"].EndingKey, "marker transferred from the removed duplicate")
	assert.Empty(t, s.Nodes["02"].Choices, "marked terminal node loses its choices")
}

// TestSanitizeGraph_SelfLoopAndBackEdge tests that a self-loop and a
// back edge both rewrite to the fallback terminal key.
func TestSanitizeGraph_SelfLoopAndBackEdge(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "intro", Choices: []story.Choice{
		{Text: "go", Next: "02"},
	}}
	s.Nodes["02"] = &story.Node{ID: "02", Content: "loopy", Choices: []story.Choice{
		{Text: "back", Next: "start"},
		{Text: "again", Next: "02"},
	}}

	SanitizeGraph(s)

	choices := s.Nodes["02"].Choices
	require.Len(t, choices, 2)
	assert.Equal(t, story.EndingNeutralKey, choices[0].Next, "back edge rewritten")
	assert.Equal(t, story.EndingNeutralKey, choices[1].Next, "self-loop rewritten")
	assert.Empty(t, story.Check(s))
}

// TestSanitizeGraph_LongCycle tests that a cycle spanning several nodes
// is broken exactly at the back edge.
func TestSanitizeGraph_LongCycle(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "a", Choices: []story.Choice{{Text: "x", Next: "02"}}}
	s.Nodes["02"] = &story.Node{ID: "02", Content: "b", Choices: []story.Choice{{Text: "x", Next: "03"}}}
	s.Nodes["03"] = &story.Node{ID: "03", Content: "c", Choices: []story.Choice{{Text: "x", Next: "start"}}}

	SanitizeGraph(s)

	assert.Equal(t, "02", s.Nodes["start"].Choices[0].Next, "forward edges survive")
	assert.Equal(t, "03", s.Nodes["02"].Choices[0].Next)
	assert.Equal(t, story.EndingNeutralKey, s.Nodes["03"].Choices[0].Next, "back edge broken")
	assert.Empty(t, story.Check(s))
}

// TestSanitizeGraph_DanglingAndBlankTargets tests Pass C reference repair.
func TestSanitizeGraph_DanglingAndBlankTargets(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "a", Choices: []story.Choice{
		{Text: "gone", Next: "no_such_node"},
		{Text: "blank", Next: "   "},
		{Text: "fine", Next: "ending_good"},
	}}

	SanitizeGraph(s)

	choices := s.Nodes["start"].Choices
	assert.Equal(t, story.EndingNeutralKey, choices[0].Next)
	assert.Equal(t, story.EndingNeutralKey, choices[1].Next)
	assert.Equal(t, "ending_good", choices[2].Next)
	assert.Empty(t, story.Check(s))
}

// TestSanitizeGraph_SentinelWithoutEndings tests the zero-endings escape
// hatch: invalid targets end at the END sentinel and existing sentinel
// targets are left alone.
func TestSanitizeGraph_SentinelWithoutEndings(t *testing.T) {
	s := &story.Story{
		Nodes: map[string]*story.Node{
			"start": {ID: "start", Content: "a", Choices: []story.Choice{
				{Text: "gone", Next: "ghost"},
				{Text: "done", Next: story.SentinelEnd},
				{Text: "self", Next: "start"},
			}},
		},
		Endings: map[string]story.Ending{},
		Cast:    map[string]*story.Character{},
	}

	SanitizeGraph(s)

	choices := s.Nodes["start"].Choices
	assert.Equal(t, story.SentinelEnd, choices[0].Next)
	assert.Equal(t, story.SentinelEnd, choices[1].Next)
	assert.Equal(t, story.SentinelEnd, choices[2].Next)
	assert.Empty(t, story.Check(s))
}

// TestSanitizeGraph_PaddedTargets tests that targets spelled with
// surrounding whitespace are trimmed before cycle elimination, so a
// padded self-loop or back edge cannot slip through to the output.
func TestSanitizeGraph_PaddedTargets(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "a", Choices: []story.Choice{
		{Text: "x", Next: " 02 "},
	}}
	s.Nodes["02"] = &story.Node{ID: "02", Content: "b", Choices: []story.Choice{
		{Text: "self", Next: " 02 "},
		{Text: "back", Next: "\tstart\n"},
	}}

	SanitizeGraph(s)

	assert.Equal(t, "02", s.Nodes["start"].Choices[0].Next, "padded forward edge trimmed and kept")
	assert.Equal(t, story.EndingNeutralKey, s.Nodes["02"].Choices[0].Next, "padded self-loop broken")
	assert.Equal(t, story.EndingNeutralKey, s.Nodes["02"].Choices[1].Next, "padded back edge broken")
	assert.Empty(t, story.Check(s))

	first, err := story.MarshalCanonical(s)
	require.NoError(t, err)
	SanitizeGraph(s)
	second, err := story.MarshalCanonical(s)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

// TestSanitizeGraph_TerminalConsistency tests that a valid marker clears
// choices and a choiceless unmarked node gets the neutral marker.
func TestSanitizeGraph_TerminalConsistency(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "a", Choices: []story.Choice{{Text: "x", Next: "02"}}}
	s.Nodes["02"] = &story.Node{ID: "02", Content: "b", EndingKey: "ending_good", Choices: []story.Choice{
		{Text: "should not exist", Next: "start"},
	}}
	s.Nodes["03"] = &story.Node{ID: "03", Content: "c", Choices: []story.Choice{}}

	SanitizeGraph(s)

	assert.Empty(t, s.Nodes["02"].Choices, "terminal node cleared")
	assert.Equal(t, story.EndingNeutralKey, s.Nodes["03"].EndingKey, "dead end gets neutral marker")
	assert.Empty(t, story.Check(s))
}

// TestSanitizeGraph_InvalidMarkerIgnored tests that a marker referencing
// a missing ending does not make a node terminal.
func TestSanitizeGraph_InvalidMarkerIgnored(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "a", EndingKey: "no_such_ending", Choices: []story.Choice{
		{Text: "x", Next: "ending_good"},
	}}

	SanitizeGraph(s)

	require.Len(t, s.Nodes["start"].Choices, 1, "choices of an invalidly-marked node survive")
	assert.Equal(t, "ending_good", s.Nodes["start"].Choices[0].Next)
}

// TestSanitizeGraph_EntryOwnsSignature tests that duplicates of the
// entry node redirect onto the entry, never the other way around.
func TestSanitizeGraph_EntryOwnsSignature(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "same", Choices: []story.Choice{{Text: "x", Next: "02"}}}
	s.Nodes["00"] = &story.Node{ID: "00", Content: "same", Choices: []story.Choice{{Text: "x", Next: "02"}}}
	s.Nodes["02"] = &story.Node{ID: "02", Content: "other", Choices: []story.Choice{{Text: "y", Next: "ending_good"}}}

	SanitizeGraph(s)

	assert.Contains(t, s.Nodes, "start")
	assert.NotContains(t, s.Nodes, "00", "the entry node is visited first and owns the signature")
}

// TestSanitizeGraph_FallbackPreference tests fallback terminal key
// selection order.
func TestSanitizeGraph_FallbackPreference(t *testing.T) {
	tests := []struct {
		name    string
		endings map[string]story.Ending
		want    string
	}{
		{"neutral preferred", map[string]story.Ending{
			story.EndingNeutralKey: {}, story.EndingBadKey: {}, story.EndingGoodKey: {},
		}, story.EndingNeutralKey},
		{"bad before good", map[string]story.Ending{
			story.EndingBadKey: {}, story.EndingGoodKey: {},
		}, story.EndingBadKey},
		{"good as last canonical", map[string]story.Ending{
			story.EndingGoodKey: {},
		}, story.EndingGoodKey},
		{"sorted first of extras", map[string]story.Ending{
			"z_end_custom": {}, "a_end_custom": {},
		}, "a_end_custom"},
		{"sentinel with no endings", map[string]story.Ending{}, story.SentinelEnd},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackTerminalKey(tt.endings))
		})
	}
}

// TestSanitizeGraph_Idempotent tests that re-sanitizing a sanitized
// graph changes nothing.
func TestSanitizeGraph_Idempotent(t *testing.T) {
	s := graphStory()
	s.Nodes["start"] = &story.Node{ID: "start", Content: "a", Choices: []story.Choice{
		{Text: "x", Next: "02"},
		{Text: "y", Next: "start"},
	}}
	s.Nodes["02"] = &story.Node{ID: "02", Content: "dup", Choices: []story.Choice{{Text: "z", Next: "ghost"}}}
	s.Nodes["03"] = &story.Node{ID: "03", Content: "dup", Choices: []story.Choice{{Text: "z", Next: "ghost"}}}

	SanitizeGraph(s)
	first, err := story.MarshalCanonical(s)
	require.NoError(t, err)

	SanitizeGraph(s)
	second, err := story.MarshalCanonical(s)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Empty(t, story.Check(s))
}
