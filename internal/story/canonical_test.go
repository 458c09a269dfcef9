package story

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalStory() *Story {
	return &Story{
		ProjectID: "p-1",
		Title:     "Test",
		Version:   "1.0.0",
		Owner:     "User",
		Meta:      Meta{Language: "zh"},
		Nodes: map[string]*Node{
			"start": {ID: "start", Content: "intro", Choices: []Choice{{Text: "go", Next: EndingNeutralKey}}},
		},
		Endings: map[string]Ending{
			EndingNeutralKey: {Type: EndingTypeNeutral, Description: "meh"},
		},
		Cast: map[string]*Character{},
	}
}

// TestMarshalCanonical_Deterministic tests that two structurally equal
// stories with different map insertion orders produce identical bytes.
func TestMarshalCanonical_Deterministic(t *testing.T) {
	a := minimalStory()
	a.Endings["x"] = Ending{Type: EndingTypeGood, Description: "d"}
	a.Endings["a"] = Ending{Type: EndingTypeBad, Description: "d"}

	b := minimalStory()
	b.Endings["a"] = Ending{Type: EndingTypeBad, Description: "d"}
	b.Endings["x"] = Ending{Type: EndingTypeGood, Description: "d"}

	ab, err := MarshalCanonical(a)
	require.NoError(t, err)
	bb, err := MarshalCanonical(b)
	require.NoError(t, err)
	assert.Equal(t, string(ab), string(bb))
}

// TestMarshalCanonical_SortedKeys tests that object keys appear sorted.
func TestMarshalCanonical_SortedKeys(t *testing.T) {
	s := minimalStory()
	s.Endings["zz"] = Ending{Type: EndingTypeGood, Description: "d"}
	s.Endings["aa"] = Ending{Type: EndingTypeBad, Description: "d"}

	out, err := MarshalCanonical(s)
	require.NoError(t, err)

	text := string(out)
	assert.Less(t, strings.Index(text, `"aa"`), strings.Index(text, `"ending_neutral"`))
	assert.Less(t, strings.Index(text, `"ending_neutral"`), strings.Index(text, `"zz"`))
}

// TestMarshalCanonical_NoHTMLEscaping tests that < > & survive unescaped.
func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	s := minimalStory()
	s.Title = "a<b & c>d"

	out, err := MarshalCanonical(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"a<b & c>d"`)
}

// TestMarshalCanonical_NFCNormalization tests that decomposed unicode is
// normalized at the serialization boundary.
func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	composed := minimalStory()
	composed.Title = "café"

	decomposed := minimalStory()
	decomposed.Title = "café"

	cb, err := MarshalCanonical(composed)
	require.NoError(t, err)
	db, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, string(cb), string(db))
}

// TestMarshalCanonical_LineSeparators tests that U+2028 stays a literal
// character while a literal backslash followed by "u2028" text stays
// escaped.
func TestMarshalCanonical_LineSeparators(t *testing.T) {
	s := minimalStory()
	s.Title = "a b"

	out, err := MarshalCanonical(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\"a b\"")

	s.Title = `a\u2028b`
	out, err = MarshalCanonical(s)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"a\\u2028b"`)
}
