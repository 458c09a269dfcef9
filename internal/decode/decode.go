// Package decode turns the content generator's loosely-typed JSON
// document into a typed story.Story.
//
// The generator cannot be trusted to produce well-formed output: fields
// may be missing, text fields may arrive as arrays of strings, nodes may
// arrive as bare strings or empty placeholders, and the cast may arrive
// as a map or an array. Each shape has an explicit tagged-union wrapper
// here so shape-sniffing never leaks into the repair pipeline. Whole
// documents that are not even valid JSON get one repair attempt before
// decoding is given up on — the only hard failure in the system.
package decode

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"

	"github.com/SublimeCT/movie-games/internal/story"
)

// Defaults applied to missing fields.
const (
	defaultTitle      = "Untitled Project"
	defaultVersion    = "1.0.0"
	defaultOwner      = "User"
	defaultContent    = "..."
	defaultChoiceText = "Continue"
	defaultName       = "Unknown"
	defaultGender     = "Unknown"
)

// Decode parses raw generator output into a typed Story. Malformed JSON
// is repaired once with jsonrepair and re-parsed; if that also fails the
// input is unusable and an error is returned. language becomes
// Meta.Language.
func Decode(data []byte, language string) (*story.Story, error) {
	var lite storyLite
	if err := json.Unmarshal(data, &lite); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr != nil {
			return nil, fmt.Errorf("document is not valid JSON and could not be repaired: %w", err)
		}
		if err2 := json.Unmarshal([]byte(repaired), &lite); err2 != nil {
			return nil, fmt.Errorf("repaired document still does not decode: %w", err2)
		}
	}
	return lite.toStory(language), nil
}

// Strict parses an already-typed story document without any coercion.
// Used by surfaces that receive stories this engine produced earlier.
// Omitted collections come back as empty, never nil, so the result can
// always be canonicalized.
func Strict(data []byte) (*story.Story, error) {
	var s story.Story
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("document does not decode as a story: %w", err)
	}
	if s.Nodes == nil {
		s.Nodes = map[string]*story.Node{}
	}
	if s.Endings == nil {
		s.Endings = map[string]story.Ending{}
	}
	if s.Cast == nil {
		s.Cast = map[string]*story.Character{}
	}
	for key, node := range s.Nodes {
		if node == nil {
			delete(s.Nodes, key)
			continue
		}
		if node.Choices == nil {
			node.Choices = []story.Choice{}
		}
	}
	return &s, nil
}

// textValue accepts a JSON string or an array of strings joined with
// line breaks.
type textValue struct {
	value string
	set   bool
}

func (t *textValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		t.value, t.set = s, true
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		t.value, t.set = strings.Join(list, "\n"), true
		return nil
	}
	// Tolerate anything else by treating it as absent.
	return nil
}

// stringList accepts a JSON array of strings or a single string treated
// as a one-element list.
type stringList struct {
	values []string
	set    bool
}

func (l *stringList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		l.values, l.set = list, true
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		l.values, l.set = []string{s}, true
		return nil
	}
	return nil
}

// intValue accepts a JSON number (float tails truncated) or a numeric
// string. Anything else decodes to zero.
type intValue struct {
	value int
}

func (v *intValue) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		v.value = int(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			v.value = n
		}
	}
	return nil
}

type storyLite struct {
	Title      textValue               `json:"title"`
	Meta       *metaLite               `json:"meta"`
	Nodes      map[string]nodeOrString `json:"nodes"`
	Endings    map[string]endingLite   `json:"endings"`
	Characters castLite                `json:"characters"`
}

type metaLite struct {
	Logline              textValue `json:"logline"`
	Synopsis             textValue `json:"synopsis"`
	TargetRuntimeMinutes intValue  `json:"targetRuntimeMinutes"`
	Genre                textValue `json:"genre"`
}

type endingLite struct {
	Type        textValue `json:"type"`
	Description textValue `json:"description"`
}

// nodeOrString is the tagged union for node values: a full object, a
// bare string treated as content, or an empty/unintelligible placeholder
// that gets dropped.
type nodeOrString struct {
	node    *nodeLite
	content string
	drop    bool
}

func (n *nodeOrString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			n.drop = true
			return nil
		}
		n.content = s
		return nil
	}
	var lite nodeLite
	if err := json.Unmarshal(b, &lite); err != nil || lite.isEmpty() {
		n.drop = true
		return nil
	}
	n.node = &lite
	return nil
}

type nodeLite struct {
	ID        string       `json:"id"`
	NodeID    string       `json:"nodeId"`
	Content   textValue    `json:"content"`
	Text      textValue    `json:"text"` // generator sometimes uses "text" for content
	EndingKey string       `json:"endingKey"`
	Level     intValue     `json:"level"`
	Chars     stringList   `json:"characters"`
	Choices   []choiceLite `json:"choices"`
}

func (n *nodeLite) isEmpty() bool {
	return n.ID == "" && n.NodeID == "" && !n.Content.set && !n.Text.set &&
		n.EndingKey == "" && !n.Chars.set && len(n.Choices) == 0
}

type choiceLite struct {
	Text   textValue   `json:"text"`
	Next   string      `json:"nextNodeId"`
	Effect *effectLite `json:"affinityEffect"`
}

type effectLite struct {
	CharacterID string   `json:"characterId"`
	Delta       intValue `json:"delta"`
}

type charLite struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Gender      string    `json:"gender"`
	Age         intValue  `json:"age"`
	Role        string    `json:"role"`
	Background  textValue `json:"background"`
	Description textValue `json:"description"` // alias for background
	AvatarPath  string    `json:"avatarPath"`
}

// castLite accepts the cast as a map keyed by id or as a bare array.
// Array entries are keyed by id, then name, then a positional char_N.
type castLite struct {
	entries map[string]charLite
}

func (c *castLite) UnmarshalJSON(b []byte) error {
	var m map[string]charLite
	if err := json.Unmarshal(b, &m); err == nil {
		c.entries = m
		return nil
	}
	var list []charLite
	if err := json.Unmarshal(b, &list); err != nil {
		return nil
	}
	c.entries = make(map[string]charLite, len(list))
	for _, ch := range list {
		key := ch.ID
		if key == "" {
			key = ch.Name
		}
		if key == "" {
			key = fmt.Sprintf("char_%d", len(c.entries))
		}
		c.entries[key] = ch
	}
	return nil
}

func (l *storyLite) toStory(language string) *story.Story {
	s := &story.Story{
		ProjectID: uuid.NewString(),
		Title:     defaultTitle,
		Version:   defaultVersion,
		Owner:     defaultOwner,
		Meta:      story.Meta{Language: language},
		Nodes:     make(map[string]*story.Node, len(l.Nodes)),
		Endings:   make(map[string]story.Ending, len(l.Endings)),
		Cast:      make(map[string]*story.Character, len(l.Characters.entries)),
	}
	if l.Title.set && l.Title.value != "" {
		s.Title = l.Title.value
	}
	if l.Meta != nil {
		s.Meta.Logline = l.Meta.Logline.value
		s.Meta.Synopsis = l.Meta.Synopsis.value
		s.Meta.TargetRuntimeMinutes = l.Meta.TargetRuntimeMinutes.value
		s.Meta.Genre = l.Meta.Genre.value
	}

	for key, nv := range l.Nodes {
		if nv.drop {
			continue
		}
		if nv.node == nil {
			s.Nodes[key] = &story.Node{ID: key, Content: nv.content, Choices: []story.Choice{}}
			continue
		}
		s.Nodes[key] = convertNode(key, nv.node)
	}

	for key, e := range l.Endings {
		s.Endings[key] = story.Ending{Type: e.Type.value, Description: e.Description.value}
	}

	for key, ch := range l.Characters.entries {
		s.Cast[key] = convertCharacter(ch)
	}

	return s
}

func convertNode(key string, lite *nodeLite) *story.Node {
	node := &story.Node{
		ID:        lite.ID,
		Content:   defaultContent,
		EndingKey: lite.EndingKey,
		Level:     lite.Level.value,
		Choices:   make([]story.Choice, 0, len(lite.Choices)),
	}
	if node.ID == "" {
		node.ID = lite.NodeID
	}
	if node.ID == "" {
		node.ID = key
	}
	switch {
	case lite.Content.set:
		node.Content = lite.Content.value
	case lite.Text.set:
		node.Content = lite.Text.value
	}
	if lite.Chars.set {
		node.Characters = lite.Chars.values
	}
	for _, c := range lite.Choices {
		choice := story.Choice{Text: defaultChoiceText, Next: story.SentinelEnd}
		if c.Text.set && c.Text.value != "" {
			choice.Text = c.Text.value
		}
		if c.Next != "" {
			choice.Next = c.Next
		}
		if c.Effect != nil {
			choice.Effect = &story.AffinityEffect{
				CharacterID: c.Effect.CharacterID,
				Delta:       c.Effect.Delta.value,
			}
		}
		node.Choices = append(node.Choices, choice)
	}
	return node
}

func convertCharacter(lite charLite) *story.Character {
	ch := &story.Character{
		ID:         lite.ID,
		Name:       lite.Name,
		Gender:     lite.Gender,
		Age:        lite.Age.value,
		Role:       lite.Role,
		Background: lite.Background.value,
		AvatarPath: lite.AvatarPath,
	}
	if ch.ID == "" {
		ch.ID = uuid.NewString()
	}
	if ch.Name == "" {
		ch.Name = defaultName
	}
	if ch.Gender == "" {
		ch.Gender = defaultGender
	}
	if ch.Background == "" {
		ch.Background = lite.Description.value
	}
	return ch
}
