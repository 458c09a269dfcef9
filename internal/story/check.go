package story

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Structural validation error codes (E200-E299).
const (
	ErrDanglingTarget     = "E201" // choice target matches no node or ending
	ErrSentinelMisuse     = "E202" // END sentinel used while endings exist
	ErrSelfLoop           = "E203" // choice targets its own node
	ErrCycle              = "E204" // choice graph contains a cycle
	ErrDuplicateSignature = "E205" // two nodes share (content, choice-set)
	ErrEndingCap          = "E206" // more than MaxEndings endings
	ErrTerminalChoices    = "E207" // terminal node still has choices
	ErrUnmarkedDeadEnd    = "E208" // choiceless node without valid marker
	ErrNodeIDMismatch     = "E209" // node id differs from its map key
	ErrEffectDelta        = "E210" // affinity delta outside [-20, 20]
	ErrEffectTarget       = "E211" // effect target blank or not in node cast
)

// ValidationError represents a structural defect found by Check.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Check verifies every structural invariant the repair pipeline is
// supposed to establish, without mutating the story. It collects all
// violations (never fail-fast) so callers can report them in one shot.
//
// A story fresh out of the pipeline must produce an empty slice; the
// pipeline's own tests use Check as their post-condition oracle.
func Check(s *Story) []ValidationError {
	var errs []ValidationError

	errs = append(errs, checkReferences(s)...)
	errs = append(errs, checkAcyclic(s)...)
	errs = append(errs, checkSignatures(s)...)
	errs = append(errs, checkEndings(s)...)
	errs = append(errs, checkTerminals(s)...)
	errs = append(errs, checkEffects(s)...)

	return errs
}

func checkReferences(s *Story) []ValidationError {
	var errs []ValidationError
	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		if node.ID != key {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%s].id", key),
				Message: fmt.Sprintf("id %q does not match map key", node.ID),
				Code:    ErrNodeIDMismatch,
			})
		}
		for i, c := range node.Choices {
			field := fmt.Sprintf("nodes[%s].choices[%d]", key, i)
			if c.Next == key {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "choice targets its own node",
					Code:    ErrSelfLoop,
				})
				continue
			}
			if c.Next == SentinelEnd {
				if len(s.Endings) > 0 {
					errs = append(errs, ValidationError{
						Field:   field,
						Message: "sentinel target used while endings exist",
						Code:    ErrSentinelMisuse,
					})
				}
				continue
			}
			if _, ok := s.Nodes[c.Next]; ok {
				continue
			}
			if _, ok := s.Endings[c.Next]; ok {
				continue
			}
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("target %q matches no node or ending", c.Next),
				Code:    ErrDanglingTarget,
			})
		}
	}
	return errs
}

// checkAcyclic runs a three-state depth-first search over the choice
// graph. Any back edge is a cycle.
func checkAcyclic(s *Story) []ValidationError {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := make(map[string]int, len(s.Nodes))
	var errs []ValidationError

	type frame struct {
		key  string
		next int
	}
	for _, root := range s.NodeKeys() {
		if state[root] != white {
			continue
		}
		stack := []frame{{key: root}}
		state[root] = grey
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			node := s.Nodes[f.key]
			if f.next >= len(node.Choices) {
				state[f.key] = black
				stack = stack[:len(stack)-1]
				continue
			}
			target := node.Choices[f.next].Next
			f.next++
			if target == f.key {
				continue // reported by checkReferences as a self-loop
			}
			if _, ok := s.Nodes[target]; !ok {
				continue
			}
			switch state[target] {
			case grey:
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("nodes[%s]", f.key),
					Message: fmt.Sprintf("cycle via choice back to %q", target),
					Code:    ErrCycle,
				})
			case white:
				state[target] = grey
				stack = append(stack, frame{key: target})
			}
		}
	}
	return errs
}

func checkSignatures(s *Story) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]string, len(s.Nodes))
	for _, key := range s.NodeKeys() {
		sig := Signature(s.Nodes[key])
		if owner, ok := seen[sig]; ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%s]", key),
				Message: fmt.Sprintf("duplicate of node %q (same content and choices)", owner),
				Code:    ErrDuplicateSignature,
			})
			continue
		}
		seen[sig] = key
	}
	return errs
}

func checkEndings(s *Story) []ValidationError {
	if len(s.Endings) <= MaxEndings {
		return nil
	}
	return []ValidationError{{
		Field:   "endings",
		Message: fmt.Sprintf("%d endings exceed the cap of %d", len(s.Endings), MaxEndings),
		Code:    ErrEndingCap,
	}}
}

func checkTerminals(s *Story) []ValidationError {
	var errs []ValidationError
	_, haveNeutral := s.Endings[EndingNeutralKey]
	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		_, markerValid := s.Endings[node.EndingKey]
		if markerValid && len(node.Choices) > 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%s]", key),
				Message: "terminal node still has outgoing choices",
				Code:    ErrTerminalChoices,
			})
		}
		// A choiceless node may stay unmarked only when no neutral
		// ending exists for the sanitizer to assign.
		if len(node.Choices) == 0 && !markerValid && haveNeutral {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("nodes[%s]", key),
				Message: "node has no choices and no valid ending marker",
				Code:    ErrUnmarkedDeadEnd,
			})
		}
	}
	return errs
}

func checkEffects(s *Story) []ValidationError {
	var errs []ValidationError
	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		allowed := make(map[string]bool, len(node.Characters))
		for _, name := range node.Characters {
			allowed[strings.TrimSpace(name)] = true
		}
		for i, c := range node.Choices {
			if c.Effect == nil {
				continue
			}
			field := fmt.Sprintf("nodes[%s].choices[%d].affinityEffect", key, i)
			if c.Effect.Delta < MinAffinityDelta || c.Effect.Delta > MaxAffinityDelta {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("delta %d outside [%d, %d]", c.Effect.Delta, MinAffinityDelta, MaxAffinityDelta),
					Code:    ErrEffectDelta,
				})
			}
			target := strings.TrimSpace(c.Effect.CharacterID)
			if target == "" || !allowed[target] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("target %q is not in the node's character list", c.Effect.CharacterID),
					Code:    ErrEffectTarget,
				})
			}
		}
	}
	return errs
}

// Signature computes the (content, choice-set) fingerprint used to detect
// duplicate nodes: trimmed NFC-normalized content concatenated with the
// sorted list of "text→target" pairs. Two nodes with equal signatures are
// the same beat and get collapsed by the graph sanitizer.
func Signature(n *Node) string {
	parts := make([]string, len(n.Choices))
	for i, c := range n.Choices {
		parts[i] = strings.TrimSpace(c.Text) + "→" + strings.TrimSpace(c.Next)
	}
	sort.Strings(parts)
	content := norm.NFC.String(strings.TrimSpace(n.Content))
	return content + "||" + strings.Join(parts, "|")
}
