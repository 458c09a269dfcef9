package pipeline

import (
	"sort"
	"strings"

	"github.com/SublimeCT/movie-games/internal/story"
)

// SanitizeGraph is the core repair stage: the single component
// responsible for structural validity of the node/choice graph. Choice
// targets are whitespace-trimmed up front so every pass resolves the
// same spelling; the stage then runs three passes over the node set,
// always visiting the entry node first and remaining keys in
// lexicographic order:
//
//	Pass A collapses duplicate nodes by signature and redirects every
//	reference to the surviving owner.
//	Pass B breaks self-loops and cycles by rewriting the offending
//	choice targets to the fallback terminal key.
//	Pass C repairs dangling references and enforces terminal-node
//	consistency.
//
// The stage never fails. With no endings defined at all, invalid targets
// end up at the END sentinel and the pipeline reports a warning.
func SanitizeGraph(s *story.Story) {
	if len(s.Nodes) == 0 {
		return
	}
	trimTargets(s)
	fallback := fallbackTerminalKey(s.Endings)
	collapseDuplicates(s)
	breakCycles(s, fallback)
	repairReferences(s, fallback)
	enforceTerminals(s)
}

// trimTargets strips surrounding whitespace from every choice target. A
// padded spelling of a real key would otherwise slip past the cycle
// pass, which compares targets by exact key.
func trimTargets(s *story.Story) {
	for _, node := range s.Nodes {
		for i := range node.Choices {
			node.Choices[i].Next = strings.TrimSpace(node.Choices[i].Next)
		}
	}
}

// collapseDuplicates computes a signature per node and keeps only the
// first node seen with each signature. Later nodes with the same
// signature are removed; all choice targets pointing at them are
// rewritten to the surviving owner, and a terminal marker on a removed
// node transfers to an owner that lacks one. The entry node is visited
// first, so it can own a signature but is never removed.
func collapseDuplicates(s *story.Story) {
	owners := make(map[string]string, len(s.Nodes))
	redirect := make(map[string]string)

	for _, key := range s.NodeKeys() {
		sig := story.Signature(s.Nodes[key])
		owner, ok := owners[sig]
		if !ok {
			owners[sig] = key
			continue
		}
		if key == story.EntryKey {
			continue
		}
		redirect[key] = owner
	}
	if len(redirect) == 0 {
		return
	}

	for _, node := range s.Nodes {
		for i := range node.Choices {
			if owner, ok := redirect[node.Choices[i].Next]; ok {
				node.Choices[i].Next = owner
			}
		}
	}

	for _, removed := range sortedKeys(redirect) {
		owner := s.Nodes[redirect[removed]]
		if marker := s.Nodes[removed].EndingKey; marker != "" && owner.EndingKey == "" {
			owner.EndingKey = marker
		}
		delete(s.Nodes, removed)
	}
}

// breakCycles runs a three-state depth-first traversal from every
// unvisited node, entry node first. A choice targeting the current node
// (self-loop) or an in-progress node (back edge) is rewritten in place
// to the fallback terminal key. Targets absent from the node map are
// skipped here; Pass C repairs them. An explicit stack stands in for
// recursion so node count never threatens stack depth.
func breakCycles(s *story.Story, fallback string) {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := make(map[string]int, len(s.Nodes))

	type frame struct {
		key  string
		next int
	}
	for _, root := range s.NodeKeys() {
		if state[root] != white {
			continue
		}
		state[root] = grey
		stack := []frame{{key: root}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			node := s.Nodes[f.key]
			if f.next >= len(node.Choices) {
				state[f.key] = black
				stack = stack[:len(stack)-1]
				continue
			}
			choice := &node.Choices[f.next]
			f.next++
			if choice.Next == f.key {
				choice.Next = fallback
				continue
			}
			if _, ok := s.Nodes[choice.Next]; !ok {
				continue
			}
			switch state[choice.Next] {
			case grey:
				choice.Next = fallback
			case white:
				state[choice.Next] = grey
				stack = append(stack, frame{key: choice.Next})
			}
		}
	}
}

// repairReferences rewrites every choice target that resolves to neither
// a node nor an ending. Blank targets become the fallback terminal key;
// the END sentinel is left alone.
func repairReferences(s *story.Story, fallback string) {
	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		for i := range node.Choices {
			target := node.Choices[i].Next
			switch {
			case target == "":
				node.Choices[i].Next = fallback
			case target == story.SentinelEnd:
			default:
				_, isNode := s.Nodes[target]
				_, isEnding := s.Endings[target]
				if !isNode && !isEnding {
					node.Choices[i].Next = fallback
				}
			}
		}
	}
}

// enforceTerminals clears the choice list of every node whose terminal
// marker references an existing ending (terminal nodes cannot also
// branch), then assigns the canonical neutral ending to any node left
// choiceless without a valid marker. With no neutral ending defined the
// node stays unmarked, which playback treats as a dead end.
func enforceTerminals(s *story.Story) {
	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		if _, ok := s.Endings[node.EndingKey]; ok && node.EndingKey != "" {
			node.Choices = node.Choices[:0]
		}
	}
	_, haveNeutral := s.Endings[story.EndingNeutralKey]
	if !haveNeutral {
		return
	}
	for _, key := range s.NodeKeys() {
		node := s.Nodes[key]
		if len(node.Choices) > 0 {
			continue
		}
		if _, valid := s.Endings[node.EndingKey]; valid && node.EndingKey != "" {
			continue
		}
		node.EndingKey = story.EndingNeutralKey
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
