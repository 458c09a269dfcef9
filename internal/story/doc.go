// Package story provides the typed branching-narrative document model.
//
// This package contains the Story aggregate and read-only helpers over it:
// canonical JSON serialization and the structural invariant checker. It
// imports nothing internal; decode produces a Story, pipeline mutates it,
// and callers hand the result to persistence and playback.
//
// Key design constraints:
//   - JSON tags use camelCase to match the playback wire format
//   - Map iteration is never relied on for order; use NodeKeys/EndingKeys
//   - The model is owned by exactly one request at a time; no locking
package story
