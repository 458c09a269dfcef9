// Package pipeline implements the deterministic story repair pipeline.
//
// The pipeline takes an arbitrarily malformed generator story and
// transforms it into a structurally valid, acyclic, fully-referenced one.
// Five stages run in mandatory order over the single owned aggregate:
//
//  1. NormalizeKeys       - canonical cast and node keys
//  2. CanonicalizeEndings - merge alias ending keys, cap the ending map
//  3. SanitizeGraph       - collapse duplicates, break cycles, repair refs
//  4. SanitizeEffects     - clamp and re-target affinity effects
//  5. EnforceCast         - restrict cast to the caller's roster
//
// Later stages assume invariants established earlier (the graph sanitizer
// assumes node keys are canonical), so Run never reorders them. Each
// stage is pure in-memory mutation, individually idempotent, and iterates
// explicitly sorted key lists so output is reproducible.
//
// Defects are corrected, never rejected. The one condition repair cannot
// fully resolve - a story with zero endings - surfaces as a Warning, not
// an error: dangling and cyclic choices are redirected to the END
// sentinel and the caller decides whether to request regeneration.
package pipeline
