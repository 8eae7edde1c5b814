// Package harness runs YAML store scenarios against an in-memory database.
//
// A scenario describes setup steps, a traced flow of repository operations,
// and assertions over the trace and the final tables. Every run uses a fresh
// ":memory:" store, a deterministic millisecond clock and sequential IDs, so
// traces are reproducible and can be compared against golden snapshots.
//
// # Scenario Format
//
//	name: default_switch
//	description: "Setting a default clears the previous one"
//	clock: { start: 1000, step: 1 }
//	setup:
//	  - op: preset.insert
//	    preset: { id: a, name: A, systemPrompt: p, isDefault: true }
//	flow:
//	  - op: preset.setDefault
//	    id: b
//	    expect: { outcome: not_found }
//	assertions:
//	  - type: default_is
//	    id: a
//	  - type: final_state
//	    table: writing_presets
//	    where: { id: a }
//	    expect: { isDefault: true }
//
// # Step Outcomes
//
//   - ok: the operation succeeded (a lookup found its row)
//   - not_found: a lookup or setDefault named a missing row
//   - error: the operation failed; the trace records the store error code
//
// # Assertion Types
//
//   - trace_contains: an op (optionally with an outcome) appears in the trace
//   - trace_count: an op appears exactly N times
//   - final_state: one row matches where and carries the expected values
//   - row_count: a table holds exactly N rows
//   - default_is: the default preset id, or none
//   - order: the public listing order of presets or recent texts
//
// Each trace event records the store generation after the step: the number
// of commits that notified observers. Rolled-back work leaves it unchanged.
package harness
