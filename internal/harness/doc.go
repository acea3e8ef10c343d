// Package harness runs pull scenarios written in YAML and checks their
// outcomes, final documents and log entries.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  indexes: [tags]
//	documents:
//	  - id: d1
//	    value: {tags: [1, a, 2]}
//	steps:
//	  - doc: d1
//	    path: tags
//	    cond: a
//	    expect:
//	      removed: 1
//	      indexes_affected: true
//	assertions:
//	  - type: final_document
//	    doc: d1
//	    expect: {tags: [1, 2]}
//	  - type: log_count
//	    doc: d1
//	    count: 1
//	  - type: replay_matches
//	    doc: d1
//
// Conditions and documents are read as doc values, so !regex literals
// work in both.
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory store with a
// testutil.DeterministicClock, so sequence numbers, and therefore golden
// traces, are identical across runs. Entry ids and hashes are left out of
// the trace.
package harness
