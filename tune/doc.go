// Package tune provides the tiling design-space model for herd matmul autotuning.
//
// # Reading Guide
//
// Start with these three files:
//   - config.go: Problem Shape, Herd Topology, Tile Config, Format and Memory Budget
//   - space.go: divisor enumeration and the lazy candidate stream
//   - filter.go: the ordered admissibility checks (ledger skip, alignment, coverage, L1, L2)
//
// # Architecture
//
// The tune package defines the data model and pure functions; everything with side
// effects lives in sub-packages:
//   - tune/ledger/: the persisted CSV ledger (load, validity, durable append)
//   - tune/runner/: the compile-run-measure orchestrator around the external toolchain
//   - tune/sweep/: the sweep driver composing generator, filter, runner and ledger
//   - tune/trace/: per-candidate decision recording and summaries
//
// A SweepConfig is built once at entry and passed down explicitly.
package tune
