// Package engine implements the workflow execution engine that drives
// the audit pipelines.
//
// A workflow is a directed graph of named nodes operating on a shared
// state bag. Each state field declares a merge policy up front
// (overwrite, first-wins, or append), which makes concurrent writes a
// checkable contract instead of ad hoc map merging:
//
//   - Overwrite: last writer wins. Two concurrent branches declaring a
//     write to the same overwrite field is rejected at construction time.
//   - FirstWins: the first write sticks; later writes are discarded.
//   - Append: values are sequences; concurrent writers' items are
//     concatenated in branch-completion order.
//
// The engine supports sequential edges with optional conditions,
// parallel branch nodes, and bounded iteration over runtime item lists
// (ForEach) in streaming or batch mode. Total node executions are
// capped by a configurable step budget; exceeding it fails loudly with
// ErrIterationBound rather than degrading silently.
//
// Stage failures are classified: errors wrapped with Recoverable are
// retried per policy and then absorbed through the OnRecoverable hook;
// anything else is fatal for the enclosing branch and propagates.
//
// # Import Rules
//
//   - Can Import: Standard library, golang.org/x/sync
//   - Cannot Import: domain, ports, adapters (the engine is generic)
package engine
