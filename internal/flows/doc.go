// Package flows contains pure-function orchestrators for the Engine's session
// operations.
//
// Each flow function (RunCreateSession, RunValidateSession, RunSessionCheck,
// RunDeactivation, ...) accepts a typed dependency struct and returns results
// without side effects beyond those dependencies, which keeps the Engine thin
// and lets every branch be tested with fakes.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the session store, the account lookup and
// the broadcaster. They do NOT own any of these resources; ownership stays
// with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import soundwave (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency interfaces.
package flows
