// Package oracle is the boundary to the external profile computation.
//
// The oracle receives one Request naming an output directory and a batch of
// vehicle models, and writes one profile file per model into that directory.
// It is slow and CPU-bound, and it is never retried or interrupted in-process.
//
// Command runs the oracle as an external executable configured with
// ORACLE_COMMAND and ORACLE_ARGS; Func adapts a plain function, which is how
// tests and embedders plug in their own computation.
package oracle
