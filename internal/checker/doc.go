// Package checker decides which statements need fact-checking and produces
// verdicts for the ones that do.
//
// Classification is a fast, cheap screening call that fails open: when it
// errors, the statement is checked anyway. Verification merges reference
// evidence, live web search, and model knowledge into a single verdict whose
// source_type records exactly which of those contributed.
package checker
