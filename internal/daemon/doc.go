// Package daemon hosts the long-running factstream process: it enforces
// single-instance execution, owns the pipeline manager and reference corpus,
// and exposes the HTTP API and websocket event stream that the CLI and
// frontends attach to.
package daemon
