// Package logging configures slog for the daemon and provides typed attribute
// helpers so call sites stay consistent about field names.
package logging
