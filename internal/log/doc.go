// Package log provides logging with automatic redaction of contributor
// identity, built on top of the standard slog package.
//
// Annotation batches carry contributor UUIDs and task metadata that count
// as worker PII under most crowd-work platform agreements. The
// RedactHandler masks identifying attribute values before they reach the
// underlying handler, so even debug-level logs can be shared or stored
// without leaking who highlighted what.
package log
