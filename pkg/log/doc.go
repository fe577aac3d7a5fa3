// Package log records an audit trail of issued and opened lock payloads.
//
// This package defines the Logger interface and Event type for capturing
// every payload the server issues and every payload a verifier opens,
// including failures. It is separate from operational logging (logrus):
// the event log is a machine-readable record kept for audit.
//
// # Basic Usage
//
//	// For development: log to console via logrus
//	cfg.EventLogger = log.NewLogrusAdapter(logrus.StandardLogger())
//
//	// For production: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/lib/causp/events.clog")
//
//	// Both: use MultiLogger
//	cfg.EventLogger = log.NewMultiLogger(console, file)
//
// # Secrets
//
// CONFIG payloads carry raw key material in their body. Their bytes are
// never recorded; only the operation, role and size are.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .clog extension.
// The causp-log CLI tool provides viewing, filtering and statistics.
package log
