// Package log provides structured event logging for the MeshX node core.
//
// This package defines the Logger interface and Event types for capturing
// node-level events across the application layers (bus, model adapters,
// elements, app API). It is separate from operational logging (slog) -
// event capture provides a machine-readable trace of every envelope,
// model send, and error for debugging and post-mortem analysis.
//
// # Basic Usage
//
// Components take a Logger at construction time:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For field captures: write to binary file
//	logger, _ := log.NewFileLogger("/var/log/meshx/node.xlog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// Pass nil or NoopLogger to disable logging.
//
// # File Format
//
// Log files use CBOR encoding with .xlog extension, one event per CBOR
// data item, integer-keyed for compactness.
package log
