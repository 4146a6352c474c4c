// Package textutil provides small text normalization helpers shared across
// the pipeline: filename token sanitization and human-readable time
// formatting.
package textutil
