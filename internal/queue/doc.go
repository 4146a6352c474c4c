// Package queue persists clipping jobs and their lifecycle state in SQLite.
//
// A job moves through pending, downloading, transcribing, analyzing,
// chapters_ready, processing, and finally completed or failed. The store is
// the only shared mutable resource between workflow lanes; every mutation is
// a single atomic write so concurrent status-polling readers never observe a
// half-updated job.
package queue
