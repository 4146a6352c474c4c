// Package workflow advances jobs through the processing pipeline.
//
// The Manager polls the job store, reclaims stale work via heartbeats, and
// feeds jobs into the registered stage handlers (download, transcribe,
// analyze, render) while capturing progress and failure metadata.
//
// Two independent lanes run concurrently: the auto lane carries a job from
// pending through analysis to chapters_ready, and the render lane picks up
// jobs the selection gate has moved to processing. A job parked at
// chapters_ready belongs to no lane and holds no worker; it waits for an
// explicit chapter selection. Each lane runs a small worker pool, and a
// shared active-job set keeps two workers off the same job.
package workflow
