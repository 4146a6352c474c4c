// Package analyze turns a transcript into chapter candidates.
//
// Two analyzers are available: a rule-based segmenter that splits on long
// speech pauses, and an LLM-backed analyzer that asks a chat model for
// chapter boundaries, summaries, and hook lines. The LLM path is used when
// the job options request it and an API key is configured; any LLM failure
// falls back to the rule-based result so analysis never depends on an
// external service being up.
//
// The resulting chapters are persisted on the job and written to
// chapters.json in the job's artifact directory.
package analyze
