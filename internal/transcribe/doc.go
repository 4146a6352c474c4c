// Package transcribe produces an SRT transcript for a downloaded video
// using a Whisper-compatible command line tool.
//
// An existing transcript file is reused when the stage is re-entered, so a
// crash between transcription and analysis does not repeat the expensive
// speech-to-text run. A transcript with no cues fails the job: later stages
// depend on spoken content.
package transcribe
