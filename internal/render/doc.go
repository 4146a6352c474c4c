// Package render cuts the selected chapters into captioned vertical clips
// with ffmpeg.
//
// Each clip is rendered independently: the output file name is derived
// from the chapter, and a clip whose output already exists is skipped, so
// re-entering the stage after a crash only renders what is missing. Every
// clip gets a thumbnail and a per-clip SRT caption track sliced from the
// full transcript.
package render
