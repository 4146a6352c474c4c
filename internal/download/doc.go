// Package download fetches source videos with yt-dlp.
//
// The stage resolves video metadata first, then downloads the media file
// into the job's artifact directory. A media file that already exists on
// disk is reused, so re-entering the stage after a crash does not repeat
// the network transfer.
package download
