package queue

import "path/filepath"

// ArtifactRoot returns the directory that holds every on-disk artifact for a
// job: the downloaded media, transcript, chapters.json, rendered clips, and
// thumbnails. Deleting this directory removes the job's footprint.
func ArtifactRoot(jobsRoot, jobID string) string {
	return filepath.Join(jobsRoot, jobID)
}
