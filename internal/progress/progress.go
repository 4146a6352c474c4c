// Package progress converts stage-local progress into the overall job
// percentage and estimates time remaining from observed stage durations.
package progress

// Stage names used in progress reports and weight lookups.
const (
	StageDownload   = "download"
	StageTranscribe = "transcribe"
	StageAnalyze    = "analyze"
	StageRender     = "render"
)

// stageOrder lists pipeline stages in execution order with their share of
// the overall percentage. The weights sum to 100.
var stageOrder = []struct {
	name   string
	weight int
}{
	{StageDownload, 25},
	{StageTranscribe, 30},
	{StageAnalyze, 15},
	{StageRender, 30},
}

// Overall maps a stage-local percent onto the whole-job scale. The result
// is capped at 99; only a completed job reports 100.
func Overall(stage string, stagePercent float64) int {
	if stagePercent < 0 {
		stagePercent = 0
	}
	if stagePercent > 100 {
		stagePercent = 100
	}

	completed := 0
	for _, entry := range stageOrder {
		if entry.name == stage {
			overall := completed + int(float64(entry.weight)*stagePercent/100)
			if overall > 99 {
				overall = 99
			}
			return overall
		}
		completed += entry.weight
	}
	return 0
}

// Weight returns a stage's share of the overall percentage, or 0 for an
// unknown stage.
func Weight(stage string) int {
	for _, entry := range stageOrder {
		if entry.name == stage {
			return entry.weight
		}
	}
	return 0
}

// Stages returns the pipeline stage names in execution order.
func Stages() []string {
	names := make([]string, len(stageOrder))
	for i, entry := range stageOrder {
		names[i] = entry.name
	}
	return names
}
