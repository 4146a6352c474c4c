package render

import (
	"fmt"
	"strings"
)

// ClipSpec describes a single clip render.
type ClipSpec struct {
	Input       string
	Output      string
	Start       float64
	Duration    float64
	AspectRatio string
	CaptionFile string

	CaptionStyle     string
	SmartReframe     bool
	DynamicLayout    bool
	ProgressBar      bool
	ProgressBarColor string
}

// captionStyles maps the configurable caption style names onto ASS
// force_style overrides applied to the subtitles filter.
var captionStyles = map[string]string{
	"default": "FontName=Arial,FontSize=18,PrimaryColour=&HFFFFFF&,OutlineColour=&H000000&,Outline=2,Alignment=2,MarginV=60",
	"bold":    "FontName=Arial Black,FontSize=22,Bold=1,PrimaryColour=&H00FFFF&,OutlineColour=&H000000&,Outline=3,Alignment=2,MarginV=70",
	"minimal": "FontName=Helvetica,FontSize=14,PrimaryColour=&HFFFFFF&,Outline=1,Alignment=2,MarginV=40",
}

// CaptionStyleNames lists the supported caption style identifiers.
func CaptionStyleNames() []string {
	return []string{"default", "bold", "minimal"}
}

// buildFilterChain assembles the -vf expression for a clip.
func buildFilterChain(spec ClipSpec) string {
	var filters []string

	if crop := cropFilter(spec.AspectRatio, spec.SmartReframe); crop != "" {
		filters = append(filters, crop)
	}
	filters = append(filters, scaleFilter(spec.AspectRatio))

	if spec.CaptionFile != "" {
		style, ok := captionStyles[spec.CaptionStyle]
		if !ok {
			style = captionStyles["default"]
		}
		filters = append(filters, fmt.Sprintf("subtitles=%s:force_style='%s'", escapeFilterPath(spec.CaptionFile), style))
	}

	if spec.ProgressBar && spec.Duration > 0 {
		color := strings.TrimPrefix(spec.ProgressBarColor, "#")
		if color == "" {
			color = "FF0045"
		}
		filters = append(filters, fmt.Sprintf(
			"drawbox=x=0:y=ih-12:w='iw*t/%0.3f':h=12:color=0x%s@0.9:t=fill",
			spec.Duration,
			color,
		))
	}

	return strings.Join(filters, ",")
}

// cropFilter centers a crop matching the target aspect ratio. Smart
// reframing biases the crop window toward the upper third, where faces
// usually sit in talking-head footage.
func cropFilter(aspectRatio string, smartReframe bool) string {
	var crop string
	switch aspectRatio {
	case "9:16":
		crop = "crop=ih*9/16:ih"
	case "1:1":
		crop = "crop=ih:ih"
	case "4:5":
		crop = "crop=ih*4/5:ih"
	case "16:9":
		return ""
	default:
		crop = "crop=ih*9/16:ih"
	}
	if smartReframe {
		crop += ":(iw-ow)/2:(ih-oh)/3"
	}
	return crop
}

func scaleFilter(aspectRatio string) string {
	switch aspectRatio {
	case "1:1":
		return "scale=1080:1080"
	case "4:5":
		return "scale=1080:1350"
	case "16:9":
		return "scale=1920:1080"
	default:
		return "scale=1080:1920"
	}
}

// escapeFilterPath escapes characters that break ffmpeg filter parsing.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`,`, `\,`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return replacer.Replace(path)
}
