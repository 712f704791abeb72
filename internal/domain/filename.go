package domain

import (
	"fmt"
	"strings"
)

var filenameReplacer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", "\"", "_",
	"/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename makes name safe as a single path element on every
// platform we write to.
func SanitizeFilename(name string) string {
	result := filenameReplacer.Replace(name)
	result = strings.TrimRight(result, ". ")
	if result == "" {
		return "unnamed"
	}
	return result
}

// TrackFileBase is the extension-less file name for a track.
func TrackFileBase(title, contributor string) string {
	return fmt.Sprintf("%s - %s", SanitizeFilename(title), SanitizeFilename(contributor))
}

// FormatDuration renders milliseconds as M:SS or H:MM:SS.
func FormatDuration(durationMs int) string {
	if durationMs <= 0 {
		return "0:00"
	}
	total := durationMs / 1000
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
