package subtitle

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Cue is one timed line of text.
type Cue struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Text      string `json:"text"`
}

var decorationReplacer = strings.NewReplacer("♪", "", "[", "", "]", "")

// Parse reads SRT or WebVTT content into cues. Timestamps use a comma before
// the milliseconds. Unreadable input yields no cues.
func Parse(r io.Reader) []Cue {
	data, err := io.ReadAll(r)
	if err != nil {
		slog.Warn("Failed to read subtitles", "error", err)
		return []Cue{}
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	var blocks []string
	if strings.HasPrefix(strings.TrimSpace(content), "WEBVTT") {
		blocks = strings.Split(content, "\n\n")
		if len(blocks) > 0 {
			blocks = blocks[1:]
		}
	} else {
		blocks = strings.Split(strings.TrimSpace(content), "\n\n")
	}

	cues := make([]Cue, 0, len(blocks))
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		tsIdx := -1
		for i, line := range lines {
			if strings.Contains(line, " --> ") {
				tsIdx = i
				break
			}
		}
		if tsIdx < 0 {
			continue
		}

		start, rest, _ := strings.Cut(lines[tsIdx], " --> ")
		end := strings.TrimSpace(rest)
		if fields := strings.Fields(end); len(fields) > 0 {
			end = fields[0]
		}

		text := strings.Join(lines[tsIdx+1:], " ")
		text = decorationReplacer.Replace(text)
		text = strings.Join(strings.Fields(text), " ")
		if text == "" {
			continue
		}

		cues = append(cues, Cue{
			StartTime: normalizeTimestamp(start),
			EndTime:   normalizeTimestamp(end),
			Text:      text,
		})
	}
	return cues
}

// normalizeTimestamp converts a cue time to SRT form, HH:MM:SS,mmm. WebVTT
// may omit the hours.
func normalizeTimestamp(ts string) string {
	ts = strings.ReplaceAll(strings.TrimSpace(ts), ".", ",")
	if strings.Count(ts, ":") == 1 {
		ts = "00:" + ts
	}
	return ts
}

// ParseFile parses the subtitle file at path. A missing or unreadable file
// yields no cues.
func ParseFile(path string) []Cue {
	f, err := os.Open(path)
	if err != nil {
		slog.Warn("Failed to open subtitle file", "path", path, "error", err)
		return []Cue{}
	}
	defer f.Close()
	return Parse(f)
}

// Serialize writes cues as SRT.
func Serialize(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, cue.StartTime, cue.EndTime, cue.Text)
	}
	return b.String()
}

// ToVTT converts SRT content to WebVTT for browser players.
func ToVTT(srt string) string {
	lines := strings.Split(strings.ReplaceAll(srt, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.Contains(line, " --> ") {
			lines[i] = strings.ReplaceAll(line, ",", ".")
		}
	}
	return "WEBVTT\n\n" + strings.Join(lines, "\n")
}
