package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/jaki95/spotify-downloader/internal/progress"
	"github.com/schollz/progressbar/v3"
)

// consoleSink prints status messages in colour and drives one progress bar
// per fetched track.
type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
	// current track label, used as the bar description
	label string
}

func newConsoleSink(out io.Writer) *consoleSink {
	return &consoleSink{out: out}
}

func (s *consoleSink) Emit(event progress.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Kind {
	case progress.KindStatus:
		if event.TrackDetails != nil {
			s.finishBar()
			s.label = fmt.Sprintf("[cyan][%d/%d][reset] %s", event.TrackDetails.TrackNumber, event.TrackDetails.TotalTracks, event.TrackDetails.CurrentTrack)
		}
		if s.bar != nil {
			s.bar.Clear()
		}
		fmt.Fprintln(s.out, levelColor(event.Level).Sprint(event.Message))
	case progress.KindProgress:
		if s.bar == nil {
			s.bar = s.newBar()
		}
		s.bar.Set(int(progress.Clamp(event.Progress)))
	case progress.KindComplete:
		s.finishBar()
	}
}

func (s *consoleSink) newBar() *progressbar.ProgressBar {
	desc := s.label
	if desc == "" {
		desc = "Downloading..."
	}
	return progressbar.NewOptions(
		100,
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetPredictTime(false),
	)
}

func (s *consoleSink) finishBar() {
	if s.bar == nil {
		return
	}
	s.bar.Finish()
	fmt.Fprintln(s.out)
	s.bar = nil
}

func levelColor(level progress.Level) *color.Color {
	switch level {
	case progress.LevelSuccess:
		return color.New(color.FgGreen)
	case progress.LevelWarning:
		return color.New(color.FgYellow)
	case progress.LevelError:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Reset)
	}
}
