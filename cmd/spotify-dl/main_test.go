package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/jaki95/spotify-downloader/internal/orchestrator"
	"github.com/jaki95/spotify-downloader/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := newConsoleSink(&buf)

	sink.Emit(progress.Event{
		Kind:         progress.KindStatus,
		Level:        progress.LevelInfo,
		Message:      "Downloading 1/2: Song by Artist",
		TrackDetails: &progress.TrackDetails{TrackNumber: 1, TotalTracks: 2, CurrentTrack: "Song"},
	})
	sink.Emit(progress.ProgressEvent(40))
	assert.NotNil(t, sink.bar)

	sink.Emit(progress.ProgressEvent(140))
	assert.EqualValues(t, 100, sink.bar.State().CurrentNum)

	sink.Emit(progress.Event{Kind: progress.KindComplete})
	assert.Nil(t, sink.bar)

	sink.Emit(progress.StatusEvent(progress.LevelError, "No YouTube results found for: x"))
	assert.Contains(t, buf.String(), "Downloading 1/2: Song by Artist")
	assert.Contains(t, buf.String(), "No YouTube results found for: x")
}

func TestPrintTracks(t *testing.T) {
	var buf bytes.Buffer
	printTracks(&buf, nil)
	assert.Contains(t, buf.String(), "No tracks found")

	buf.Reset()
	printTracks(&buf, []domain.TrackRecord{{
		Title:        "Blue Monday",
		Artist:       "New Order",
		Album:        "Power, Corruption & Lies",
		DurationMs:   448000,
		FileSize:     7_300_000,
		DownloadedAt: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}})
	out := buf.String()
	assert.Contains(t, out, "Blue Monday")
	assert.Contains(t, out, "7:28")
	assert.Contains(t, out, "7.3 MB")
	assert.Contains(t, out, "2024-06-01 09:30")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, &domain.DownloadHistory{
		TotalDownloads: 3,
		TotalFileSize:  1_500_000,
		LastError:      "no YouTube results",
	})
	out := buf.String()
	assert.Contains(t, out, "1.5 MB")
	assert.Contains(t, out, "no YouTube results")
	assert.Contains(t, out, "never")
}

type scriptedPipeline struct {
	sink     progress.Sink
	events   []progress.Event
	outcomes []domain.Outcome
	err      error
}

func (p *scriptedPipeline) Run(context.Context, orchestrator.Request) (*orchestrator.BatchResult, error) {
	for _, event := range p.events {
		p.sink.Emit(event)
	}
	if p.err != nil {
		return nil, p.err
	}
	return &orchestrator.BatchResult{Outcomes: p.outcomes}, nil
}

func TestRunBatch(t *testing.T) {
	tests := []struct {
		name      string
		pipeline  scriptedPipeline
		wantErr   string
		wantPrint []string
	}{
		{
			name: "success",
			pipeline: scriptedPipeline{
				events:   []progress.Event{progress.StatusEvent(progress.LevelSuccess, "Downloaded: Song")},
				outcomes: []domain.Outcome{{Index: 1, Status: domain.OutcomeSucceeded, FilePath: "/out/Song - Artist.m4a"}},
			},
			wantPrint: []string{"Downloaded: Song"},
		},
		{
			name: "every track failed",
			pipeline: scriptedPipeline{
				events:   []progress.Event{progress.StatusEvent(progress.LevelError, "No YouTube results found for: Song")},
				outcomes: []domain.Outcome{{Index: 1, Status: domain.OutcomeLocatorMiss}},
			},
			wantErr:   "no tracks were downloaded: No YouTube results found for: Song",
			wantPrint: []string{"No YouTube results found for: Song"},
		},
		{
			name:      "pipeline error is printed once",
			pipeline:  scriptedPipeline{err: errors.New("catalog unavailable")},
			wantErr:   "catalog unavailable",
			wantPrint: []string{"catalog unavailable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			console := newConsoleSink(&buf)
			p := tt.pipeline
			newPipeline := func(sink progress.Sink) pipeline {
				p.sink = sink
				return &p
			}

			err := runBatch(context.Background(), newPipeline, console, orchestrator.Request{URL: "https://open.spotify.com/track/x"})
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.EqualError(t, err, tt.wantErr)
			}
			for _, want := range tt.wantPrint {
				assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte(want)), "expected %q once in %q", want, buf.String())
			}
		})
	}
}
