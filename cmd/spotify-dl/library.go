package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jaki95/spotify-downloader/internal/domain"
	"github.com/olekukonko/tablewriter"
)

func printTracks(w io.Writer, tracks []domain.TrackRecord) {
	if len(tracks) == 0 {
		fmt.Fprintln(w, "No tracks found in database")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Title", "Artist", "Album", "Duration", "Size", "Type", "Downloaded"})
	table.SetRowLine(false)
	table.SetAutoWrapText(false)
	for i, t := range tracks {
		kind := "audio"
		if t.IsVideo {
			kind = "video"
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			t.Title,
			t.Artist,
			t.Album,
			domain.FormatDuration(t.DurationMs),
			humanize.Bytes(uint64(t.FileSize)),
			kind,
			t.DownloadedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func printHistory(w io.Writer, h *domain.DownloadHistory) {
	if h == nil {
		fmt.Fprintln(w, "No download history found")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Statistic", "Value"})
	table.AppendBulk([][]string{
		{"Total Downloads", strconv.Itoa(h.TotalDownloads)},
		{"Audio Downloads", strconv.Itoa(h.TotalAudioDownloads)},
		{"Video Downloads", strconv.Itoa(h.TotalVideoDownloads)},
		{"Total Size", humanize.Bytes(uint64(h.TotalFileSize))},
		{"Spotify Downloads", strconv.Itoa(h.SpotifyDownloads)},
		{"YouTube Downloads", strconv.Itoa(h.YouTubeDownloads)},
		{"Failed Downloads", strconv.Itoa(h.FailedDownloads)},
		{"Unique Artists", strconv.Itoa(h.UniqueArtists)},
		{"Unique Albums", strconv.Itoa(h.UniqueAlbums)},
		{"Last Download", formatTime(h.LastDownloadDate)},
	})
	if h.LastError != "" {
		table.Append([]string{"Last Error", fmt.Sprintf("%s (%s)", h.LastError, formatTime(h.LastErrorDate))})
	}
	table.Render()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02 15:04"), humanize.Time(*t))
}
