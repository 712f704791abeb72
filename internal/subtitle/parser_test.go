package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const srtSample = `1
00:00:01,000 --> 00:00:04,000
♪ Hello [music] ♪

2
00:00:05,000 --> 00:00:08,500
second   line
continues here

3
00:00:09,000 --> 00:00:10,000
♪ ♪
`

const vttSample = "WEBVTT\nKind: captions\nLanguage: en\n\n" +
	"00:00:01.000 --> 00:00:04.000 align:start position:0%\n" +
	"Hello music\n\n" +
	"00:00:05.000 --> 00:00:08.500\n" +
	"second line continues here\n"

func TestParseSRT(t *testing.T) {
	cues := Parse(strings.NewReader(srtSample))

	require.Len(t, cues, 2, "decoration-only cue should be dropped")
	assert.Equal(t, Cue{StartTime: "00:00:01,000", EndTime: "00:00:04,000", Text: "Hello music"}, cues[0])
	assert.Equal(t, Cue{StartTime: "00:00:05,000", EndTime: "00:00:08,500", Text: "second line continues here"}, cues[1])
}

func TestParseVTTMatchesSRT(t *testing.T) {
	srt := Parse(strings.NewReader(srtSample))
	vtt := Parse(strings.NewReader(vttSample))

	assert.Equal(t, srt, vtt)
}

func TestParseVTTShortTimestamps(t *testing.T) {
	vtt := "WEBVTT\n\n00:01.000 --> 00:02.500\nHello\n\n59:58.250 --> 01:00:01.000 line:0\nLate\n"
	cues := Parse(strings.NewReader(vtt))

	require.Len(t, cues, 2)
	assert.Equal(t, Cue{StartTime: "00:00:01,000", EndTime: "00:00:02,500", Text: "Hello"}, cues[0])
	assert.Equal(t, Cue{StartTime: "00:59:58,250", EndTime: "01:00:01,000", Text: "Late"}, cues[1])
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,500\nHello\n\n2\n00:59:58,250 --> 01:00:01,000\nLate\n", Serialize(cues))
}

func TestParseCRLF(t *testing.T) {
	cues := Parse(strings.NewReader(strings.ReplaceAll(srtSample, "\n", "\r\n")))
	assert.Len(t, cues, 2)
}

func TestParseMalformed(t *testing.T) {
	inputs := []string{
		"",
		"just some text",
		"1\nno timestamp here\n\n2\nstill nothing",
		"00:00:01,000 --> 00:00:02,000",
	}
	for _, input := range inputs {
		assert.Empty(t, Parse(strings.NewReader(input)), "input %q", input)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk error") }

func TestParseReadError(t *testing.T) {
	cues := Parse(failingReader{})
	assert.NotNil(t, cues)
	assert.Empty(t, cues)
}

func TestParseFileMissing(t *testing.T) {
	assert.Empty(t, ParseFile(filepath.Join(t.TempDir(), "missing.srt")))
}

func TestCueRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "comma delimiters", input: srtSample},
		{name: "period delimiters", input: vttSample},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := Parse(strings.NewReader(tt.input))
			require.NotEmpty(t, first)

			second := Parse(strings.NewReader(Serialize(first)))
			assert.Equal(t, first, second)
			for _, cue := range second {
				assert.NotContains(t, cue.StartTime, ".")
				assert.NotContains(t, cue.EndTime, ".")
			}
		})
	}
}

func TestToVTT(t *testing.T) {
	srt := "1\n00:00:01,000 --> 00:00:02,500\nHello, world\n"
	vtt := ToVTT(srt)

	assert.True(t, strings.HasPrefix(vtt, "WEBVTT\n\n"))
	assert.Contains(t, vtt, "00:00:01.000 --> 00:00:02.500")
	assert.Contains(t, vtt, "Hello, world", "commas in text are kept")

	cues := Parse(strings.NewReader(vtt))
	require.Len(t, cues, 1)
	assert.Equal(t, "00:00:01,000", cues[0].StartTime)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.srt")
	require.NoError(t, os.WriteFile(path, []byte(srtSample), 0644))
	assert.Len(t, ParseFile(path), 2)
}
