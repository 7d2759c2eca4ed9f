package transcript

import (
	"testing"
)

func TestParseCaptions_WebVTT(t *testing.T) {
	vtt := `WEBVTT

00:00:01.000 --> 00:00:04.000
Hello and welcome back.

00:00:04.500 --> 00:00:08.200
Today we're making pasta.
`

	transcript, err := ParseCaptions([]byte(vtt))
	if err != nil {
		t.Fatalf("ParseCaptions failed: %v", err)
	}

	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(transcript.Segments))
	}

	first := transcript.Segments[0]
	if first.StartMs != 1000 || first.EndMs != 4000 {
		t.Errorf("first segment timing = %d-%d", first.StartMs, first.EndMs)
	}
	if first.Text != "Hello and welcome back." {
		t.Errorf("first segment text = %q", first.Text)
	}

	second := transcript.Segments[1]
	if second.StartMs != 4500 || second.EndMs != 8200 {
		t.Errorf("second segment timing = %d-%d", second.StartMs, second.EndMs)
	}

	want := "Hello and welcome back. Today we're making pasta."
	if transcript.Text != want {
		t.Errorf("full text = %q, want %q", transcript.Text, want)
	}
}

func TestParseCaptions_WebVTTWithTagsAndSettings(t *testing.T) {
	vtt := `WEBVTT

00:01.000 --> 00:03.000 align:start position:10%
<v Speaker>Tagged <c.red>text</c> here

00:03.000 --> 00:05.000
Second cue
`

	transcript, err := ParseCaptions([]byte(vtt))
	if err != nil {
		t.Fatalf("ParseCaptions failed: %v", err)
	}

	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(transcript.Segments))
	}
	if transcript.Segments[0].Text != "Tagged text here" {
		t.Errorf("segment text = %q", transcript.Segments[0].Text)
	}
	if transcript.Segments[0].StartMs != 1000 {
		t.Errorf("MM:SS timestamp parsed as %d", transcript.Segments[0].StartMs)
	}
}

func TestParseCaptions_JSON3(t *testing.T) {
	json3 := `{"events":[
		{"tStartMs":0,"dDurationMs":2500,"segs":[{"utf8":"First "},{"utf8":"line"}]},
		{"tStartMs":2500,"dDurationMs":3000,"segs":[{"utf8":"Second line"}]},
		{"tStartMs":5500,"dDurationMs":1000,"segs":[{"utf8":"\n"}]}
	]}`

	transcript, err := ParseCaptions([]byte(json3))
	if err != nil {
		t.Fatalf("ParseCaptions failed: %v", err)
	}

	if len(transcript.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(transcript.Segments))
	}
	if transcript.Segments[0].Text != "First line" {
		t.Errorf("first segment = %q", transcript.Segments[0].Text)
	}
	if transcript.Segments[1].StartMs != 2500 || transcript.Segments[1].EndMs != 5500 {
		t.Errorf("second segment timing = %d-%d",
			transcript.Segments[1].StartMs, transcript.Segments[1].EndMs)
	}
	if transcript.Text != "First line Second line" {
		t.Errorf("full text = %q", transcript.Text)
	}
}

func TestParseCaptions_UnknownFormat(t *testing.T) {
	_, err := ParseCaptions([]byte("1\n00:00:01,000 --> 00:00:02,000\nSRT cue\n"))
	if err == nil {
		t.Fatal("expected error for unrecognized format")
	}
}

func TestParseCaptions_EmptyTrack(t *testing.T) {
	transcript, err := ParseCaptions([]byte("WEBVTT\n\n"))
	if err != nil {
		t.Fatalf("ParseCaptions failed: %v", err)
	}
	if !transcript.IsEmpty() {
		t.Error("expected empty transcript")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		ts   string
		want int64
	}{
		{"00:00:01.000", 1000},
		{"00:01:30.500", 90500},
		{"01:00:00.000", 3600000},
		{"02:15.250", 135250},
	}

	for _, tt := range tests {
		got, err := parseTimestamp(tt.ts)
		if err != nil {
			t.Errorf("parseTimestamp(%q) failed: %v", tt.ts, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTimestamp(%q) = %d, want %d", tt.ts, got, tt.want)
		}
	}
}
