package transcript

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/candidstudio/moodgrab/internal/domain"
)

// CaptionFetcher downloads platform-native caption tracks and parses
// them into transcripts. WebVTT and YouTube's json3 format are
// supported; the format is sniffed from the payload, not the URL.
type CaptionFetcher struct {
	userAgent  string
	httpClient *http.Client
}

// NewCaptionFetcher creates a caption fetcher.
func NewCaptionFetcher(userAgent string, timeout time.Duration, client *http.Client) *CaptionFetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &CaptionFetcher{userAgent: userAgent, httpClient: client}
}

// Fetch downloads the caption track and parses it.
func (f *CaptionFetcher) Fetch(ctx context.Context, captionURL string) (*domain.Transcript, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, captionURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption track returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read caption track: %w", err)
	}

	return ParseCaptions(body)
}

// ParseCaptions sniffs the caption format and parses it.
func ParseCaptions(data []byte) (*domain.Transcript, error) {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return parseWebVTT(trimmed)
	case strings.HasPrefix(trimmed, "{"):
		return parseJSON3(data)
	default:
		return nil, fmt.Errorf("unrecognized caption format")
	}
}

// parseWebVTT converts a WebVTT track into a transcript. Cue settings,
// speaker tags and styling blocks are dropped.
func parseWebVTT(body string) (*domain.Transcript, error) {
	var segments []domain.Segment
	var text strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(body))
	var current *domain.Segment

	flush := func() {
		if current != nil && current.Text != "" {
			segments = append(segments, *current)
			if text.Len() > 0 {
				text.WriteString(" ")
			}
			text.WriteString(current.Text)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.Contains(line, "-->") {
			flush()
			start, end, err := parseCueTiming(line)
			if err != nil {
				continue
			}
			current = &domain.Segment{StartMs: start, EndMs: end}
			continue
		}

		if line == "" {
			flush()
			continue
		}

		if current != nil {
			cleaned := stripCueTags(line)
			if cleaned == "" {
				continue
			}
			if current.Text != "" {
				current.Text += " "
			}
			current.Text += cleaned
		}
	}
	flush()

	if len(segments) == 0 {
		return &domain.Transcript{}, nil
	}

	return &domain.Transcript{Text: text.String(), Segments: segments}, nil
}

// parseCueTiming parses "00:00:01.000 --> 00:00:04.000" (cue settings
// after the end stamp are ignored).
func parseCueTiming(line string) (startMs, endMs int64, err error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed cue timing %q", line)
	}

	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}

	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("malformed cue timing %q", line)
	}
	end, err := parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// parseTimestamp parses "HH:MM:SS.mmm" or "MM:SS.mmm" into millis.
func parseTimestamp(ts string) (int64, error) {
	var h, m int64
	var s float64

	fields := strings.Split(ts, ":")
	switch len(fields) {
	case 3:
		var err error
		if h, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
			return 0, err
		}
		if m, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
			return 0, err
		}
		if s, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return 0, err
		}
	case 2:
		var err error
		if m, err = strconv.ParseInt(fields[0], 10, 64); err != nil {
			return 0, err
		}
		if s, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}

	return h*3600000 + m*60000 + int64(s*1000), nil
}

// stripCueTags removes inline <c>, <v Speaker> and timing tags.
func stripCueTags(line string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range line {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}

// json3Track is YouTube's json3 caption payload shape.
type json3Track struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(data []byte) (*domain.Transcript, error) {
	var track json3Track
	if err := json.Unmarshal(data, &track); err != nil {
		return nil, fmt.Errorf("decode json3 captions: %w", err)
	}

	var segments []domain.Segment
	var text strings.Builder

	for _, event := range track.Events {
		var sb strings.Builder
		for _, seg := range event.Segs {
			sb.WriteString(seg.UTF8)
		}
		line := strings.TrimSpace(strings.ReplaceAll(sb.String(), "\n", " "))
		if line == "" {
			continue
		}

		segments = append(segments, domain.Segment{
			StartMs: event.StartMs,
			EndMs:   event.StartMs + event.DurationMs,
			Text:    line,
		})
		if text.Len() > 0 {
			text.WriteString(" ")
		}
		text.WriteString(line)
	}

	if len(segments) == 0 {
		return &domain.Transcript{}, nil
	}

	return &domain.Transcript{Text: text.String(), Segments: segments}, nil
}
