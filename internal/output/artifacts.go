package output

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/IsmailofficialGithub/meeting-transcript/internal/transcribe"
)

// WriteTranscriptJSON persists the merged transcript as transcript.json.
func WriteTranscriptJSON(path string, t transcribe.MergedTranscript) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing transcript json: %w", err)
	}
	return nil
}

// WriteTranscriptText persists a plain-text rendering, one line per segment
// in `[HH:MM:SS] text` form.
func WriteTranscriptText(path string, t transcribe.MergedTranscript) error {
	var sb strings.Builder
	for _, seg := range t.Segments {
		if seg.Text == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s] %s\n", Timestamp(seg.Start), seg.Text)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing transcript text: %w", err)
	}
	return nil
}

// Timestamp renders seconds as HH:MM:SS.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
