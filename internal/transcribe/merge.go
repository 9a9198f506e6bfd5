package transcribe

import (
	"sort"
	"strings"
)

// When a transcript carries no usable timestamps, each untimed segment is
// assumed to span this many seconds.
const untimedSegmentSeconds = 5

// NormalizeChunk coerces a worker result into the canonical well-formed
// shape: text with no segments becomes one untimed segment, segments without
// timestamps get evenly spaced estimates, and an end before its start is
// clamped up.
func NormalizeChunk(ct ChunkTranscript) ChunkTranscript {
	if len(ct.Segments) == 0 {
		if strings.TrimSpace(ct.Text) == "" {
			return ct
		}
		ct.Segments = []Segment{{Start: 0, End: untimedSegmentSeconds, Text: ct.Text}}
		return ct
	}

	untimed := true
	for _, s := range ct.Segments {
		if s.Start != 0 || s.End != 0 {
			untimed = false
			break
		}
	}

	segs := make([]Segment, len(ct.Segments))
	copy(segs, ct.Segments)
	for i := range segs {
		if untimed {
			segs[i].Start = float64(i * untimedSegmentSeconds)
			segs[i].End = float64((i + 1) * untimedSegmentSeconds)
		}
		if segs[i].End < segs[i].Start {
			segs[i].End = segs[i].Start
		}
	}
	ct.Segments = segs
	return ct
}

// ShiftChunk moves a chunk transcript from chunk-local into session-global
// time by adding the chunk's offset to every segment.
func ShiftChunk(ct ChunkTranscript, offset float64) ChunkTranscript {
	segs := make([]Segment, len(ct.Segments))
	for i, s := range ct.Segments {
		segs[i] = Segment{Start: s.Start + offset, End: s.End + offset, Text: s.Text}
	}
	ct.Segments = segs
	return ct
}

// Merge combines per-chunk transcripts (already shifted into session-global
// time) into one ordered, deduplicated transcript. chunksAttempted is the
// number of chunks the job tried, including failures that contributed no
// transcript; zero surviving segments is a valid empty result, not an error.
func Merge(chunks []ChunkTranscript, chunksAttempted int) MergedTranscript {
	var flat []Segment
	language := ""
	for _, ct := range chunks {
		ct = NormalizeChunk(ct)
		flat = append(flat, ct.Segments...)
		if language == "" && ct.Language != "" {
			language = ct.Language
		}
	}
	if language == "" {
		language = "unknown"
	}

	// Chunk ordering should already guarantee this; sorting is a safety net
	// for odd worker output.
	sort.SliceStable(flat, func(i, j int) bool { return flat[i].Start < flat[j].Start })

	var kept []Segment
	for _, seg := range flat {
		text := normalizeSpace(seg.Text)
		if len(kept) == 0 {
			kept = append(kept, Segment{Start: seg.Start, End: seg.End, Text: text})
			continue
		}
		last := &kept[len(kept)-1]
		if seg.Start < last.End {
			// Overlap: absorb into the kept segment, skipping text the kept
			// segment already contains.
			if seg.End > last.End {
				last.End = seg.End
			}
			if text != "" && !strings.Contains(last.Text, text) {
				last.Text = normalizeSpace(last.Text + " " + text)
			}
			continue
		}
		kept = append(kept, Segment{Start: seg.Start, End: seg.End, Text: text})
	}

	parts := make([]string, 0, len(kept))
	for _, s := range kept {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}

	duration := 0.0
	if len(kept) > 0 {
		duration = kept[len(kept)-1].End
	}

	return MergedTranscript{
		Text:             strings.Join(parts, " "),
		Language:         language,
		Segments:         kept,
		Duration:         duration,
		ChunksAttempted:  chunksAttempted,
		SegmentsRetained: len(kept),
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
