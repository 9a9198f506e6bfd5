package transcribe

import (
	"testing"
)

func TestMergeOrdersAndShifts(t *testing.T) {
	// 3 chunks of 60s: chunk 0 and 1 succeed, chunk 2 failed and is absent.
	chunk0 := ShiftChunk(NormalizeChunk(ChunkTranscript{
		Text:     "Hello",
		Language: "en",
		Segments: []Segment{{Start: 0, End: 2, Text: "Hello"}},
	}), 0)
	chunk1 := ShiftChunk(NormalizeChunk(ChunkTranscript{
		Text:     "World",
		Segments: []Segment{{Start: 0, End: 2, Text: "World"}},
	}), 60)

	got := Merge([]ChunkTranscript{chunk0, chunk1}, 3)

	if got.Text != "Hello World" {
		t.Errorf("text = %q, want %q", got.Text, "Hello World")
	}
	if got.ChunksAttempted != 3 {
		t.Errorf("chunksAttempted = %d, want 3", got.ChunksAttempted)
	}
	if got.SegmentsRetained != 2 {
		t.Fatalf("segmentsRetained = %d, want 2", got.SegmentsRetained)
	}
	want := []Segment{{0, 2, "Hello"}, {60, 62, "World"}}
	for i, w := range want {
		if got.Segments[i] != w {
			t.Errorf("segment %d = %+v, want %+v", i, got.Segments[i], w)
		}
	}
	if got.Language != "en" {
		t.Errorf("language = %q, want en", got.Language)
	}
	if got.Duration != 62 {
		t.Errorf("duration = %v, want 62", got.Duration)
	}
}

func TestMergeInvariants(t *testing.T) {
	chunks := []ChunkTranscript{
		{Segments: []Segment{{Start: 10, End: 12, Text: "b"}, {Start: 0, End: 3, Text: "a"}}},
		{Segments: []Segment{{Start: 20, End: 19, Text: "c"}}}, // end before start
	}

	got := Merge(chunks, 2)

	prev := -1.0
	for i, s := range got.Segments {
		if s.Start < prev {
			t.Errorf("segment %d start %v before previous start %v", i, s.Start, prev)
		}
		if s.End < s.Start {
			t.Errorf("segment %d end %v < start %v", i, s.End, s.Start)
		}
		prev = s.Start
	}
}

func TestMergeDeduplicatesOverlap(t *testing.T) {
	chunks := []ChunkTranscript{
		{Segments: []Segment{{Start: 0, End: 10, Text: "we should ship on friday"}}},
		{Segments: []Segment{{Start: 8, End: 14, Text: "and then celebrate"}}},
	}

	got := Merge(chunks, 2)

	if len(got.Segments) != 1 {
		t.Fatalf("got %d segments, want 1 merged", len(got.Segments))
	}
	s := got.Segments[0]
	if s.Start != 0 || s.End != 14 {
		t.Errorf("merged span = [%v,%v], want [0,14]", s.Start, s.End)
	}
	if s.Text != "we should ship on friday and then celebrate" {
		t.Errorf("merged text = %q", s.Text)
	}
}

func TestMergeOverlapDropsContainedText(t *testing.T) {
	chunks := []ChunkTranscript{
		{Segments: []Segment{{Start: 0, End: 10, Text: "we should ship on friday"}}},
		{Segments: []Segment{{Start: 9, End: 10, Text: "ship on friday"}}},
	}

	got := Merge(chunks, 2)

	if len(got.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(got.Segments))
	}
	if got.Segments[0].Text != "we should ship on friday" {
		t.Errorf("text = %q, duplicate was appended", got.Segments[0].Text)
	}
	if got.Segments[0].End != 10 {
		t.Errorf("end = %v, want 10", got.Segments[0].End)
	}
}

func TestMergeOverlapKeepsLongerEnd(t *testing.T) {
	chunks := []ChunkTranscript{
		{Segments: []Segment{{Start: 0, End: 20, Text: "a"}}},
		{Segments: []Segment{{Start: 5, End: 8, Text: "b"}}},
	}

	got := Merge(chunks, 2)

	if len(got.Segments) != 1 {
		t.Fatalf("got %d segments, want 1", len(got.Segments))
	}
	if got.Segments[0].End != 20 {
		t.Errorf("end = %v, want 20 (later of the two)", got.Segments[0].End)
	}
}

func TestMergeEmptyInput(t *testing.T) {
	got := Merge(nil, 4)

	if got.Text != "" || len(got.Segments) != 0 {
		t.Errorf("empty merge produced content: %+v", got)
	}
	if got.Duration != 0 {
		t.Errorf("duration = %v, want 0", got.Duration)
	}
	if got.Language != "unknown" {
		t.Errorf("language = %q, want unknown", got.Language)
	}
	if got.ChunksAttempted != 4 {
		t.Errorf("chunksAttempted = %d, want 4", got.ChunksAttempted)
	}
}

func TestMergeLanguageFallback(t *testing.T) {
	chunks := []ChunkTranscript{
		{Segments: []Segment{{0, 1, "x"}}},
		{Language: "de", Segments: []Segment{{2, 3, "y"}}},
		{Language: "fr", Segments: []Segment{{4, 5, "z"}}},
	}
	if got := Merge(chunks, 3); got.Language != "de" {
		t.Errorf("language = %q, want first non-empty (de)", got.Language)
	}
}

func TestNormalizeChunkTextOnly(t *testing.T) {
	got := NormalizeChunk(ChunkTranscript{Text: "just words"})

	if len(got.Segments) != 1 {
		t.Fatalf("got %d segments, want 1 synthesized", len(got.Segments))
	}
	if got.Segments[0] != (Segment{Start: 0, End: 5, Text: "just words"}) {
		t.Errorf("segment = %+v", got.Segments[0])
	}
}

func TestNormalizeChunkUntimedSegments(t *testing.T) {
	got := NormalizeChunk(ChunkTranscript{Segments: []Segment{
		{Text: "first"}, {Text: "second"}, {Text: "third"},
	}})

	want := []Segment{{0, 5, "first"}, {5, 10, "second"}, {10, 15, "third"}}
	for i, w := range want {
		if got.Segments[i] != w {
			t.Errorf("segment %d = %+v, want %+v", i, got.Segments[i], w)
		}
	}
}

func TestNormalizeChunkKeepsRealTimestamps(t *testing.T) {
	in := ChunkTranscript{Segments: []Segment{{0, 2.5, "a"}, {2.5, 4, "b"}}}
	got := NormalizeChunk(in)

	for i := range in.Segments {
		if got.Segments[i] != in.Segments[i] {
			t.Errorf("segment %d changed: %+v", i, got.Segments[i])
		}
	}
}

func TestNormalizeChunkEmpty(t *testing.T) {
	got := NormalizeChunk(ChunkTranscript{})
	if len(got.Segments) != 0 {
		t.Errorf("empty chunk grew segments: %+v", got.Segments)
	}
}

func TestShiftChunk(t *testing.T) {
	in := ChunkTranscript{Segments: []Segment{{1, 2, "a"}, {3, 4, "b"}}}
	got := ShiftChunk(in, 120)

	if got.Segments[0].Start != 121 || got.Segments[0].End != 122 {
		t.Errorf("segment 0 = %+v", got.Segments[0])
	}
	if got.Segments[1].Start != 123 || got.Segments[1].End != 124 {
		t.Errorf("segment 1 = %+v", got.Segments[1])
	}
	// Input must stay untouched.
	if in.Segments[0].Start != 1 {
		t.Error("ShiftChunk mutated its input")
	}
}

func TestMergeNormalizesWhitespace(t *testing.T) {
	chunks := []ChunkTranscript{
		{Segments: []Segment{{0, 2, "  hello\n  there "}}},
	}
	got := Merge(chunks, 1)
	if got.Text != "hello there" {
		t.Errorf("text = %q, want %q", got.Text, "hello there")
	}
}
