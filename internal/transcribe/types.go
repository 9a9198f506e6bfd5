// Package transcribe turns a finished recording into a time-aligned
// transcript: it splits the audio into fixed-duration chunks, dispatches
// them to a local speech-to-text engine or a remote API worker pool, and
// merges the partial results into one ordered transcript.
package transcribe

import "context"

// Segment is one timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ChunkTranscript is the result of transcribing a single audio chunk.
// Times are chunk-local until the orchestrator shifts them.
type ChunkTranscript struct {
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// MergedTranscript is the final assembled transcript in session-global time.
type MergedTranscript struct {
	Text             string    `json:"text"`
	Language         string    `json:"language"`
	Segments         []Segment `json:"segments"`
	Duration         float64   `json:"duration"`
	ChunksAttempted  int       `json:"chunksAttempted"`
	SegmentsRetained int       `json:"segmentsRetained"`
}

// Worker transcribes one chunk file. Implementations: the sequential local
// engine and the remote API pool.
type Worker interface {
	Transcribe(ctx context.Context, chunkPath string) (ChunkTranscript, error)
}

// PoolWorker is a Worker backed by a pool of rotating API credentials.
type PoolWorker interface {
	Worker
	Keys() int
}
