package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// LocalWorker runs a local whisper-style engine, one process per chunk, and
// parses the JSON result it prints to stdout. Chunks are always handed to it
// strictly in index order.
type LocalWorker struct {
	Bin   string // speech-to-text binary
	Model string // model size, e.g. "small"

	// run is swapped out in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewLocalWorker(bin, model string) *LocalWorker {
	if model == "" {
		model = "small"
	}
	return &LocalWorker{Bin: bin, Model: model, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Transcribe invokes the engine for one chunk. A non-zero exit or
// unparseable stdout is a recoverable chunk failure; the orchestrator
// records it and moves on.
func (w *LocalWorker) Transcribe(ctx context.Context, chunkPath string) (ChunkTranscript, error) {
	if w.Bin == "" {
		return ChunkTranscript{}, fmt.Errorf("local speech-to-text binary not configured")
	}

	out, err := w.run(ctx, w.Bin,
		"--audio", chunkPath,
		"--model", w.Model,
		"--language", "auto",
	)
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return ChunkTranscript{}, fmt.Errorf("speech-to-text failed: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return ChunkTranscript{}, fmt.Errorf("running speech-to-text: %w", err)
	}

	var ct ChunkTranscript
	if err := json.Unmarshal(out, &ct); err != nil {
		return ChunkTranscript{}, fmt.Errorf("parsing speech-to-text output: %w", err)
	}
	return ct, nil
}
