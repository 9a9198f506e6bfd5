package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/IsmailofficialGithub/meeting-transcript/internal/output"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/store"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/transcribe"
)

func NewTranscribeCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a recording",
		Long:  "Split the audio into chunks, transcribe them, and write transcript.txt and transcript.json next to the audio file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)
			return processRecording(cmd.Context(), deps, args[0], formatter)
		},
	}
	return cmd
}

// processRecording runs the transcription pipeline over one audio file and
// persists the transcript artifacts. Shared by the transcribe command and
// record --transcribe.
func processRecording(ctx context.Context, deps *Dependencies, audioPath string, formatter *output.Formatter) error {
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file not found: %s", audioPath)
	}

	orchestrator := deps.App.Orchestrator
	orchestrator.OnEvent = func(ev transcribe.JobEvent) {
		switch ev.Type {
		case transcribe.JobSplitComplete:
			formatter.SplitComplete(ev.Total)
		case transcribe.JobChunkStart:
			formatter.ChunkStart(ev.Index, ev.Total)
		case transcribe.JobChunkComplete:
			formatter.ChunkComplete(ev.Index, ev.Total)
		case transcribe.JobChunkError:
			formatter.ChunkError(ev.Index, ev.Reason)
		case transcribe.JobError:
			formatter.Error(ev.Reason)
		}
	}

	result, err := orchestrator.ProcessAudio(ctx, audioPath)
	if err != nil {
		return err
	}

	if len(result.FailedChunks) > 0 {
		formatter.Warning(fmt.Sprintf("%d of %d chunk(s) failed; transcript is partial",
			len(result.FailedChunks), result.ChunkCount))
	}

	dir := filepath.Dir(audioPath)
	jsonPath := filepath.Join(dir, "transcript.json")
	textPath := filepath.Join(dir, "transcript.txt")

	if err := output.WriteTranscriptJSON(jsonPath, result.Transcript); err != nil {
		return fmt.Errorf("writing transcript.json: %w", err)
	}
	if err := output.WriteTranscriptText(textPath, result.Transcript); err != nil {
		return fmt.Errorf("writing transcript.txt: %w", err)
	}

	rec := store.TranscriptRecord{
		ID:              uuid.NewString(),
		AudioPath:       audioPath,
		Language:        result.Transcript.Language,
		DurationSeconds: result.Transcript.Duration,
		ChunkCount:      result.ChunkCount,
		SegmentCount:    len(result.Transcript.Segments),
		FailedChunks:    len(result.FailedChunks),
		JSONPath:        jsonPath,
		TextPath:        textPath,
		CreatedAt:       time.Now(),
	}
	if err := deps.App.History.SaveTranscript(rec); err != nil {
		formatter.Warning("could not save transcript history: " + err.Error())
	}

	formatter.TranscribeDone(textPath, result.Elapsed)
	return nil
}
