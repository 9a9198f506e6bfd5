package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"github.com/IsmailofficialGithub/meeting-transcript/internal/audio"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/output"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/session"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/store"
)

// FolderTemplateData holds the template variables available for folder naming.
type FolderTemplateData struct {
	Year   string
	Month  string
	Day    string
	Hour   string
	Minute string
	Second string
	Name   string
}

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	var name string
	var mode string
	var transcribeAfter bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a meeting",
		Long:  "Record audio in the foreground. Type p to pause, r to resume, q to stop.\nWith --transcribe the recording is transcribed right after it stops.",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			captureMode, err := audio.ParseMode(mode)
			if err != nil {
				return err
			}

			now := time.Now()
			dirName, err := renderFolderName(deps.Config.FolderTemplate, now, name)
			if err != nil {
				return fmt.Errorf("rendering folder name: %w", err)
			}
			dir := filepath.Join(deps.Config.RecordingsDir, dirName)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating recording directory: %w", err)
			}

			devices := audio.Devices{
				Mic:      deps.Config.MicDevice,
				Loopback: deps.Config.LoopbackDevice,
			}

			ctx := cmd.Context()
			sess, err := deps.App.Recorder.Start(ctx, captureMode, devices, dir)
			if err != nil {
				return err
			}

			formatter.RecordingStarted(dir, mode)

			eventsDone := make(chan struct{})
			go func() {
				defer close(eventsDone)
				for ev := range sess.Events() {
					switch ev.Type {
					case session.EventProgress:
						formatter.RecordingProgress(ev.Seconds)
					case session.EventPaused:
						formatter.RecordingPaused()
					case session.EventResumed:
						formatter.RecordingResumed()
					case session.EventGap:
						formatter.RecordingGap(ev.Gap.Start, ev.Gap.Duration)
					case session.EventError:
						formatter.Error(ev.Reason + " — type q to close the session")
					}
				}
			}()

			scanner := bufio.NewScanner(os.Stdin)
		input:
			for scanner.Scan() {
				switch strings.TrimSpace(scanner.Text()) {
				case "p":
					if err := sess.Pause(); err != nil {
						formatter.Warning(err.Error())
					}
				case "r":
					if err := sess.Resume(ctx); err != nil {
						formatter.Warning(err.Error())
					}
				case "q":
					break input
				}
			}

			result, err := sess.Stop(ctx)
			if err != nil {
				return err
			}
			<-eventsDone

			formatter.RecordingStopped(result.Duration, len(result.Segments), len(result.Gaps))
			if result.MergeError {
				formatter.Warning("joining segments failed; individual segment files were kept")
			}

			rec := store.SessionRecord{
				ID:              sess.ID,
				Mode:            string(captureMode),
				AudioPath:       result.OutputPath,
				StartedAt:       sess.StartedAt,
				EndedAt:         time.Now(),
				DurationSeconds: result.Duration.Seconds(),
				GapCount:        len(result.Gaps),
				SegmentCount:    len(result.Segments),
				Crashed:         result.Crashed,
				MergeError:      result.MergeError,
			}
			if err := deps.App.History.SaveSession(rec); err != nil {
				formatter.Warning("could not save session history: " + err.Error())
			}

			if transcribeAfter {
				return processRecording(ctx, deps, result.OutputPath, formatter)
			}
			formatter.Success("Recording saved: " + result.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Meeting name (used in folder name)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "mic", "Capture mode: mic, system, or both")
	cmd.Flags().BoolVar(&transcribeAfter, "transcribe", false, "Transcribe right after recording stops")

	return cmd
}

func renderFolderName(folderTemplate string, t time.Time, name string) (string, error) {
	tmpl, err := template.New("folder").Parse(folderTemplate)
	if err != nil {
		return "", fmt.Errorf("invalid folder template: %w", err)
	}

	data := FolderTemplateData{
		Year:   t.Format("2006"),
		Month:  t.Format("01"),
		Day:    t.Format("02"),
		Hour:   t.Format("15"),
		Minute: t.Format("04"),
		Second: t.Format("05"),
		Name:   name,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing folder template: %w", err)
	}
	return buf.String(), nil
}
