package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/IsmailofficialGithub/meeting-transcript/internal/output"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that recording and transcription are set up",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)
			cfg := deps.Config
			healthy := true

			formatter.Info("Checking setup...")

			if path, err := exec.LookPath(cfg.FFmpegBin); err == nil {
				formatter.SetupCheck("ffmpeg", true, path)
			} else {
				formatter.SetupCheck("ffmpeg", false, cfg.FFmpegBin+" not found in PATH")
				healthy = false
			}

			if cfg.MicDevice != "" {
				formatter.SetupCheck("microphone", true, cfg.MicDevice)
			} else {
				formatter.SetupCheck("microphone", false, "mic_device not configured")
				healthy = false
			}

			if cfg.LoopbackDevice != "" {
				formatter.SetupCheck("system audio", true, cfg.LoopbackDevice)
			} else {
				formatter.SetupCheck("system audio", false, "loopback_device not configured (mic-only recording still works)")
			}

			localOK := false
			if path, err := exec.LookPath(cfg.WhisperBin); err == nil {
				formatter.SetupCheck("local whisper", true, fmt.Sprintf("%s (model %s)", path, cfg.WhisperModel))
				localOK = true
			} else {
				formatter.SetupCheck("local whisper", false, cfg.WhisperBin+" not found in PATH")
			}

			if n := len(cfg.RemoteAPIKeys); n > 0 {
				formatter.SetupCheck("remote API", true, fmt.Sprintf("%d key(s) for %s", n, cfg.RemoteEndpoint))
			} else {
				formatter.SetupCheck("remote API", false, "no API keys configured")
				if !localOK {
					healthy = false
				}
			}

			if info, err := os.Stat(cfg.RecordingsDir); err == nil && info.IsDir() {
				formatter.SetupCheck("recordings dir", true, cfg.RecordingsDir)
			} else {
				formatter.SetupCheck("recordings dir", false, cfg.RecordingsDir+" does not exist")
				healthy = false
			}

			if !healthy {
				formatter.Warning("Some checks failed; fix the items above before recording")
				return nil
			}
			formatter.Success("Everything looks good")
			return nil
		},
	}
	return cmd
}
