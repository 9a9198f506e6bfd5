package cli

import (
	"github.com/spf13/cobra"

	"github.com/IsmailofficialGithub/meeting-transcript/config"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/app"
	"github.com/IsmailofficialGithub/meeting-transcript/internal/version"
)

type Dependencies struct {
	App    *app.App
	Config *config.Config
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mt",
		Short: "Record meetings and produce time-aligned transcripts",
		Long:  "A CLI tool that records long meetings from microphone and/or system audio,\nsurvives pauses and capture crashes, and transcribes the result in chunks\nusing a local whisper engine or a remote transcription API.",
	}

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewTranscribeCmd(deps))
	rootCmd.AddCommand(NewListCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}
