package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/IsmailofficialGithub/meeting-transcript/internal/output"
)

func NewListCmd(deps *Dependencies) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent recording sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(os.Stdout)

			sessions, err := deps.App.History.RecentSessions(limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				formatter.Info("No sessions recorded yet")
				return nil
			}

			formatter.SessionListHeader()
			for _, rec := range sessions {
				transcript, err := deps.App.History.TranscriptForAudio(rec.AudioPath)
				if err != nil {
					return err
				}
				duration := time.Duration(rec.DurationSeconds * float64(time.Second))
				formatter.SessionListItem(rec.StartedAt, rec.Mode, duration, transcript != nil, rec.Crashed)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of sessions to show")

	return cmd
}
