package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"diaryassistant/internal/logging"
)

func newClearFeedbackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-feedback",
		Short: "Back up every diary and remove its feedback section",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			backup := a.cfg.BackupDir(time.Now())
			result, err := a.reader.ClearFeedback(backup)
			if err != nil {
				logging.ErrorWithContext(a.logger.Logger, "clearing feedback failed", "feedback_clear_failed",
					logging.Error(err),
					logging.String("backup_dir", backup),
					logging.String(logging.FieldErrorHint, "diaries already processed are backed up in the backup directory"),
				)
				return fmt.Errorf("clear feedback: %w", err)
			}
			a.logger.Info("feedback cleared",
				logging.String(logging.FieldEventType, "feedback_cleared"),
				logging.Int("scanned", result.Scanned),
				logging.Int("cleared", result.Cleared),
				logging.String("backup_dir", backup),
			)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backed up %d diaries to %s\n", result.Scanned, result.BackupDir)
			fmt.Fprintf(out, "Removed feedback from %d diaries\n", result.Cleared)
			return nil
		},
	}
}
