package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/stampscan/internal/utils"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [session_id]",
	Short: "List recorded sessions, or the label counts of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := requireDB(); err != nil {
			return err
		}
		ctx := cmd.Context()

		if len(args) == 1 {
			counts, err := DB.SessionSummary(ctx, args[0])
			if err != nil {
				utils.ShowError("Failed to load session", err, nil)
				return err
			}
			printSummary(counts)
			return nil
		}

		sessions, err := DB.ListSessions(ctx, historyLimit)
		if err != nil {
			utils.ShowError("Failed to list sessions", err, nil)
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions found in database.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSOURCE\tSAMPLES\tSIGHTINGS\tSTARTED")
		fmt.Fprintln(w, "-------\t------\t-------\t---------\t-------")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Source, s.SamplesDir, s.Frames, s.StartedAt.Local().Format("2006-01-02 15:04"))
		}
		w.Flush()
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of sessions to list")
	rootCmd.AddCommand(historyCmd)
}
