package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/stampscan/internal/utils"
	"github.com/spf13/cobra"
)

var samplesOpts Options

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "Build the gallery and list every reference entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := validateGalleryFlags(&samplesOpts); err != nil {
			utils.ShowError("Invalid flags", err, nil)
			return err
		}

		g, report, err := loadGallery(cmd.Context(), samplesOpts)
		if err != nil {
			utils.ShowError("Failed to build gallery", err, nil)
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "LABEL\tDESCRIPTORS")
		fmt.Fprintln(w, "-----\t-----------")
		for _, label := range g.Labels() {
			set, _ := g.Entry(label)
			fmt.Fprintf(w, "%s\t%d\n", label, len(set))
		}
		for _, s := range report.Skipped {
			fmt.Fprintf(w, "%s\tskipped (%v)\n", s.Sample.Label, s.Err)
		}
		w.Flush()
		return nil
	},
}

func init() {
	addGalleryFlags(samplesCmd, &samplesOpts)
	rootCmd.AddCommand(samplesCmd)
}
