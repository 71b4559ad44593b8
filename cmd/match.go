package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/stampscan/internal/features"
	"github.com/andresmejia3/stampscan/internal/imageio"
	"github.com/andresmejia3/stampscan/internal/utils"
	"github.com/spf13/cobra"
)

var matchOpts Options

var matchCmd = &cobra.Command{
	Use:   "match <image_path>",
	Short: "Find the reference stamp that best matches a still image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runMatch(cmd.Context(), args[0], matchOpts)
	},
}

func init() {
	addGalleryFlags(matchCmd, &matchOpts)
	matchCmd.Flags().IntVarP(&matchOpts.Top, "top", "t", 3, "Number of ranked candidates to print")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(ctx context.Context, imagePath string, opts Options) error {
	if err := validateGalleryFlags(&opts); err != nil {
		utils.ShowError("Invalid flags", err, nil)
		return err
	}
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		utils.ShowError("Input file does not exist", err, nil)
		return err
	}

	g, _, err := loadGallery(ctx, opts)
	if err != nil {
		utils.ShowError("Failed to build gallery", err, nil)
		return err
	}

	// The query goes through the same preprocessing as the references
	img, err := imageio.LoadGray(imagePath, opts.MaxDim)
	if err != nil {
		utils.ShowError("Failed to read image file", err, nil)
		return err
	}

	fmt.Fprintln(os.Stderr, "🔍 Analyzing pattern...")
	query, err := features.Extract(img)
	if err != nil {
		utils.ShowError("Feature extraction failed", err, nil)
		return err
	}
	logger.Debug("extracted query descriptors", "descriptors", len(query))

	scores, err := g.Rank(query)
	if err != nil {
		utils.ShowError("Search failed", err, nil)
		return err
	}
	if len(scores) == 0 {
		fmt.Println("❌ No match found in gallery.")
		return nil
	}

	fmt.Printf("✅ Best match: %s (mean distance %.2f)\n", scores[0].Label, scores[0].Score)

	top := opts.Top
	if top > len(scores) {
		top = len(scores)
	}
	if top <= 1 {
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "\nRANK\tLABEL\tMEAN DISTANCE\tPAIRS")
	fmt.Fprintln(w, "----\t-----\t-------------\t-----")
	for i, s := range scores[:top] {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%d\n", i+1, s.Label, s.Score, s.Pairs)
	}
	w.Flush()
	return nil
}
