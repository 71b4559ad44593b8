package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/andresmejia3/stampscan/internal/display"
	"github.com/andresmejia3/stampscan/internal/features"
	"github.com/andresmejia3/stampscan/internal/gallery"
	"github.com/andresmejia3/stampscan/internal/source"
	"github.com/andresmejia3/stampscan/internal/types"
	"github.com/andresmejia3/stampscan/internal/utils"
	"github.com/spf13/cobra"
)

var watchOpts Options

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Match the live camera or video feed against the reference gallery",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runWatch(cmd.Context(), watchOpts)
	},
}

func init() {
	addGalleryFlags(watchCmd, &watchOpts)
	watchCmd.Flags().IntVarP(&watchOpts.Camera, "camera", "c", 0, "Capture device index")
	watchCmd.Flags().StringVarP(&watchOpts.InputPath, "input", "i", "", "Video file or stream URL decoded with FFmpeg instead of the camera")
	watchCmd.Flags().IntVarP(&watchOpts.NthFrame, "nth-frame", "n", 1, "Match every Nth frame")
	watchCmd.Flags().BoolVarP(&watchOpts.Window, "window", "w", false, "Show the annotated feed in a window (Esc to quit)")
	rootCmd.AddCommand(watchCmd)
}

// frameMatcher runs the per-frame pipeline: grayscale, extract, search.
type frameMatcher struct {
	gallery *gallery.Gallery
}

// Match returns the best gallery entry for a BGR frame.
func (m frameMatcher) Match(frame source.Frame) (gallery.Result, error) {
	gray, err := features.ToGray(frame.Image)
	if err != nil {
		gray.Close()
		return gallery.Result{}, err
	}
	defer gray.Close()

	set, err := features.ExtractMat(gray)
	if err != nil {
		return gallery.Result{}, err
	}
	logger.Debug("extracted frame descriptors", "frame", frame.Index, "descriptors", len(set))
	return m.gallery.Search(set)
}

// tally accumulates per-label hits for the end-of-session summary.
type tally map[string]*types.LabelCount

func (t tally) add(frame int, res gallery.Result) {
	if !res.Matched {
		return
	}
	lc, ok := t[res.Label]
	if !ok {
		t[res.Label] = &types.LabelCount{Label: res.Label, Hits: 1, BestScore: res.Score, FirstSeen: frame, LastSeen: frame}
		return
	}
	lc.Hits++
	lc.LastSeen = frame
	if res.Score < lc.BestScore {
		lc.BestScore = res.Score
	}
}

// sorted returns the counts most frequent first, then by label.
func (t tally) sorted() []types.LabelCount {
	out := make([]types.LabelCount, 0, len(t))
	for _, lc := range t {
		out = append(out, *lc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func describeResult(res gallery.Result) string {
	if !res.Matched {
		return "no match"
	}
	return res.Label
}

// runWatch orchestrates the live session: gallery build, frame source, the match loop, and the summary.
func runWatch(ctx context.Context, opts Options) error {
	if err := validateWatchFlags(&opts); err != nil {
		utils.ShowError("Invalid flags", err, nil)
		return err
	}

	// 1. Build the gallery before touching the camera
	g, _, err := loadGallery(ctx, opts)
	if err != nil {
		utils.ShowError("Failed to build gallery", err, nil)
		return err
	}

	// 2. Open the frame source
	src, err := openSource(ctx, opts)
	if err != nil {
		utils.ShowError("Failed to open frame source", err, nil)
		return err
	}
	defer src.Close()

	var win *display.Window
	if opts.Window {
		win = display.NewWindow("stampscan")
		defer win.Close()
	}

	// 3. Register the session if recording
	started := time.Now()
	sessionID := utils.GenerateSessionID(src.String(), opts.SamplesDir, started)
	if DB != nil {
		sess := types.Session{ID: sessionID, Source: src.String(), SamplesDir: opts.SamplesDir, StartedAt: started}
		if err := DB.EnsureSession(ctx, sess); err != nil {
			utils.ShowError("Failed to register session", err, nil)
			return err
		}
		fmt.Fprintf(os.Stderr, "📼 Recording session %s\n", sessionID[:12])
	}

	fmt.Fprintf(os.Stderr, "🔍 Watching %s (every %d frame(s))...\n", src.String(), opts.NthFrame)

	// 4. Match loop: one frame at a time
	matcher := frameMatcher{gallery: g}
	counts := tally{}
	var last gallery.Result
	totalFrames, processedFrames := 0, 0

	for {
		frame, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(os.Stderr, "📭 No more frames from source.")
				break
			}
			if ctx.Err() != nil {
				break
			}
			var cmd *utils.SafeCommand
			if ff, ok := src.(*source.FFmpeg); ok {
				cmd = ff.Cmd()
			}
			utils.ShowError("Frame source failed", err, cmd)
			return err
		}
		totalFrames++

		if frame.Index%opts.NthFrame == 0 {
			res, err := matcher.Match(frame)
			if errors.Is(err, features.ErrInvalidImage) {
				logger.Warn("skipping unusable frame", "frame", frame.Index, "err", err)
			} else if err != nil {
				frame.Image.Close()
				utils.ShowError("Search failed", err, nil)
				return err
			} else {
				last = res
				processedFrames++
				counts.add(frame.Index, res)
				fmt.Printf("Best match for current pattern: %s\n", describeResult(res))

				if DB != nil {
					sg := types.Sighting{
						SessionID:  sessionID,
						FrameIndex: frame.Index,
						Label:      res.Label,
						Score:      res.Score,
						Matched:    res.Matched,
						SeenAt:     time.Now(),
					}
					if err := DB.InsertSighting(ctx, sg); err != nil {
						logger.Error("failed to record sighting", "frame", frame.Index, "err", err)
					}
				}
			}
		}

		keepGoing := true
		if win != nil {
			keepGoing = win.Show(frame.Image, last)
		}
		frame.Image.Close()
		if !keepGoing {
			fmt.Fprintln(os.Stderr, "⏹️  Window closed.")
			break
		}
	}

	fmt.Fprintf(os.Stderr, "\n🏁 Watch Complete. Processed %d frames out of %d read.\n", processedFrames, totalFrames)
	printSummary(counts.sorted())
	return nil
}

func openSource(ctx context.Context, opts Options) (source.Source, error) {
	if opts.InputPath != "" {
		return source.OpenFFmpeg(ctx, opts.InputPath)
	}
	return source.OpenCamera(opts.Camera)
}

func printSummary(counts []types.LabelCount) {
	fmt.Fprintf(os.Stderr, "\n---------------------------------------------------------\n")
	fmt.Fprintf(os.Stderr, "📊 MATCH SUMMARY\n")
	fmt.Fprintf(os.Stderr, "---------------------------------------------------------\n")
	if len(counts) == 0 {
		fmt.Fprintln(os.Stderr, "No pattern was matched.")
		return
	}

	w := tabwriter.NewWriter(os.Stderr, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "LABEL\tHITS\tBEST SCORE\tFRAMES")
	fmt.Fprintln(w, "-----\t----\t----------\t------")
	for _, lc := range counts {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%d - %d\n", lc.Label, lc.Hits, lc.BestScore, lc.FirstSeen, lc.LastSeen)
	}
	w.Flush()
}

// validateWatchFlags ensures all CLI arguments are valid before starting heavy processes.
func validateWatchFlags(opts *Options) error {
	if err := validateGalleryFlags(opts); err != nil {
		return err
	}
	if opts.NthFrame < 1 {
		return fmt.Errorf("invalid nth-frame interval: must be >= 1, got %d", opts.NthFrame)
	}
	if opts.InputPath == "" && opts.Camera < 0 {
		return fmt.Errorf("invalid camera index: must be >= 0, got %d", opts.Camera)
	}
	return nil
}
