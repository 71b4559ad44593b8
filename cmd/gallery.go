package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/andresmejia3/stampscan/internal/descriptor"
	"github.com/andresmejia3/stampscan/internal/features"
	"github.com/andresmejia3/stampscan/internal/gallery"
	"github.com/andresmejia3/stampscan/internal/imageio"
	"github.com/schollz/progressbar/v3"
)

// loadGallery builds the reference gallery for a session. Unreadable samples are
// skipped with a warning; ending up with no entries at all is an error.
func loadGallery(ctx context.Context, opts Options) (*gallery.Gallery, gallery.BuildReport, error) {
	samples, err := imageio.ListSamples(opts.SamplesDir)
	if err != nil {
		return nil, gallery.BuildReport{}, fmt.Errorf("invalid samples directory: %w", err)
	}
	if len(samples) == 0 {
		return nil, gallery.BuildReport{}, fmt.Errorf("no reference images found in '%s'", opts.SamplesDir)
	}

	fmt.Fprintf(os.Stderr, "⚙️  Building gallery from %d samples with %d engines...\n", len(samples), opts.NumEngines)
	bar := progressbar.NewOptions(len(samples),
		progressbar.OptionSetDescription("📚 Loading samples"),
		progressbar.OptionSetWriter(os.Stderr), // Write bar to Stderr
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	g, report, err := gallery.Build(ctx, samples, gallery.BuildOptions{
		Engines: opts.NumEngines,
		Extract: sampleExtractor(opts.MaxDim),
		Progress: func(s imageio.Sample, err error) {
			bar.Add(1)
			if err == nil {
				logger.Debug("loaded sample", "label", s.Label, "path", s.Path)
			}
		},
	})
	bar.Finish()
	if err != nil {
		return nil, report, err
	}

	for _, skipped := range report.Skipped {
		logger.Warn("skipping sample", "path", skipped.Sample.Path, "err", skipped.Err)
	}
	for _, label := range report.Replaced {
		logger.Warn("duplicate label, later sample wins", "label", label)
	}

	if g.Len() == 0 {
		return nil, report, fmt.Errorf("%w: no sample in '%s' could be loaded", gallery.ErrEmptyGallery, opts.SamplesDir)
	}
	fmt.Fprintf(os.Stderr, "📚 Gallery ready: %d entries (%d skipped)\n", g.Len(), len(report.Skipped))
	return g, report, nil
}

// sampleExtractor loads a reference image as grayscale and extracts its ORB descriptors.
func sampleExtractor(maxDim int) gallery.ExtractFunc {
	return func(s imageio.Sample) (descriptor.Set, error) {
		img, err := imageio.LoadGray(s.Path, maxDim)
		if err != nil {
			return nil, err
		}
		return features.Extract(img)
	}
}

func validateGalleryFlags(opts *Options) error {
	if opts.SamplesDir == "" {
		return fmt.Errorf("required flag: --samples")
	}
	if opts.NumEngines < 1 {
		opts.NumEngines = 1
	}
	if opts.MaxDim < 0 {
		return fmt.Errorf("invalid max-dim: must be >= 0, got %d", opts.MaxDim)
	}
	return nil
}
