package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/andresmejia3/stampscan/internal/descriptor"
	"github.com/andresmejia3/stampscan/internal/imageio"
)

var ErrNoExtractor = errors.New("gallery: BuildOptions.Extract is required")

// ExtractFunc turns one reference sample into its descriptor set.
type ExtractFunc func(s imageio.Sample) (descriptor.Set, error)

// BuildOptions configures Build.
type BuildOptions struct {
	Engines  int         // parallel extraction workers, at least 1
	Extract  ExtractFunc // required
	Progress func(s imageio.Sample, err error)
}

// SampleError records a reference image that was skipped.
type SampleError struct {
	Sample imageio.Sample
	Err    error
}

func (e SampleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Sample.Path, e.Err)
}

// BuildReport summarizes a Build.
type BuildReport struct {
	Loaded   []string // labels in registration order
	Replaced []string // labels that overwrote an earlier sample
	Skipped  []SampleError
}

type buildTask struct {
	index  int
	sample imageio.Sample
}

type buildResult struct {
	index int
	set   descriptor.Set
	err   error
}

// Build extracts every sample with a pool of workers and registers the results
// in sample order, so a later duplicate label always wins. Samples that fail to
// load or extract are skipped and reported. The returned gallery may be empty.
func Build(ctx context.Context, samples []imageio.Sample, opts BuildOptions) (*Gallery, BuildReport, error) {
	engines := opts.Engines
	if engines < 1 {
		engines = 1
	}
	extract := opts.Extract
	if extract == nil {
		return nil, BuildReport{}, ErrNoExtractor
	}

	if err := ctx.Err(); err != nil {
		return nil, BuildReport{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tasks := make(chan buildTask, engines)
	results := make(chan buildResult, engines*2)
	var wg sync.WaitGroup

	for i := 0; i < engines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				set, err := extract(task.sample)
				select {
				case results <- buildResult{index: task.index, set: set, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i, s := range samples {
			select {
			case tasks <- buildTask{index: i, sample: s}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	g := New()
	var report BuildReport

	// Workers finish out of order; hold results until their turn comes
	pending := make(map[int]buildResult)
	next := 0
	for res := range results {
		pending[res.index] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			s := samples[next]
			if r.err != nil {
				report.Skipped = append(report.Skipped, SampleError{Sample: s, Err: r.err})
			} else {
				if g.Register(s.Label, r.set) {
					report.Replaced = append(report.Replaced, s.Label)
				}
				report.Loaded = append(report.Loaded, s.Label)
			}
			if opts.Progress != nil {
				opts.Progress(s, r.err)
			}
			next++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, report, err
	}
	return g, report, nil
}
