package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"ternarystats/internal/logger"
	"ternarystats/internal/models"
	"ternarystats/pkg/btc"
	"ternarystats/pkg/metrics"
)

// ErrImageTimeout is returned when one image exceeds Params.ImageTimeout.
var ErrImageTimeout = errors.New("image analysis timed out")

// Summary describes a finished image-set analysis.
type Summary struct {
	// Images is the number of images analyzed
	Images int

	// Patches is the number of accepted patches
	Patches int

	// Rejections counts rejected candidate patches by reason
	Rejections models.Rejections

	// Elapsed is the wall-clock time of the whole run
	Elapsed time.Duration

	// Workers is the number of images analyzed concurrently
	Workers int
}

// imageResult is the table of one image, kept with its position so the set
// can be reassembled in order.
type imageResult struct {
	index int
	table *Table
}

// AnalyzeImageSet analyzes every image of src in parallel and stacks the
// per-image tables in image order. masks may be nil.
//
// The parameters are validated before the first image is loaded. The first
// failing image cancels the rest and its error is returned, wrapped with the
// image name.
func AnalyzeImageSet(ctx context.Context, src ImageSource, masks MaskSource, ex btc.Extractor, p Params) (*Table, *Summary, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	if ex == nil {
		return nil, nil, models.NewConfigurationError("extractor", "no feature extractor supplied")
	}

	start := time.Now()
	total := src.Len()
	workers := p.NumWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log := logger.Component(p.Logger, "imageset")
	log.Info().Int("images", total).Int("workers", workers).Msg("analyzing image set")

	var (
		mu        sync.Mutex
		completed int
	)
	report := func(name string) {
		if p.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		completed++
		p.Progress(completed, total, name)
	}

	workPool := pool.NewWithResults[imageResult]().
		WithContext(ctx).
		WithMaxGoroutines(workers).
		WithCancelOnError().
		WithFirstError()
	for i := 0; i < total; i++ {
		workPool.Go(func(ctx context.Context) (imageResult, error) {
			name := src.Name(i)
			imgStart := time.Now()
			t, err := analyzeOne(ctx, src, masks, ex, p, i)
			status := metrics.StatusOK
			switch {
			case errors.Is(err, ErrImageTimeout):
				status = metrics.StatusTimeout
			case err != nil:
				status = metrics.StatusError
			}
			accepted := 0
			if t != nil {
				accepted = t.Len()
			}
			p.Metrics.ObserveImage(status, time.Since(imgStart), accepted)
			if err != nil {
				log.Error().Err(err).Str("image", name).Msg("image failed")
				return imageResult{}, fmt.Errorf("image %s: %w", name, err)
			}
			log.Debug().
				Str("image", name).
				Int("patches", accepted).
				Dur("elapsed", time.Since(imgStart)).
				Msg("image analyzed")
			report(name)
			return imageResult{index: i, table: t}, nil
		})
	}

	results, err := workPool.Wait()
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	table := NewTable(p.NLevels, ex.Width(p.NLevels))
	for _, r := range results {
		if err := table.Concat(r.table); err != nil {
			return nil, nil, err
		}
	}

	summary := &Summary{
		Images:     len(results),
		Patches:    table.Len(),
		Rejections: table.Rejections,
		Elapsed:    time.Since(start),
		Workers:    workers,
	}
	log.Info().
		Int("images", summary.Images).
		Int("patches", summary.Patches).
		Int("rejected", summary.Rejections.Total()).
		Dur("elapsed", summary.Elapsed).
		Msg("image set analyzed")
	return table, summary, nil
}

// analyzeOne loads image i with its objects and analyzes it under the
// per-image timeout. The analysis runs on the calling goroutine, so nothing
// of it outlives the returned error.
func analyzeOne(ctx context.Context, src ImageSource, masks MaskSource, ex btc.Extractor, p Params, i int) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := src.Name(i)

	runCtx := ctx
	if p.ImageTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.ImageTimeout)
		defer cancel()
	}

	t, err := analyzeLoaded(runCtx, src, masks, ex, p, i, name)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %v", ErrImageTimeout, p.ImageTimeout)
	}
	return t, err
}

func analyzeLoaded(ctx context.Context, src ImageSource, masks MaskSource, ex btc.Extractor, p Params, i int, name string) (*Table, error) {
	img, err := src.Image(i)
	if err != nil {
		return nil, err
	}
	var objects []Object
	if masks != nil {
		if objects, err = masks.Objects(i, name); err != nil {
			return nil, err
		}
	}

	var t *Table
	if len(objects) == 0 {
		t, err = AnalyzeImage(ctx, img, nil, ex, p)
	} else {
		t, err = AnalyzeObjects(ctx, img, objects, ex, p)
	}
	if err != nil {
		return nil, err
	}
	for r := range t.Rows {
		t.Rows[r].ImageIndex = i
		t.Rows[r].ImageName = name
	}
	return t, nil
}
