// Package metrics instruments image-set analysis with Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ternarystats/internal/models"
)

// Patch outcome label values.
const (
	OutcomeAccepted             = "accepted"
	OutcomeOutOfBounds          = "out_of_bounds"
	OutcomeInsufficientCoverage = "insufficient_coverage"
	OutcomeUndefinedFeatures    = "undefined_features"
)

// Image status label values.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// Collector groups the analysis metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	patches       *prometheus.CounterVec
	images        *prometheus.CounterVec
	imageDuration prometheus.Histogram
	patchesPerImg prometheus.Histogram
}

// NewCollector registers the analysis metrics with reg. Passing nil
// registers nothing, which keeps tests independent of the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		patches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ternarystats_patches_total",
				Help: "Candidate patches by outcome",
			},
			[]string{"outcome"},
		),
		images: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ternarystats_images_total",
				Help: "Analyzed images by status",
			},
			[]string{"status"},
		),
		imageDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ternarystats_image_duration_seconds",
				Help:    "Time spent analyzing one image",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		patchesPerImg: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ternarystats_patches_per_image",
				Help:    "Accepted patches per image",
				Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
			},
		),
	}
}

// ObservePatches records the outcome of one patch analysis.
func (c *Collector) ObservePatches(accepted int, rej models.Rejections) {
	if c == nil {
		return
	}
	c.patches.WithLabelValues(OutcomeAccepted).Add(float64(accepted))
	c.patches.WithLabelValues(OutcomeOutOfBounds).Add(float64(rej.OutOfBounds))
	c.patches.WithLabelValues(OutcomeInsufficientCoverage).Add(float64(rej.InsufficientCoverage))
	c.patches.WithLabelValues(OutcomeUndefinedFeatures).Add(float64(rej.UndefinedFeatures))
}

// ObserveImage records one finished image.
func (c *Collector) ObserveImage(status string, elapsed time.Duration, accepted int) {
	if c == nil {
		return
	}
	c.images.WithLabelValues(status).Inc()
	c.imageDuration.Observe(elapsed.Seconds())
	if status == StatusOK {
		c.patchesPerImg.Observe(float64(accepted))
	}
}
