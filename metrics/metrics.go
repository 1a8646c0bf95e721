package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// CaptionAvailable is 1 when a captioning backend was constructed.
	CaptionAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moments",
		Subsystem: "annotator",
		Name:      "caption_available",
		Help:      "Whether an image captioning backend is configured and constructed.",
	})

	// DetectionAvailable is 1 when an object-detection backend was constructed.
	DetectionAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moments",
		Subsystem: "annotator",
		Name:      "detection_available",
		Help:      "Whether an object detection backend is configured and constructed.",
	})

	// PhotosProcessedTotal counts annotation runs by outcome.
	PhotosProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moments",
		Subsystem: "annotator",
		Name:      "photos_processed_total",
		Help:      "Total number of photos processed by the annotator, labeled by result.",
	}, []string{"result"})

	// ProcessingDurationSeconds is end-to-end time per photo, measured inside the annotator.
	ProcessingDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moments",
		Subsystem: "annotator",
		Name:      "processing_duration_seconds",
		Help:      "End-to-end time to annotate a photo (caption + detection + save).",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60, 120, 300},
	}, []string{"result"})

	// LabelsPerPhoto observes how many ranked labels survived per photo.
	LabelsPerPhoto = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "moments",
		Subsystem: "annotator",
		Name:      "labels_per_photo",
		Help:      "Number of ranked object labels retained per annotated photo.",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	// LastAnnotatedSeconds is a unix timestamp (seconds) of the last successful annotation.
	LastAnnotatedSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "moments",
		Subsystem: "annotator",
		Name:      "last_annotated_timestamp_seconds",
		Help:      "Unix timestamp (seconds) of the last successfully annotated photo (best-effort).",
	})

	// PublishErrorTotal counts failed event publishes.
	PublishErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "moments",
		Subsystem: "annotator",
		Name:      "publish_error_total",
		Help:      "Total number of photo-annotated event publish errors.",
	})
)

// Register registers annotator metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			CaptionAvailable,
			DetectionAvailable,
			PhotosProcessedTotal,
			ProcessingDurationSeconds,
			LabelsPerPhoto,
			LastAnnotatedSeconds,
			PublishErrorTotal,
		)
	})
}

func NowUnixSeconds() float64 {
	return float64(time.Now().Unix())
}
