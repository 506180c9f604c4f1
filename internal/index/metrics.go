package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	documents     prometheus.Gauge
	vocabulary    prometheus.Gauge
	docComponents prometheus.Gauge
	images        prometheus.Gauge
	imgComponents prometheus.Gauge
	buildSeconds  prometheus.Gauge
	loads         *prometheus.CounterVec
}

func newMetrics(namespace string, reg prometheus.Registerer) *metrics {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      name,
			Help:      help,
		})
	}

	m := &metrics{
		documents:     gauge("documents", "Books in the document model."),
		vocabulary:    gauge("vocabulary_terms", "Distinct stemmed terms in the document model."),
		docComponents: gauge("document_components", "Latent dimensions of the document model."),
		images:        gauge("images", "Covers in the image model."),
		imgComponents: gauge("image_components", "Principal components of the image model."),
		buildSeconds:  gauge("build_seconds", "Duration of the last index build."),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "loads_total",
			Help:      "Index loads by source.",
		}, []string{"source"}),
	}

	if reg != nil {
		reg.MustRegister(m.documents, m.vocabulary, m.docComponents, m.images, m.imgComponents, m.buildSeconds, m.loads)
	}
	return m
}

func (m *metrics) observe(idx *Index, source string, elapsed time.Duration) {
	m.loads.WithLabelValues(source).Inc()
	if source == sourceBuild {
		m.buildSeconds.Set(elapsed.Seconds())
	}

	m.documents.Set(float64(idx.Documents.Docs))
	m.vocabulary.Set(float64(idx.Documents.VocabularySize()))
	m.docComponents.Set(float64(idx.Documents.K()))

	if idx.Images != nil {
		m.images.Set(float64(idx.Images.Len()))
		m.imgComponents.Set(float64(idx.Images.K()))
	} else {
		m.images.Set(0)
		m.imgComponents.Set(0)
	}
}
