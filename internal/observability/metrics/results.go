package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
)

const namespace = "cai"

// resultCollectors track what the engine produced, independent of the process
// that ran it.
type resultCollectors struct {
	service string

	resultsTotal      *prometheus.CounterVec
	overallConfidence *prometheus.HistogramVec
	warningsTotal     *prometheus.CounterVec
	fieldsPresent     *prometheus.CounterVec
}

func newResultCollectors(service string) *resultCollectors {
	return &resultCollectors{
		service: service,
		resultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "results_total",
				Help:      "Total KPI results by document type.",
			},
			[]string{"service", "document_type"},
		),
		overallConfidence: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "overall_confidence",
				Help:      "Distribution of overall confidence per result.",
				Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
			[]string{"service", "document_type"},
		),
		warningsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "warnings_total",
				Help:      "Total warnings attached to KPI results.",
			},
			[]string{"service", "document_type"},
		),
		fieldsPresent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extraction",
				Name:      "fields_present_total",
				Help:      "Total extracted fields with a value, by field.",
			},
			[]string{"service", "field"},
		),
	}
}

func (c *resultCollectors) register(registry *prometheus.Registry) {
	registry.MustRegister(c.resultsTotal, c.overallConfidence, c.warningsTotal, c.fieldsPresent)
}

// ObserveResult implements ports.ResultObserver.
func (c *resultCollectors) ObserveResult(result domain.KPIResult) {
	docType := string(result.DocumentType)
	if docType == "" {
		docType = string(domain.DocumentTypeUnknown)
	}
	c.resultsTotal.WithLabelValues(c.service, docType).Inc()
	c.overallConfidence.WithLabelValues(c.service, docType).Observe(result.OverallConfidence)
	if n := len(result.Warnings); n > 0 {
		c.warningsTotal.WithLabelValues(c.service, docType).Add(float64(n))
	}
	for _, name := range domain.FieldNames {
		if result.Fields[name].Present() {
			c.fieldsPresent.WithLabelValues(c.service, string(name)).Inc()
		}
	}
}
