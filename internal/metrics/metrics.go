package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry for the reservation pipeline.
type Collector struct {
	reg *prometheus.Registry

	Attempts      *prometheus.CounterVec // result label: success|failure
	StageFailures *prometheus.CounterVec // stage label: auth|catalog|select|reserve
	TempCodes     prometheus.Counter
	QRCodes       prometheus.Counter

	AttemptDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marchkov_attempts_total",
			Help: "Total reservation pipeline attempts.",
		}, []string{"result"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marchkov_stage_failures_total",
			Help: "Pipeline failures by stage.",
		}, []string{"stage"}),
		TempCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marchkov_temp_codes_total",
			Help: "Temporary ride-now codes obtained.",
		}),
		QRCodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marchkov_qrcodes_total",
			Help: "Boarding QR codes obtained.",
		}),
		AttemptDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marchkov_attempt_duration_seconds",
			Help:    "Wall time of one full pipeline attempt.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}

	reg.MustRegister(c.Attempts, c.StageFailures, c.TempCodes, c.QRCodes, c.AttemptDuration)
	return c
}

// ObserveAttempt records one finished attempt.
func (c *Collector) ObserveAttempt(start time.Time, err error) {
	if c == nil {
		return
	}
	c.AttemptDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.Attempts.WithLabelValues("failure").Inc()
		return
	}
	c.Attempts.WithLabelValues("success").Inc()
}

// FailStage records which stage aborted the pipeline.
func (c *Collector) FailStage(stage string) {
	if c == nil {
		return
	}
	c.StageFailures.WithLabelValues(stage).Inc()
}

// TempCodeObtained counts a temporary ride-now code.
func (c *Collector) TempCodeObtained() {
	if c != nil {
		c.TempCodes.Inc()
	}
}

// QRCodeObtained counts a boarding QR code.
func (c *Collector) QRCodeObtained() {
	if c != nil {
		c.QRCodes.Inc()
	}
}

// Handler serves the registry in the standard exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
