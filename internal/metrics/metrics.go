package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Bot holds the bot's domain counters. A nil *Bot records nothing.
type Bot struct {
	updates           *prometheus.CounterVec
	uploads           *prometheus.CounterVec
	downloads         prometheus.Counter
	inference         *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
}

// NewBot creates the bot metrics and registers them with reg.
func NewBot(reg prometheus.Registerer) (*Bot, error) {
	m := &Bot{
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_updates_total",
				Help: "Total number of Telegram updates handled, by kind.",
			},
			[]string{"kind"},
		),
		uploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_uploads_total",
				Help: "Total number of files saved, by category.",
			},
			[]string{"category"},
		),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_downloads_total",
			Help: "Total number of files delivered to users.",
		}),
		inference: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_inference_requests_total",
				Help: "Total number of AI chat generations, by result.",
			},
			[]string{"result"},
		),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bot_inference_duration_seconds",
			Help:    "Latency of AI chat generations.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	for _, c := range []prometheus.Collector{m.updates, m.uploads, m.downloads, m.inference, m.inferenceDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Bot) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Bot) Upload(category string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(category).Inc()
}

func (m *Bot) Download() {
	if m == nil {
		return
	}
	m.downloads.Inc()
}

// Inference records one generation; result is "ok", "busy", "timeout" or "error".
func (m *Bot) Inference(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.inference.WithLabelValues(result).Inc()
	if result == "ok" {
		m.inferenceDuration.Observe(d.Seconds())
	}
}
