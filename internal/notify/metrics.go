package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts client activity. A nil *Metrics records nothing.
type Metrics struct {
	refreshes *prometheus.CounterVec
	acks      *prometheus.CounterVec
	unread    prometheus.Gauge
}

// NewMetrics registers the client collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laundry_notify_refreshes_total",
				Help: "Notification feed refreshes by result.",
			},
			[]string{"result"},
		),
		acks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "laundry_notify_mark_read_total",
				Help: "Mark-read requests by scope and result.",
			},
			[]string{"scope", "result"},
		),
		unread: f.NewGauge(prometheus.GaugeOpts{
			Name: "laundry_notify_unread",
			Help: "Unread count reported by the last successful refresh.",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) refreshed(err error) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) acked(scope string, err error) {
	if m == nil {
		return
	}
	m.acks.WithLabelValues(scope, result(err)).Inc()
}

func (m *Metrics) setUnread(n int) {
	if m == nil {
		return
	}
	m.unread.Set(float64(n))
}
