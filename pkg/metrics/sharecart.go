package metrics

import "github.com/prometheus/client_golang/prometheus"

// ShareCartMetrics counts share link lifecycle events.
type ShareCartMetrics struct {
	linksGenerated prometheus.Counter
	resolutions    *prometheus.CounterVec
	visitFailures  prometheus.Counter
	itemsAdded     *prometheus.CounterVec
	conversions    *prometheus.CounterVec
}

// NewShareCartMetrics registers the share cart metrics on the provided registerer.
func NewShareCartMetrics(reg prometheus.Registerer) *ShareCartMetrics {
	if reg == nil {
		return &ShareCartMetrics{}
	}
	m := &ShareCartMetrics{
		linksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharecart_links_generated_total",
			Help: "Share links created.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharecart_link_resolutions_total",
			Help: "Share link lookups by outcome.",
		}, []string{"result"}),
		visitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharecart_visit_record_failures_total",
			Help: "Visits that could not be recorded.",
		}),
		itemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharecart_items_added_total",
			Help: "Shared cart lines pushed into visitor carts.",
		}, []string{"mode", "result"}),
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharecart_conversions_total",
			Help: "Order placed hooks by outcome.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.linksGenerated, m.resolutions, m.visitFailures, m.itemsAdded, m.conversions)
	return m
}

func (m *ShareCartMetrics) IncLinkGenerated() {
	if m == nil || m.linksGenerated == nil {
		return
	}
	m.linksGenerated.Inc()
}

// IncResolution records a lookup; found=false covers expired and unknown keys alike.
func (m *ShareCartMetrics) IncResolution(found bool) {
	if m == nil || m.resolutions == nil {
		return
	}
	result := "not_found"
	if found {
		result = "found"
	}
	m.resolutions.WithLabelValues(result).Inc()
}

func (m *ShareCartMetrics) IncVisitFailure() {
	if m == nil || m.visitFailures == nil {
		return
	}
	m.visitFailures.Inc()
}

// AddItems records cart adds for mode "all" or "single".
func (m *ShareCartMetrics) AddItems(mode string, added, failed int) {
	if m == nil || m.itemsAdded == nil {
		return
	}
	if added > 0 {
		m.itemsAdded.WithLabelValues(mode, "added").Add(float64(added))
	}
	if failed > 0 {
		m.itemsAdded.WithLabelValues(mode, "failed").Add(float64(failed))
	}
}

// IncConversion records the outcome of an order placed hook.
func (m *ShareCartMetrics) IncConversion(result string) {
	if m == nil || m.conversions == nil {
		return
	}
	m.conversions.WithLabelValues(result).Inc()
}
