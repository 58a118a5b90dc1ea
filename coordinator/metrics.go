package coordinator

import "github.com/prometheus/client_golang/prometheus"

// Gauges exposes coordinator state to Prometheus.
type Gauges struct {
	LiveClients  prometheus.Gauge
	CurrentRound prometheus.Gauge
}

func NewGauges(reg prometheus.Registerer) (*Gauges, error) {
	g := &Gauges{
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flcoord",
			Name:      "live_clients",
			Help:      "Number of clients holding a live connection.",
		}),
		CurrentRound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flcoord",
			Name:      "current_round",
			Help:      "Round number currently open for submissions.",
		}),
	}

	for _, c := range []prometheus.Collector{g.LiveClients, g.CurrentRound} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *Gauges) setLive(n int) {
	if g != nil {
		g.LiveClients.Set(float64(n))
	}
}

func (g *Gauges) setRound(r uint64) {
	if g != nil {
		g.CurrentRound.Set(float64(r))
	}
}
