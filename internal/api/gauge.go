package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterLiveSessionsGauge installs a prometheus gauge reporting the
// number of non-terminal sessions at scrape time. The count callback
// runs on every scrape of /metrics. Register at most once per process;
// a second registration panics.
func RegisterLiveSessionsGauge(count func() float64) {
	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "intaked",
		Name:      "sessions_live",
		Help:      "Number of dialogue sessions not yet in a terminal state.",
	}, count)
}
