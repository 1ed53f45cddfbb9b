// Package metrics exposes Prometheus counters for serve mode.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all skywall metrics behind a private Prometheus registry
// so tests can create registries without collisions.
type Registry struct {
	registry *prometheus.Registry

	FollowersFetched prometheus.Counter
	BlocksSnapshot   prometheus.Counter
	Candidates       prometheus.Counter
	Runs             prometheus.Counter
	Blocks           *prometheus.CounterVec
}

// NewRegistry creates and registers the full metric set.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		FollowersFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skywall_followers_fetched_total",
			Help: "Total follower records fetched across runs",
		}),

		BlocksSnapshot: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skywall_blockset_fetched_total",
			Help: "Total existing-block records snapshotted across runs",
		}),

		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skywall_candidates_total",
			Help: "Total eligible candidates produced by filtering",
		}),

		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "skywall_runs_total",
			Help: "Total pipeline runs started",
		}),

		Blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skywall_blocks_total",
			Help: "Block attempts by result",
		}, []string{"result"}),
	}

	r.registry.MustRegister(r.FollowersFetched, r.BlocksSnapshot, r.Candidates, r.Runs, r.Blocks)
	return r
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
