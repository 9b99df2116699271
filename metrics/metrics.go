package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds the collectors recorded by one process. All methods are
// safe on a nil receiver so components can run without metrics.
type Pipeline struct {
	listingsFetched  prometheus.Counter
	endpointFailures *prometheus.CounterVec
	excluded         *prometheus.CounterVec
	poiFailures      prometheus.Counter
	rankingPath      *prometheus.CounterVec
	searchDuration   prometheus.Histogram
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Pipeline {
	f := promauto.With(reg)
	return &Pipeline{
		listingsFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "listings_fetched_total",
			Help: "Raw listings returned by the listing source",
		}),
		endpointFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "listing_endpoint_failures_total",
			Help: "Listing endpoints abandoned during a fetch",
		}, []string{"reason"}),
		excluded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "enrichment_excluded_total",
			Help: "Listings dropped during enrichment",
		}, []string{"reason"}),
		poiFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "poi_lookup_failures_total",
			Help: "POI lookups that failed and left the listing's POI data unknown",
		}),
		rankingPath: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ranking_path_total",
			Help: "Rankings produced, by strategy",
		}, []string{"path"}),
		searchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Wall-clock duration of a full search",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
	}
}

func (p *Pipeline) ListingsFetched(n int) {
	if p == nil {
		return
	}
	p.listingsFetched.Add(float64(n))
}

func (p *Pipeline) EndpointFailed(reason string) {
	if p == nil {
		return
	}
	p.endpointFailures.WithLabelValues(reason).Inc()
}

func (p *Pipeline) Excluded(reason string) {
	if p == nil {
		return
	}
	p.excluded.WithLabelValues(reason).Inc()
}

func (p *Pipeline) POILookupFailed() {
	if p == nil {
		return
	}
	p.poiFailures.Inc()
}

func (p *Pipeline) Ranked(path string) {
	if p == nil {
		return
	}
	p.rankingPath.WithLabelValues(path).Inc()
}

func (p *Pipeline) ObserveSearch(seconds float64) {
	if p == nil {
		return
	}
	p.searchDuration.Observe(seconds)
}
