package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry module.
type Metrics struct {
	Registrations     *prometheus.CounterVec
	DocumentsAdded    prometheus.Counter
	GrantChanges      *prometheus.CounterVec
	AccessDenied      prometheus.Counter
	RoleCacheLookups  *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New registers the registry metrics on reg. Pass prometheus.NewRegistry() in
// tests so repeated construction does not collide.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordshare_registrations_total",
			Help: "Identities registered, by role",
		}, []string{"role"}),
		DocumentsAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "recordshare_documents_added_total",
			Help: "Document records appended to owner ledgers",
		}),
		GrantChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordshare_grant_changes_total",
			Help: "Grant and revoke calls, split by whether the relation changed",
		}, []string{"operation", "effect"}),
		AccessDenied: f.NewCounter(prometheus.CounterOpts{
			Name: "recordshare_access_denied_total",
			Help: "Consumer reads refused for lack of a grant",
		}),
		RoleCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "recordshare_role_cache_lookups_total",
			Help: "Role cache lookups by result",
		}, []string{"result"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recordshare_operation_duration_seconds",
			Help:    "Duration of registry operations by outcome code",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "outcome"}),
	}
}

func (m *Metrics) IncRegistration(role string) {
	m.Registrations.WithLabelValues(role).Inc()
}

func (m *Metrics) IncDocumentsAdded() {
	m.DocumentsAdded.Inc()
}

// IncGrantChange records a grant or revoke; changed is false for idempotent
// no-ops.
func (m *Metrics) IncGrantChange(operation string, changed bool) {
	effect := "noop"
	if changed {
		effect = "changed"
	}
	m.GrantChanges.WithLabelValues(operation, effect).Inc()
}

func (m *Metrics) IncAccessDenied() {
	m.AccessDenied.Inc()
}

func (m *Metrics) RecordRoleCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RoleCacheLookups.WithLabelValues(result).Inc()
}

// ObserveOperation records the duration since start.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
