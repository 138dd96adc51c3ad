package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by the rule store, the persistence
// adapter and the event listener.
type Metrics struct {
	RuleLoads            *prometheus.CounterVec
	RuleLoadDuration     prometheus.Histogram
	RuleCacheLookups     *prometheus.CounterVec
	SelectionTransitions *prometheus.CounterVec
	PersistenceFailures  *prometheus.CounterVec
	Hydrations           prometheus.Counter
}

// New creates the collectors and registers them on reg. Collectors that are
// already registered (e.g. a second checker sharing a registry) are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RuleLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "visacheck_rule_loads_total", Help: "Rule table loads by nationality and result."},
			[]string{"nationality", "result"},
		),
		RuleLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{Name: "visacheck_rule_load_duration_seconds", Help: "Duration of rule table loads in seconds.", Buckets: prometheus.DefBuckets},
		),
		RuleCacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "visacheck_rule_cache_lookups_total", Help: "Rule cache lookups by result (hit, miss, unsupported)."},
			[]string{"result"},
		),
		SelectionTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "visacheck_selection_transitions_total", Help: "Applied selection transitions by name."},
			[]string{"transition"},
		),
		PersistenceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "visacheck_persistence_failures_total", Help: "Failed storage operations by operation."},
			[]string{"op"},
		),
		Hydrations: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "visacheck_state_hydrations_total", Help: "Completed initial selection state loads."},
		),
	}
	if reg == nil {
		return m
	}
	m.RuleLoads = register(reg, m.RuleLoads)
	m.RuleLoadDuration = register(reg, m.RuleLoadDuration)
	m.RuleCacheLookups = register(reg, m.RuleCacheLookups)
	m.SelectionTransitions = register(reg, m.SelectionTransitions)
	m.PersistenceFailures = register(reg, m.PersistenceFailures)
	m.Hydrations = register(reg, m.Hydrations)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}
