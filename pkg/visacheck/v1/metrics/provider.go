package metrics

import "github.com/prometheus/client_golang/prometheus"

// RegistryProvider defines the interface for accessing the checker's metrics registry.
// This allows embedding applications to expose metrics via their chosen method
// (e.g., Prometheus HTTP endpoint).
type RegistryProvider interface {
	// Registry returns the Prometheus registry containing visacheck metrics.
	Registry() *prometheus.Registry
}
