// Package metrics exposes the kiai client's Prometheus metrics.
//
// Unlike a process-wide singleton, each Metrics value owns its collectors
// and registers them on the Registerer it was created with. Tests pass a
// fresh prometheus.NewRegistry(); the CLI uses the default registerer and
// serves it from the debug server.
package metrics
