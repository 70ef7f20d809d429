// Package metrics defines and registers the Prometheus metrics exposed by
// desktopd: importer throughput, stager cache hit rate, VM backend start and
// health-probe latency, and supervisor sidecar/restart counters. Handler
// serves them for scraping; HealthHandler, ReadyHandler, and LivenessHandler
// back the companion /health, /ready, and /live endpoints that
// "desktopd serve" exposes for external process managers.
package metrics
