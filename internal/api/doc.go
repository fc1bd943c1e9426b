// Package api hosts the operator HTTP server that runs next to the crawl loop:
//   - GET /healthz and /readyz for liveness and readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /status for a JSON snapshot of crawl progress.
package api
