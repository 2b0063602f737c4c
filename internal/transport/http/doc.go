// Package http serves the produced datasets over a read-only JSON API.
//
// The server never computes anything: it reads the envelopes the aggregator
// wrote to disk and returns them. Routes:
//
//	GET /api/opos              the merged dataset envelope
//	GET /api/opos/{dsa}        one canonical record by DSA code
//	GET /api/sources/{source}  one per-source record set
//	GET /api/tier-history      the multi-year tier record set
//	GET /api/health            readiness and dataset availability
//	GET /metrics               Prometheus metrics
package http
