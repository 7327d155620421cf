// Package server exposes the assistant over HTTP.
//
// Routes:
//
//	POST /chat                      run one chat turn
//	GET  /history/{user_id}         recent interactions (symptoms, response, time)
//	GET  /history/{user_id}/queries recent user queries
//	GET  /healthz                   liveness and store readiness
//	GET  /metrics                   Prometheus metrics
//
// Chat requests are rate limited per user with a token bucket.
package server
