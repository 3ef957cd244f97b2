// Package api exposes the answer pipeline over HTTP using gin.
//
// Routes:
//
//	POST /hackrx/run   answer questions about a document (bearer token required)
//	GET  /healthz      liveness probe
//	GET  /metrics      Prometheus metrics, when a recorder is configured
//
// Errors are returned as {"detail": "..."}: 403 without credentials, 401 for
// a wrong token, 422 for malformed requests and 500 for pipeline failures.
package api
