// Package services holds the answer pipeline: embedding batches, retrieval,
// answer synthesis and the orchestrator that runs them per request. It also
// resolves application settings.
//
// Services depend only on domain types and driven ports. Retries are applied
// here, never inside adapters.
package services
