// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to run:
//
//   - DocumentSource: Fetches raw document bytes from a URL
//   - TextExtractor: Turns raw bytes into plain text (PDF, DOCX, text)
//   - Chunker: Splits text into retrievable chunks
//   - EmbeddingService: Turns text into vectors
//   - VectorIndex: Stores vectors and answers nearest-neighbour queries
//   - LLMService: Generates answers from prompts
//
// # Optional Interfaces
//
// These can be nil or no-op - the application degrades gracefully:
//
//   - PromptStore: User-editable prompt templates. Defaults are built in.
//   - MetricsRecorder: Stage timings and outcomes.
//   - ConfigStore: Persistent configuration. Environment and defaults apply without it.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
