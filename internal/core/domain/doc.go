// Package domain defines the core business entities for docqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: Fetched bytes plus a content type hint
//   - Chunk: An independently retrievable unit of document text
//   - IndexedEntry: A chunk paired with its embedding, as stored in a vector index
//   - RetrievedChunk: A ranked similarity hit for one question
//   - QueryAnswer: The answer produced for one question
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
