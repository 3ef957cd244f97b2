// Package normalisers extracts plain text from fetched documents.
// Each normaliser handles one family of MIME types; the Registry picks
// the best one for a document and falls back to plain text.
package normalisers
