// Package memory provides in-process implementations of driven ports.
//
// VectorIndex is the default vector backend. ConfigStore backs tests and
// runs that should not touch the user's config file.
package memory
