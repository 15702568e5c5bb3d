// Package source defines the persistence source rebuilds read from and
// provides a SQLite-backed implementation.
package source

import "context"

// Record is one persisted document, as read from the source of truth.
type Record struct {
	// ID uniquely identifies the record within its collection.
	ID string
	// Type is the record type, carried into the index.
	Type string
	// Fields holds the record body.
	Fields map[string]any
}

// PageSource reads records in cursor-ordered pages. Paging is keyset
// driven: each call resumes strictly after afterID, so a page is never
// re-read and the cursor always advances on progress.
type PageSource interface {
	// ReadPage returns up to limit records from collection with IDs
	// greater than afterID, in ascending ID order. An empty afterID
	// starts from the beginning. An empty result means exhaustion.
	ReadPage(ctx context.Context, collection, afterID string, limit int) ([]Record, error)
}
