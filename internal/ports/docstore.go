package ports

import (
	"context"
	"encoding/json"
)

// SnapshotFunc receives the full current document on every change. A nil
// snapshot means the document does not exist (or was deleted).
type SnapshotFunc func(doc json.RawMessage)

// Record is a keyed document returned from a query.
type Record struct {
	Key  string
	Data json.RawMessage
}

// Query describes a one-shot collection read: an optional equality filter
// on a top-level field and an ordering field.
type Query struct {
	Field      string
	Equals     any
	OrderBy    string
	Descending bool
}

// DocStore is the document store the application persists into. Documents
// are JSON objects grouped into named collections and addressed by key.
//
// Implementations distinguish entities.ErrDocumentNotFound (the normal
// signal that lazy creation should run) from entities.ErrStorageUnavailable
// (the store could not be reached).
type DocStore interface {
	// Get fetches a document by key.
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)

	// Set writes a document, overwriting any existing one.
	Set(ctx context.Context, collection, key string, doc any) error

	// Create writes a document only if the key is absent. It reports
	// whether this call created the document; false means another writer
	// got there first and the existing document was left untouched.
	Create(ctx context.Context, collection, key string, doc any) (bool, error)

	// Update merge-patches only the named fields of an existing document.
	// A field name may use dot notation ("userTasks.u1") to replace a
	// single nested entry without touching its siblings.
	Update(ctx context.Context, collection, key string, fields map[string]any) error

	// Add appends a document under a server-assigned key and returns it.
	Add(ctx context.Context, collection string, doc any) (string, error)

	// Delete removes a document. Deleting an absent key is not an error.
	Delete(ctx context.Context, collection, key string) error

	// Query runs a one-shot filtered, ordered read over a collection.
	Query(ctx context.Context, collection string, q Query) ([]Record, error)

	// Subscribe registers fn for snapshot delivery on a single document:
	// once immediately with the current state, then after every change.
	// The returned cancel function stops delivery and must be called when
	// the watcher goes away.
	Subscribe(ctx context.Context, collection, key string, fn SnapshotFunc) (func(), error)
}
