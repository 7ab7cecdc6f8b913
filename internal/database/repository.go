package database

import (
	"context"
	"encoding/json"
)

// IdentityReader provides read-only access to enrolled identities
type IdentityReader interface {
	// Get retrieves an identity by exact name, returns nil if not found
	Get(ctx context.Context, name string) (*StoredIdentity, error)
	// Exists checks if an identity with the given name is registered
	Exists(ctx context.Context, name string) (bool, error)
	// List returns all identities ordered by registration (id ascending)
	List(ctx context.Context) ([]StoredIdentity, error)
	// Count returns the number of registered identities
	Count(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to enrolled identities
type IdentityWriter interface {
	IdentityReader
	// Create inserts a new identity and returns its ID.
	// Returns ErrDuplicateName if the name is taken.
	Create(ctx context.Context, identity *StoredIdentity) (int64, error)
	// UpdateEncoding replaces the stored encoding and its variant.
	// Returns ErrNotFound if no identity has the given name.
	UpdateEncoding(ctx context.Context, name, variant string, encoding json.RawMessage) error
	// Delete removes an identity. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, name string) error
}

// EmbeddingSearcher is implemented by backends that can rank stored
// embeddings in the database. Only embeddings with the same dimension as the
// query are considered. Results are ordered by distance, then by ID.
type EmbeddingSearcher interface {
	NearestEmbeddings(ctx context.Context, query []float64, limit int) ([]Neighbor, error)
}
