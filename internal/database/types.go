package database

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrDuplicateName is returned when an identity with the same name exists.
	ErrDuplicateName = errors.New("identity already registered")
	// ErrNotFound is returned by writers when the identity does not exist.
	ErrNotFound = errors.New("identity not found")
)

// StoredIdentity represents an enrolled identity stored in the database
type StoredIdentity struct {
	ID        int64
	Name      string
	Variant   string          // "embedding" or "histogram"
	Encoding  json.RawMessage // storable form produced by facematch.MarshalEncoding
	ImagePath string          // file name inside the upload folder
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Neighbor is a stored identity ranked by its distance to a query encoding.
type Neighbor struct {
	Identity StoredIdentity
	Distance float64
}
