package database

import (
	"context"
	"errors"
	"sync"
)

var (
	backendMu      sync.RWMutex
	identityWriter func() IdentityWriter
	backendName    string
)

// RegisterIdentityBackend registers the repository constructor of a backend.
// This is called by the postgres and mariadb packages to avoid import cycles.
func RegisterIdentityBackend(name string, writer func() IdentityWriter) {
	backendMu.Lock()
	defer backendMu.Unlock()
	identityWriter = writer
	backendName = name
}

// Backend returns the name of the registered backend, empty if none.
func Backend() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName
}

// GetIdentityWriter returns an IdentityWriter from the registered backend
func GetIdentityWriter(ctx context.Context) (IdentityWriter, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if identityWriter == nil {
		return nil, errors.New("database backend not initialized: DATABASE_URL is required")
	}
	return identityWriter(), nil
}
