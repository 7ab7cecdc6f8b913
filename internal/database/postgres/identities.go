package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-detection/internal/database"
)

const uniqueViolation = "23505"

const identityColumns = `id, name, variant, encoding, image_path, created_at, updated_at`

// IdentityRepository provides PostgreSQL-backed identity storage
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// embeddingVector returns the pgvector column value for an encoding, nil for
// anything that is not a plain embedding.
func embeddingVector(variant string, encoding json.RawMessage) any {
	if variant != "embedding" {
		return nil
	}
	var vec []float64
	if err := json.Unmarshal(encoding, &vec); err != nil || len(vec) == 0 {
		return nil
	}
	return toVector(vec)
}

// toVector narrows to the float32 storage of the vector type. The column only
// orders candidates; callers recompute exact distances from encoding.
func toVector(vec []float64) pgvector.Vector {
	v := make([]float32, len(vec))
	for i, f := range vec {
		v[i] = float32(f)
	}
	return pgvector.NewVector(v)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Get retrieves an identity by name
func (r *IdentityRepository) Get(ctx context.Context, name string) (*database.StoredIdentity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE name = $1`, name)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

// Exists checks if an identity exists
func (r *IdentityRepository) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM identities WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check identity: %w", err)
	}
	return exists, nil
}

// List returns all identities ordered by ID
func (r *IdentityRepository) List(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var result []database.StoredIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return result, nil
}

// Count returns the number of identities
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// Create inserts a new identity
func (r *IdentityRepository) Create(ctx context.Context, identity *database.StoredIdentity) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO identities (name, variant, encoding, embedding, image_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, identity.Name, identity.Variant, []byte(identity.Encoding),
		embeddingVector(identity.Variant, identity.Encoding), identity.ImagePath,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("%w: %s", database.ErrDuplicateName, identity.Name)
	}
	if err != nil {
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	return id, nil
}

// UpdateEncoding replaces the encoding of an identity
func (r *IdentityRepository) UpdateEncoding(ctx context.Context, name, variant string, encoding json.RawMessage) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE identities
		SET variant = $2, encoding = $3, embedding = $4, updated_at = NOW()
		WHERE name = $1
	`, name, variant, []byte(encoding), embeddingVector(variant, encoding))
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	return requireAffected(res, name)
}

// Delete removes an identity
func (r *IdentityRepository) Delete(ctx context.Context, name string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return requireAffected(res, name)
}

func requireAffected(res sql.Result, name string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", database.ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanIdentity reads the identityColumns followed by any extra columns.
func scanIdentity(s scanner, extra ...any) (*database.StoredIdentity, error) {
	var identity database.StoredIdentity
	var encoding []byte
	dest := append([]any{&identity.ID, &identity.Name, &identity.Variant, &encoding,
		&identity.ImagePath, &identity.CreatedAt, &identity.UpdatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan identity row: %w", err)
	}
	identity.Encoding = json.RawMessage(encoding)
	return &identity, nil
}

// NearestEmbeddings ranks embedding identities of the query's dimension by
// L2 distance on the vector column, ties broken by id.
func (r *IdentityRepository) NearestEmbeddings(ctx context.Context, query []float64, limit int) ([]database.Neighbor, error) {
	if len(query) == 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+identityColumns+`, embedding <-> $1 AS distance
		FROM identities
		WHERE variant = 'embedding' AND embedding IS NOT NULL AND vector_dims(embedding) = $2
		ORDER BY embedding <-> $1, id
		LIMIT $3
	`, toVector(query), len(query), limit)
	if err != nil {
		return nil, fmt.Errorf("nearest embeddings: %w", err)
	}
	defer rows.Close()

	var result []database.Neighbor
	for rows.Next() {
		var n database.Neighbor
		identity, err := scanIdentity(rows, &n.Distance)
		if err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", err)
		}
		n.Identity = *identity
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbors: %w", err)
	}
	return result, nil
}

var (
	_ database.IdentityWriter    = (*IdentityRepository)(nil)
	_ database.EmbeddingSearcher = (*IdentityRepository)(nil)
)
