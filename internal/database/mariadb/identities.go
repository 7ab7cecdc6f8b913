package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-detection/internal/database"
)

const errDupEntry = 1062

// IdentityRepository provides MariaDB-backed identity storage.
// DSNs must include parseTime=true.
type IdentityRepository struct {
	pool *Pool
}

func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

const identityColumns = `id, name, variant, encoding, image_path, created_at, updated_at`

func (r *IdentityRepository) Get(ctx context.Context, name string) (*database.StoredIdentity, error) {
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE name = ?`, name)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return identity, nil
}

func (r *IdentityRepository) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM identities WHERE name = ?)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check identity: %w", err)
	}
	return exists, nil
}

func (r *IdentityRepository) List(ctx context.Context) ([]database.StoredIdentity, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY id`)
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

func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *database.StoredIdentity) (int64, error) {
	res, err := r.pool.db.ExecContext(ctx,
		`INSERT INTO identities (name, variant, encoding, image_path) VALUES (?, ?, ?, ?)`,
		identity.Name, identity.Variant, string(identity.Encoding), identity.ImagePath)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDupEntry {
		return 0, fmt.Errorf("%w: %s", database.ErrDuplicateName, identity.Name)
	}
	if err != nil {
		return 0, fmt.Errorf("insert identity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *IdentityRepository) UpdateEncoding(ctx context.Context, name, variant string, encoding json.RawMessage) error {
	res, err := r.pool.db.ExecContext(ctx,
		`UPDATE identities SET variant = ?, encoding = ?, updated_at = CURRENT_TIMESTAMP(6) WHERE name = ?`,
		variant, string(encoding), name)
	if err != nil {
		return fmt.Errorf("update identity: %w", err)
	}
	// MySQL counts changed rows, not matched ones, so an unchanged row
	// reports zero.
	if err := requireAffected(res, name); err != nil {
		exists, existsErr := r.Exists(ctx, name)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return err
		}
	}
	return nil
}

func (r *IdentityRepository) Delete(ctx context.Context, name string) error {
	res, err := r.pool.db.ExecContext(ctx, `DELETE FROM identities WHERE name = ?`, name)
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

func scanIdentity(s scanner) (*database.StoredIdentity, error) {
	var identity database.StoredIdentity
	var encoding string
	if err := s.Scan(&identity.ID, &identity.Name, &identity.Variant, &encoding,
		&identity.ImagePath, &identity.CreatedAt, &identity.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan identity row: %w", err)
	}
	identity.Encoding = json.RawMessage(encoding)
	return &identity, nil
}

var _ database.IdentityWriter = (*IdentityRepository)(nil)
