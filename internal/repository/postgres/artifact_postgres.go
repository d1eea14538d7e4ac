package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"canister/internal/database"
	"canister/internal/model"
	"canister/internal/repository"
)

// ArtifactPostgres is a PostgreSQL implementation of repository.ArtifactRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type ArtifactPostgres struct {
	db *database.DB
}

// NewArtifactPostgres creates a new ArtifactPostgres repository.
func NewArtifactPostgres(db *database.DB) *ArtifactPostgres {
	return &ArtifactPostgres{db: db}
}

var _ repository.ArtifactRepository = (*ArtifactPostgres)(nil)

// Create inserts a new artifact row and returns the stored record.
// A unique violation on (name, version) is reported as repository.ErrDuplicate.
func (r *ArtifactPostgres) Create(ctx context.Context, a *model.Artifact) (*model.Artifact, error) {
	const q = `
		INSERT INTO artifacts (id, name, version, content_type, size, digest, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, name, version, content_type, size, digest, storage_key, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		a.ID,
		a.Name,
		a.Version,
		a.ContentType,
		a.Size,
		a.Digest,
		a.StorageKey,
		a.CreatedAt,
	)
	var out model.Artifact
	if err := row.Scan(
		&out.ID,
		&out.Name,
		&out.Version,
		&out.ContentType,
		&out.Size,
		&out.Digest,
		&out.StorageKey,
		&out.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	return &out, nil
}

// FindByID fetches a single artifact by its ID.
// sql.ErrNoRows passes through so callers can map it to their own not-found error.
func (r *ArtifactPostgres) FindByID(ctx context.Context, id string) (*model.Artifact, error) {
	const q = `
		SELECT id, name, version, content_type, size, digest, storage_key, created_at
		FROM artifacts
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var a model.Artifact
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Version,
		&a.ContentType,
		&a.Size,
		&a.Digest,
		&a.StorageKey,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByNameVersion fetches the artifact with the given name and version.
func (r *ArtifactPostgres) FindByNameVersion(ctx context.Context, name, version string) (*model.Artifact, error) {
	const q = `
		SELECT id, name, version, content_type, size, digest, storage_key, created_at
		FROM artifacts
		WHERE name = $1 AND version = $2
	`
	row := r.db.QueryRowContext(ctx, q, name, version)
	var a model.Artifact
	if err := row.Scan(
		&a.ID,
		&a.Name,
		&a.Version,
		&a.ContentType,
		&a.Size,
		&a.Digest,
		&a.StorageKey,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns artifacts using LIMIT/OFFSET pagination and a total count.
// When PageQuery.Name is set, both the count and the page are restricted to that name.
func (r *ArtifactPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Artifact], error) {
	where := ""
	args := make([]any, 0, 3)
	if pq.Name != "" {
		where = " WHERE name = $1"
		args = append(args, pq.Name)
	}

	// Count total rows for the filter
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM artifacts"+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	qList := fmt.Sprintf(
		"SELECT id, name, version, content_type, size, digest, storage_key, created_at FROM artifacts%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2,
	)
	rows, err := r.db.QueryContext(ctx, qList, append(args, pq.Limit, pq.Offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Artifact, 0)
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.Version,
			&a.ContentType,
			&a.Size,
			&a.Digest,
			&a.StorageKey,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Artifact]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes an artifact by ID. It does not return an error if the row does not exist.
func (r *ArtifactPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM artifacts WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	// Ignore rows affected to keep delete idempotent.
	_, _ = res.RowsAffected()
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
