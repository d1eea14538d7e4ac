package repository

import (
	"context"

	"canister/internal/model"
)

// ArtifactRepository defines data access for artifacts using SQL queries only.
// No business logic here, strictly persistence operations.
type ArtifactRepository interface {
	// Create inserts a new artifact record.
	// The caller should provide required fields (e.g., ID, CreatedAt) according to the database schema defaults.
	// Returns the stored artifact (may include values set by the DB) or
	// ErrDuplicate when the name/version pair already exists.
	Create(ctx context.Context, a *model.Artifact) (*model.Artifact, error)

	// FindByID returns an artifact by its ID.
	FindByID(ctx context.Context, id string) (*model.Artifact, error)

	// FindByNameVersion returns the artifact with the given name and version.
	FindByNameVersion(ctx context.Context, name, version string) (*model.Artifact, error)

	// List returns a paginated list of artifacts and total rows count for the given filter.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Artifact], error)

	// Delete removes an artifact by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters and an optional
// exact-name filter.
type PageQuery struct {
	Limit  int
	Offset int
	Name   string
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
