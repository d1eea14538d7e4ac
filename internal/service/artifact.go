package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"canister/internal/model"
	"canister/internal/repository"
	"canister/internal/storage"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNameRequired    = errors.New("name is required")
	ErrVersionRequired = errors.New("version is required")
	ErrNotFound        = errors.New("artifact not found")
	ErrReaderNil       = errors.New("reader is nil")
	ErrVersionExists   = errors.New("artifact version already exists")
)

// ArtifactListResult is the service-level DTO for paginated artifacts.
type ArtifactListResult struct {
	Items []model.Artifact `json:"data"`
	Total int              `json:"total"`
}

// ArtifactService defines the use cases for handling artifacts.
type ArtifactService interface {
	// Upload streams the content to object storage, saves metadata to DB, and rolls back storage if DB save fails.
	// The SHA-256 digest is computed while streaming; no content is buffered in memory or on disk.
	// Returns ErrVersionExists when the name/version pair is already taken.
	Upload(ctx context.Context, r io.Reader, name, version, contentType string, size int64) (*model.Artifact, error)

	// List returns artifacts using limit/offset and a total count.
	// name is an optional exact-name filter; empty means all artifacts.
	List(ctx context.Context, name string, limit, offset int) (*ArtifactListResult, error)

	// Get returns a single artifact by its ID.
	Get(ctx context.Context, id string) (*model.Artifact, error)

	// Lookup returns the artifact with the given name and version.
	Lookup(ctx context.Context, name, version string) (*model.Artifact, error)

	// Fetch returns the artifact content as a streaming reader alongside its metadata.
	// The caller owns the reader and must close it.
	Fetch(ctx context.Context, id string) (io.ReadCloser, *model.Artifact, error)

	// DownloadURL returns a pre-signed URL for downloading the artifact content directly
	// from object storage without credentials.
	DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error)

	// Delete removes an artifact by ID from both storage and repository.
	Delete(ctx context.Context, id string) error
}

// artifactService is a concrete implementation of ArtifactService.
type artifactService struct {
	store storage.BlobStore
	repo  repository.ArtifactRepository
}

// NewArtifactService constructs a new ArtifactService.
func NewArtifactService(store storage.BlobStore, repo repository.ArtifactRepository) ArtifactService {
	return &artifactService{store: store, repo: repo}
}

func (s *artifactService) Upload(ctx context.Context, r io.Reader, name, version, contentType string, size int64) (*model.Artifact, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if name == "" {
		return nil, ErrNameRequired
	}
	if version == "" {
		return nil, ErrVersionRequired
	}

	// The storage key is content-addressed by upload, not by name/version, so
	// re-uploads of a taken version never clobber the existing object.
	key := "artifacts/" + uuid.New().String()

	// Hash the content as storage consumes the reader.
	hasher := sha256.New()
	objInfo, err := s.store.Put(ctx, key, io.TeeReader(r, hasher), storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"artifact-name":    name,
			"artifact-version": version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	// Save metadata to database
	art := &model.Artifact{
		ID:          uuid.New().String(),
		Name:        name,
		Version:     version,
		ContentType: objInfo.ContentType,
		Size:        objInfo.Size,
		Digest:      "sha256:" + hex.EncodeToString(hasher.Sum(nil)),
		StorageKey:  objInfo.Key,
		CreatedAt:   time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, art)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrVersionExists
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// List returns paginated artifacts without exposing repository types.
func (s *artifactService) List(ctx context.Context, name string, limit, offset int) (*ArtifactListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset, Name: name})
	if err != nil {
		return nil, err
	}
	return &ArtifactListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns an artifact by ID.
func (s *artifactService) Get(ctx context.Context, id string) (*model.Artifact, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	art, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return art, nil
}

// Lookup returns the artifact with the given name and version.
func (s *artifactService) Lookup(ctx context.Context, name, version string) (*model.Artifact, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if version == "" {
		return nil, ErrVersionRequired
	}
	art, err := s.repo.FindByNameVersion(ctx, name, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return art, nil
}

// Fetch streams artifact content from storage along with its metadata.
func (s *artifactService) Fetch(ctx context.Context, id string) (io.ReadCloser, *model.Artifact, error) {
	art, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, art.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch from storage: %w", err)
	}
	return rc, art, nil
}

// DownloadURL returns a pre-signed GET URL for the artifact content.
func (s *artifactService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	art, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	u, err := s.store.PresignGet(ctx, art.StorageKey, expiry)
	if err != nil {
		return "", fmt.Errorf("presign download: %w", err)
	}
	return u, nil
}

// Delete removes an artifact from storage, then deletes its record.
func (s *artifactService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	// Find the artifact to get its storage key
	art, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	// Delete from storage first; if this fails, keep DB row to avoid orphaned storage reference loss
	if err := s.store.Delete(ctx, art.StorageKey); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	// Delete DB row (repository ignores missing row errors as per contract)
	return s.repo.Delete(ctx, id)
}
