package mocks

import (
	"context"
	"io"
	"time"

	"canister/internal/model"
	"canister/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockArtifactService struct {
	mock.Mock
}

func (m *MockArtifactService) Upload(ctx context.Context, r io.Reader, name, version, contentType string, size int64) (*model.Artifact, error) {
	args := m.Called(ctx, r, name, version, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) List(ctx context.Context, name string, limit, offset int) (*service.ArtifactListResult, error) {
	args := m.Called(ctx, name, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ArtifactListResult), args.Error(1)
}

func (m *MockArtifactService) Get(ctx context.Context, id string) (*model.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Lookup(ctx context.Context, name, version string) (*model.Artifact, error) {
	args := m.Called(ctx, name, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Fetch(ctx context.Context, id string) (io.ReadCloser, *model.Artifact, error) {
	args := m.Called(ctx, id)
	var rc io.ReadCloser
	if args.Get(0) != nil {
		rc = args.Get(0).(io.ReadCloser)
	}
	var art *model.Artifact
	if args.Get(1) != nil {
		art = args.Get(1).(*model.Artifact)
	}
	return rc, art, args.Error(2)
}

func (m *MockArtifactService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
