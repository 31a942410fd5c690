package service

import (
	"context"

	"oss-impact-radar/internal/domain"
	"oss-impact-radar/internal/port"

	"github.com/stretchr/testify/mock"
)

// Mock implementations for testing
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q port.SearchQuery) (*port.SearchResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.SearchResult), args.Error(1)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) DeriveMetrics(repos []*domain.Repo) []*domain.Repo {
	args := m.Called(repos)
	return args.Get(0).([]*domain.Repo)
}

func (m *MockAnalyzer) CategorizeWithLLM(ctx context.Context, repos []*domain.Repo) ([]*domain.Repo, error) {
	args := m.Called(ctx, repos)
	return args.Get(0).([]*domain.Repo), args.Error(1)
}

func (m *MockAnalyzer) SetMaxGoroutines(max int) {
	m.Called(max)
}

type MockDatasetWriter struct {
	mock.Mock
}

func (m *MockDatasetWriter) Write(path string, repos []*domain.Repo) error {
	args := m.Called(path, repos)
	return args.Error(0)
}

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) SaveAll(ctx context.Context, repos []*domain.Repo) error {
	args := m.Called(ctx, repos)
	return args.Error(0)
}

func (m *MockRepository) Exists(ctx context.Context, repoID string) (bool, error) {
	args := m.Called(ctx, repoID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) All(ctx context.Context) ([]*domain.Repo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repo), args.Error(1)
}

func (m *MockRepository) Search(ctx context.Context, query string) ([]*domain.Repo, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Repo), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyRanking(ctx context.Context, title string, ranked []domain.RankedRepo) error {
	args := m.Called(ctx, title, ranked)
	return args.Error(0)
}
