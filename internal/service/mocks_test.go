package service

import (
	"context"
	"sync"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockSkillIndex struct {
	mock.Mock
}

func (m *MockSkillIndex) Rebuild(ctx context.Context, records []*domain.SkillRecord) (*domain.BuildReport, error) {
	args := m.Called(ctx, records)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuildReport), args.Error(1)
}

func (m *MockSkillIndex) Active(ctx context.Context) (*domain.Generation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Generation), args.Error(1)
}

func (m *MockSkillIndex) LookupByID(ctx context.Context, id string) (*domain.SkillRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SkillRecord), args.Error(1)
}

func (m *MockSkillIndex) LookupByName(ctx context.Context, name string, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, name, limit)
	return recordsArg(args), args.Error(1)
}

func (m *MockSkillIndex) ListAll(ctx context.Context, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, limit)
	return recordsArg(args), args.Error(1)
}

func (m *MockSkillIndex) ListWhere(ctx context.Context, predicate domain.Predicate, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, predicate, limit)
	return recordsArg(args), args.Error(1)
}

func (m *MockSkillIndex) ListAlwaysApply(ctx context.Context, predicate domain.Predicate, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, predicate, limit)
	return recordsArg(args), args.Error(1)
}

func (m *MockSkillIndex) SearchVector(ctx context.Context, vector []float32, predicate domain.Predicate, limit int) ([]*domain.SearchHit, error) {
	args := m.Called(ctx, vector, predicate, limit)
	return hitsArg(args), args.Error(1)
}

func (m *MockSkillIndex) SearchText(ctx context.Context, query string, predicate domain.Predicate, limit int) ([]*domain.SearchHit, error) {
	args := m.Called(ctx, query, predicate, limit)
	return hitsArg(args), args.Error(1)
}

func (m *MockSkillIndex) Scan(ctx context.Context, predicate domain.Predicate, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, predicate, limit)
	return recordsArg(args), args.Error(1)
}

func recordsArg(args mock.Arguments) []*domain.SkillRecord {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*domain.SkillRecord)
}

func hitsArg(args mock.Arguments) []*domain.SearchHit {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*domain.SearchHit)
}

type MockSkillSource struct {
	mock.Mock
}

func (m *MockSkillSource) Root() string {
	return m.Called().String(0)
}

func (m *MockSkillSource) Stat(ctx context.Context) (*domain.CorpusStat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CorpusStat), args.Error(1)
}

func (m *MockSkillSource) Load(ctx context.Context) ([]*domain.RawSkill, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.RawSkill), args.Error(1)
}

func (m *MockSkillSource) ReadFile(ctx context.Context, skillPath, relPath string, maxBytes int64) (*domain.SkillFile, error) {
	args := m.Called(ctx, skillPath, relPath, maxBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SkillFile), args.Error(1)
}

// MockEmbeddingClient mocks an embedding provider
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockIndexStateRepo struct {
	mock.Mock
}

func (m *MockIndexStateRepo) Get(ctx context.Context, corpusRoot string) (*domain.IndexState, error) {
	args := m.Called(ctx, corpusRoot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IndexState), args.Error(1)
}

func (m *MockIndexStateRepo) Save(ctx context.Context, state *domain.IndexState) error {
	return m.Called(ctx, state).Error(0)
}

type MockIndexBuilder struct {
	mock.Mock
}

func (m *MockIndexBuilder) Rebuild(ctx context.Context) (*domain.BuildReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BuildReport), args.Error(1)
}

// memoryCache is an in-memory EmbeddingCache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]float32
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]float32)}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *memoryCache) Set(_ context.Context, key string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = vector
}
