package handlers

import (
	"context"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockSkillService struct {
	mock.Mock
}

func (m *MockSkillService) Search(ctx context.Context, query string, limit int) *service.SearchOutput {
	args := m.Called(ctx, query, limit)
	return args.Get(0).(*service.SearchOutput)
}

func (m *MockSkillService) GetByID(ctx context.Context, id string) (*domain.SkillRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SkillRecord), args.Error(1)
}

func (m *MockSkillService) ListAll(ctx context.Context, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SkillRecord), args.Error(1)
}

func (m *MockSkillService) GetAlwaysApply(ctx context.Context, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SkillRecord), args.Error(1)
}

func (m *MockSkillService) ReadFile(ctx context.Context, id, relPath string) (*domain.SkillFile, error) {
	args := m.Called(ctx, id, relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SkillFile), args.Error(1)
}

func (m *MockSkillService) Location(record *domain.SkillRecord) string {
	args := m.Called(record)
	return args.String(0)
}

func (m *MockSkillService) Lint(ctx context.Context) (*service.LintReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LintReport), args.Error(1)
}

type MockIndexService struct {
	mock.Mock
}

func (m *MockIndexService) Ensure(ctx context.Context, opts service.ReindexOptions) (*service.EnsureResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EnsureResult), args.Error(1)
}

func (m *MockIndexService) Status(ctx context.Context) (*service.IndexStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IndexStatus), args.Error(1)
}
