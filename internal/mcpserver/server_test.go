package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSkillReader struct {
	mock.Mock
}

func (m *MockSkillReader) Search(ctx context.Context, query string, limit int) *service.SearchOutput {
	return m.Called(ctx, query, limit).Get(0).(*service.SearchOutput)
}

func (m *MockSkillReader) GetByID(ctx context.Context, id string) (*domain.SkillRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SkillRecord), args.Error(1)
}

func (m *MockSkillReader) GetAlwaysApply(ctx context.Context, limit int) ([]*domain.SkillRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SkillRecord), args.Error(1)
}

func (m *MockSkillReader) ReadFile(ctx context.Context, id, relPath string) (*domain.SkillFile, error) {
	args := m.Called(ctx, id, relPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SkillFile), args.Error(1)
}

func (m *MockSkillReader) Location(record *domain.SkillRecord) string {
	return "/srv/skills/" + record.Path
}

func connect(t *testing.T, skills SkillReader) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := New(skills, "test").Build(ctx).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callText(t *testing.T, session *mcp.ClientSession, tool string, args map[string]any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: tool, Arguments: args})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, result.IsError
}

func TestServer_ListsTools(t *testing.T) {
	skills := new(MockSkillReader)
	skills.On("GetAlwaysApply", mock.Anything, coreSkillLimit).Return([]*domain.SkillRecord{}, nil)

	session := connect(t, skills)
	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"search_skills", "load_skill", "read_skill_file"}, names)
}

func TestServer_InstructionsListCoreSkills(t *testing.T) {
	skills := new(MockSkillReader)
	skills.On("GetAlwaysApply", mock.Anything, coreSkillLimit).Return([]*domain.SkillRecord{
		{ID: "style", Description: "House writing style"},
	}, nil)

	session := connect(t, skills)
	instructions := session.InitializeResult().Instructions

	assert.Contains(t, instructions, "## Core Skills")
	assert.Contains(t, instructions, "- **style**: House writing style")
}

func TestServer_InstructionsWithoutIndex(t *testing.T) {
	skills := new(MockSkillReader)
	skills.On("GetAlwaysApply", mock.Anything, coreSkillLimit).Return(nil, domain.ErrIndexNotBuilt)

	instructions := New(skills, "test").instructions(context.Background())

	assert.Contains(t, instructions, "search_skills")
	assert.NotContains(t, instructions, "Core Skills")
}

func TestServer_SearchSkills(t *testing.T) {
	skills := new(MockSkillReader)
	skills.On("GetAlwaysApply", mock.Anything, coreSkillLimit).Return([]*domain.SkillRecord{}, nil)
	skills.On("Search", mock.Anything, "extract pdf tables", 5).Return(&service.SearchOutput{
		Tier: domain.SearchTierText,
		Hits: []*domain.SearchHit{
			{Record: &domain.SkillRecord{ID: "pdf", Description: "Extract tables"}, Score: 0.5},
		},
	})
	skills.On("Search", mock.Anything, "nothing", 0).Return(&service.SearchOutput{Tier: domain.SearchTierText})

	session := connect(t, skills)

	text, isErr := callText(t, session, "search_skills", map[string]any{"query": "extract pdf tables", "limit": 5})
	assert.False(t, isErr)
	assert.Contains(t, text, "Found 1 skills (text)")
	assert.Contains(t, text, "1. pdf (score 0.500): Extract tables")

	text, _ = callText(t, session, "search_skills", map[string]any{"query": "nothing"})
	assert.Contains(t, text, "No skills found")
}

func TestServer_LoadSkill(t *testing.T) {
	skills := new(MockSkillReader)
	skills.On("GetAlwaysApply", mock.Anything, coreSkillLimit).Return([]*domain.SkillRecord{}, nil)
	skills.On("GetByID", mock.Anything, "pdf").Return(&domain.SkillRecord{
		ID: "pdf", Name: "pdf", Description: "Extract tables", Path: "pdf", Instructions: "Run scripts/extract.py\n",
	}, nil)
	skills.On("GetByID", mock.Anything, "xlsx").Return(nil, &domain.AmbiguousSkillError{ID: "xlsx", Candidates: []string{"a/xlsx", "b/xlsx"}})
	skills.On("GetByID", mock.Anything, "nope").Return(nil, domain.ErrSkillNotFound)

	session := connect(t, skills)

	text, isErr := callText(t, session, "load_skill", map[string]any{"id": "pdf"})
	assert.False(t, isErr)
	assert.Contains(t, text, "path: /srv/skills/pdf")
	assert.Contains(t, text, "Run scripts/extract.py")

	text, isErr = callText(t, session, "load_skill", map[string]any{"id": "xlsx"})
	assert.True(t, isErr)
	assert.Contains(t, text, "a/xlsx, b/xlsx")

	text, isErr = callText(t, session, "load_skill", map[string]any{"id": "nope"})
	assert.True(t, isErr)
	assert.Equal(t, "skill not found", text)
}

func TestServer_ReadSkillFile(t *testing.T) {
	skills := new(MockSkillReader)
	skills.On("GetAlwaysApply", mock.Anything, coreSkillLimit).Return([]*domain.SkillRecord{}, nil)
	skills.On("ReadFile", mock.Anything, "pdf", "reference.md").Return(&domain.SkillFile{Path: "reference.md", Content: "# Reference"}, nil)
	skills.On("ReadFile", mock.Anything, "pdf", "../secret").Return(nil, domain.ErrPathTraversal)

	session := connect(t, skills)

	text, isErr := callText(t, session, "read_skill_file", map[string]any{"id": "pdf", "path": "reference.md"})
	assert.False(t, isErr)
	assert.Equal(t, "# Reference", text)

	text, isErr = callText(t, session, "read_skill_file", map[string]any{"id": "pdf", "path": "../secret"})
	assert.True(t, isErr)
	assert.Equal(t, "path escapes skill directory", text)
}

func TestErrorResult_HidesInternalErrors(t *testing.T) {
	result := errorResult(errors.New("pq: connection refused to 10.0.0.3"))

	assert.True(t, result.IsError)
	assert.Equal(t, "internal error", result.Content[0].(*mcp.TextContent).Text)
}

func TestErrorResult_DomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "domain error message",
			err:  fmt.Errorf("load: %w", domain.ErrSkillNotFound),
			want: domain.ErrSkillNotFound.Message,
		},
		{
			name: "ambiguous id lists candidates",
			err:  &domain.AmbiguousSkillError{ID: "pdf", Candidates: []string{"office/pdf", "docs/pdf"}},
			want: `"pdf" matches several skills; use one of: office/pdf, docs/pdf`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errorResult(tt.err)

			assert.True(t, result.IsError)
			assert.Equal(t, tt.want, result.Content[0].(*mcp.TextContent).Text)
		})
	}
}
