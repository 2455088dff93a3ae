package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

const (
	serverName     = "skilldex"
	coreSkillLimit = 200
)

// SkillReader is the read surface the tools need. service.SkillService satisfies it.
type SkillReader interface {
	Search(ctx context.Context, query string, limit int) *service.SearchOutput
	GetByID(ctx context.Context, id string) (*domain.SkillRecord, error)
	GetAlwaysApply(ctx context.Context, limit int) ([]*domain.SkillRecord, error)
	ReadFile(ctx context.Context, id, relPath string) (*domain.SkillFile, error)
	Location(record *domain.SkillRecord) string
}

// Server exposes skills as MCP tools.
type Server struct {
	skills  SkillReader
	version string
}

func New(skills SkillReader, version string) *Server {
	return &Server{skills: skills, version: version}
}

// Build creates an MCP server whose instructions list the current core skills.
func (s *Server) Build(ctx context.Context) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: s.version,
	}, &mcp.ServerOptions{
		Instructions: s.instructions(ctx),
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_skills",
		Description: `Find skills by describing the task. Use "" or "*" to list all enabled skills.`,
	}, s.searchSkills)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "load_skill",
		Description: "Get a skill's full instructions and location. Call after search_skills.",
	}, s.loadSkill)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_skill_file",
		Description: "Read a supporting file (template, reference, config) from a skill's directory.",
	}, s.readSkillFile)

	return server
}

// RunStdio serves a single client over stdin/stdout until ctx is cancelled.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Build(ctx).Run(ctx, &mcp.StdioTransport{})
}

// Handler serves MCP over streamable HTTP. Each new session gets freshly built instructions.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return s.Build(r.Context())
	}, nil)
}

func (s *Server) instructions(ctx context.Context) string {
	var b strings.Builder
	b.WriteString(`# skilldex

skilldex serves Agent Skills: reusable expert instructions that load on demand.
Search first, then load only what you need.

## Workflow

1. search_skills("task description") finds skills by what you want to do.
2. load_skill(id) returns the instructions and the skill's location.
3. read_skill_file(id, path) reads templates or references the instructions point to.

If a search returns nothing, try broader terms or list everything with "".
`)

	core, err := s.skills.GetAlwaysApply(ctx, coreSkillLimit)
	if err != nil {
		logrus.WithError(err).Warn("failed to list core skills for instructions")
		return b.String()
	}
	if len(core) == 0 {
		return b.String()
	}

	b.WriteString("\n## Core Skills (always apply)\n\nThese skills apply to every task and can be loaded without searching:\n\n")
	for _, r := range core {
		fmt.Fprintf(&b, "- **%s**: %s\n", r.ID, r.Description)
	}
	return b.String()
}

type searchParams struct {
	Query string `json:"query,omitempty" jsonschema:"What you want to do, in natural language. Empty or * lists all skills."`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results"`
}

func (s *Server) searchSkills(ctx context.Context, _ *mcp.CallToolRequest, params *searchParams) (*mcp.CallToolResult, any, error) {
	out := s.skills.Search(ctx, params.Query, params.Limit)
	if len(out.Hits) == 0 {
		return textResult(fmt.Sprintf("No skills found for %q. Try broader terms or an empty query to list all.", params.Query)), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d skills (%s):\n\n", len(out.Hits), out.Tier)
	for i, h := range out.Hits {
		fmt.Fprintf(&b, "%d. %s", i+1, h.Record.ID)
		if out.Tier != domain.SearchTierListing {
			fmt.Fprintf(&b, " (score %.3f)", h.Score)
		}
		if h.Record.Description != "" {
			b.WriteString(": " + h.Record.Description)
		}
		b.WriteString("\n")
	}
	return textResult(b.String()), nil, nil
}

type loadParams struct {
	ID string `json:"id" jsonschema:"Skill id as returned by search_skills"`
}

func (s *Server) loadSkill(ctx context.Context, _ *mcp.CallToolRequest, params *loadParams) (*mcp.CallToolResult, any, error) {
	record, err := s.skills.GetByID(ctx, params.ID)
	if err != nil {
		return errorResult(err), nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", record.Name)
	fmt.Fprintf(&b, "id: %s\n", record.ID)
	fmt.Fprintf(&b, "path: %s\n", s.skills.Location(record))
	if record.Description != "" {
		fmt.Fprintf(&b, "description: %s\n", record.Description)
	}
	b.WriteString("\n")
	b.WriteString(record.Instructions)
	return textResult(b.String()), nil, nil
}

type readFileParams struct {
	ID   string `json:"id" jsonschema:"Skill id"`
	Path string `json:"path" jsonschema:"File path relative to the skill directory"`
}

func (s *Server) readSkillFile(ctx context.Context, _ *mcp.CallToolRequest, params *readFileParams) (*mcp.CallToolResult, any, error) {
	file, err := s.skills.ReadFile(ctx, params.ID, params.Path)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(file.Content), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult reports a tool failure to the model without failing the protocol call.
func errorResult(err error) *mcp.CallToolResult {
	var msg string
	var ambiguous *domain.AmbiguousSkillError
	var domainErr *domain.DomainError
	switch {
	case errors.As(err, &ambiguous):
		msg = fmt.Sprintf("%q matches several skills; use one of: %s", ambiguous.ID, strings.Join(ambiguous.Candidates, ", "))
	case errors.As(err, &domainErr):
		msg = domainErr.Message
	default:
		logrus.WithError(err).Error("mcp tool failed")
		msg = "internal error"
	}

	result := textResult(msg)
	result.IsError = true
	return result
}
