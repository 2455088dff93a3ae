//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/skilldex/internal/api/handlers"
	"github.com/cloo-solutions/skilldex/internal/api/middleware"
	"github.com/cloo-solutions/skilldex/internal/mcpserver"
	"github.com/cloo-solutions/skilldex/internal/repository"
	"github.com/cloo-solutions/skilldex/internal/server"
	"github.com/cloo-solutions/skilldex/internal/service"
	"github.com/cloo-solutions/skilldex/internal/source"
	"github.com/cloo-solutions/skilldex/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testToken = "sdx_e2e_token"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	SkillsDir    string
	Lifecycle    *service.IndexLifecycle
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts Postgres, indexes an on-disk corpus and serves the full router.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC)

	skillsDir := t.TempDir()
	writeCorpus(t, skillsDir)

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		SkillsDir:  skillsDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// WriteSkill adds or replaces a SKILL.md under the corpus root.
func (e *E2ETestEnv) WriteSkill(dir, content string) {
	writeFile(e.T, e.SkillsDir, filepath.Join(dir, source.SkillFileName), content)
}

func writeCorpus(t *testing.T, root string) {
	writeFile(t, root, "pdf/SKILL.md", `---
name: pdf
description: Extract text and tables from PDF documents
category: documents
tags: [pdf, extraction]
---
# PDF

Use pdftotext for plain extraction. See reference.md for forms.
`)
	writeFile(t, root, "pdf/reference.md", "Fill forms with pdftk.\n")
	writeFile(t, root, "office/xlsx/SKILL.md", `---
name: xlsx
description: Build spreadsheets with formulas and charts
category: office
---
Prefer openpyxl for formulas.
`)
	writeFile(t, root, "style/SKILL.md", `---
name: style
description: House style rules for every answer
always_apply: true
---
Be concise.
`)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// BuildBinaries compiles the skilldex CLI
func (e *E2ETestEnv) BuildBinaries() {
	e.T.Helper()

	binDir, err := os.MkdirTemp("", "skilldex-e2e-bin-*")
	if err != nil {
		e.T.Fatalf("failed to create bin dir: %v", err)
	}
	e.BinaryDir = binDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(binDir, "skilldex"), "./cmd/skilldex")
	cmd.Dir = filepath.Join("..", "..")
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build skilldex: %v\n%s", err, out)
	}
}

// RunSkilldex runs the CLI against the test server with an isolated config dir.
func (e *E2ETestEnv) RunSkilldex(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "skilldex"), args...)
	cmd.Env = append(os.Environ(),
		"SKILLDEX_API_URL="+e.ServerURL,
		"SKILLDEX_API_TOKEN="+testToken,
		"XDG_CONFIG_HOME="+e.T.TempDir(),
		"HOME="+e.T.TempDir(),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse is the decoded envelope plus status code.
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage
	Error      string
}

// Get sends an authenticated GET.
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, testToken)
}

// Post sends an authenticated POST with a JSON body.
func (e *E2ETestEnv) Post(path string, body any) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, testToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body any, token string) (*APIResponse, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.ServerURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error string          `json:"error"`
	}
	if len(raw) > 0 && raw[0] == '{' {
		_ = json.Unmarshal(raw, &envelope)
	}
	return &APIResponse{StatusCode: resp.StatusCode, Data: envelope.Data, Error: envelope.Error}, nil
}

// Decode unmarshals the data envelope into v.
func (r *APIResponse) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

func (e *E2ETestEnv) startServer(port int) (string, func()) {
	t := e.T

	src, err := source.NewFSSource(e.SkillsDir)
	if err != nil {
		t.Fatalf("failed to open corpus: %v", err)
	}

	index := repository.NewSkillIndexRepository(e.Pool, src.Root())
	detector := service.NewStalenessDetector(repository.NewIndexStateRepository(e.Pool), src, "none")
	indexer := service.NewIndexer(src, index, nil, 2, nil)
	e.Lifecycle = service.NewIndexLifecycle(detector, indexer, index)

	if _, err := e.Lifecycle.Ensure(e.Ctx, service.ReindexOptions{}); err != nil {
		t.Fatalf("initial index build failed: %v", err)
	}

	policy := service.EnablementPolicy{}
	search := service.NewSearchEngine(index, nil, policy, service.SearchConfig{}, nil)
	skills := service.NewSkillService(index, src, search, policy, 0)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator: middleware.NewStaticTokens([]string{testToken}),
		Ping:          e.Pool.Ping,
		SkillHandler:  handlers.NewSkillHandler(skills),
		IndexHandler:  handlers.NewIndexHandler(e.Lifecycle),
		MCPHandler:    mcpserver.New(skills, "e2e").Handler(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		_ = srv.ListenAndServe()
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServer(t, url+"/health", 10*time.Second)

	return url, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server at %s did not become ready", url)
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
