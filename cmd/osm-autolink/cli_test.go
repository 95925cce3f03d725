package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"osmautolink/internal/config"
	"osmautolink/internal/osm"
	"osmautolink/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	api        *fakeAPI
}

// fakeAPI answers the OSM API calls an upload makes.
type fakeAPI struct {
	mu      sync.Mutex
	uploads int
	closed  int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.URL.Path == "/user/details.json":
		_, _ = io.WriteString(w, `{"user":{"id":7,"display_name":"mapper"}}`)
	case r.URL.Path == "/node/1":
		_, _ = io.WriteString(w, `<osm version="0.6"><node id="1" version="1" changeset="5" lat="51.4" lon="21.1"><tag k="name" v="Bar"/></node></osm>`)
	case r.URL.Path == "/changeset/create":
		_, _ = io.WriteString(w, "99")
	case r.URL.Path == "/changeset/99/upload":
		f.uploads++
	case r.URL.Path == "/changeset/99/close":
		f.closed++
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) counts() (uploads, closed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads, f.closed
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("DRY_RUN", "0")

	api := &fakeAPI{}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithOSMAPI(server.URL))
	configPath := filepath.Join(base, "osm-autolink.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, api: api}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[osm]\napi_url = %q\ntoken = %q\n\n[llm]\napi_key = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.OSM.APIURL,
		cfg.OSM.Token,
		cfg.LLM.APIKey,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seed writes records and releases the store lock before the CLI runs.
func (e *cliTestEnv) seed(t *testing.T, links map[string]string) {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	testsupport.Seed(t, store, links)
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
}

func (e *cliTestEnv) applied(t *testing.T, raw string) bool {
	t.Helper()
	store := testsupport.MustOpenStore(t, e.cfg)
	defer store.Close()
	rec, err := store.Get(context.Background(), osm.MustParseObjectID(raw))
	if err != nil || rec == nil {
		t.Fatalf("Get %s: %v (record %v)", raw, err, rec)
	}
	return rec.Applied
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.DataDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
}

func TestRecordsListStatsAndIgnore(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, map[string]string{
		"node/1": "https://bar.example",
		"way/2":  "",
	})

	out, _, err := runCLI(t, []string{"records", "list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	requireContains(t, out, "node/1")
	requireContains(t, out, "https://bar.example")
	requireContains(t, out, "no link")

	out, _, err = runCLI(t, []string{"records", "list", "--pending"}, env.configPath, "")
	if err != nil {
		t.Fatalf("records list --pending: %v", err)
	}
	if strings.Contains(out, "way/2") {
		t.Fatalf("expected way/2 hidden from pending list: %q", out)
	}

	out, _, err = runCLI(t, []string{"records", "ignore", "node/1", "relation/9"}, env.configPath, "")
	if err != nil {
		t.Fatalf("records ignore: %v", err)
	}
	requireContains(t, out, "Ignoring item node/1")
	requireContains(t, out, "No record for relation/9")
	if !env.applied(t, "node/1") {
		t.Fatal("expected node/1 applied after ignore")
	}

	out, _, err = runCLI(t, []string{"records", "stats"}, env.configPath, "")
	if err != nil {
		t.Fatalf("records stats: %v", err)
	}
	requireContains(t, out, "Pending upload")
	requireContains(t, out, "Applied")

	if _, _, err := runCLI(t, []string{"records", "ignore", "area/1"}, env.configPath, ""); err == nil {
		t.Fatal("expected invalid id to fail")
	}
}

func TestUploadYesCommitsPending(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, map[string]string{"node/1": "https://bar.example"})

	out, _, err := runCLI(t, []string{"upload", "--yes"}, env.configPath, "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Welcome, mapper!")
	requireContains(t, out, "https://www.openstreetmap.org/changeset/99")
	requireContains(t, out, "Done!")
	if uploads, closed := env.api.counts(); uploads != 1 || closed != 1 {
		t.Fatalf("expected one upload and one close, got %d/%d", uploads, closed)
	}
	if !env.applied(t, "node/1") {
		t.Fatal("expected node/1 applied after upload")
	}
}

func TestUploadAnswerNoAborts(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, map[string]string{"node/1": "https://bar.example"})

	out, _, err := runCLI(t, []string{"upload"}, env.configPath, "n\n")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "🔗 [0] https://www.openstreetmap.org/node/1 → https://bar.example")
	requireContains(t, out, "Aborting...")
	if uploads, _ := env.api.counts(); uploads != 0 {
		t.Fatalf("expected no upload, got %d", uploads)
	}
	if env.applied(t, "node/1") {
		t.Fatal("expected node/1 pending after abort")
	}
}

func TestWhoami(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"whoami"}, env.configPath, "")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	requireContains(t, out, "Welcome, mapper!")
	requireContains(t, out, "User ID: 7")
	requireContains(t, out, "Dry run: no")
}

func TestCheckReportsEveryService(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath, "")
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Data directory")
	requireContains(t, out, "authenticated as mapper")
	requireContains(t, out, "Link finder")
}
