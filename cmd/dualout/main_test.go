package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"dualout/internal/platforms"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "tester")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Signed in: yes")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestCollectionLifecycle(t *testing.T) {
	env := setupCLITestEnv(t, "tester")
	docPath := writeDocument(t, env.baseDir, "Demo", false)

	out, _, err := runCLI(t, []string{"collection", "import", docPath, "--id", "demo"}, env.configPath)
	if err != nil {
		t.Fatalf("collection import: %v", err)
	}
	requireContains(t, out, "Imported Demo (demo): 1 scenes, 3 nodes")

	out, _, err = runCLI(t, []string{"collection", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("collection list: %v", err)
	}
	requireContains(t, out, "demo")

	out, _, err = runCLI(t, []string{"mode", "on", "demo"}, env.configPath)
	if err != nil {
		t.Fatalf("mode on: %v", err)
	}
	requireContains(t, out, "Dual output enabled for demo")
	requireContains(t, out, "created 3")

	out, _, err = runCLI(t, []string{"scene", "check", "demo"}, env.configPath)
	if err != nil {
		t.Fatalf("scene check: %v\n%s", err, out)
	}
	requireContains(t, out, "Mapped Dual")

	out, _, err = runCLI(t, []string{"scene", "show", "demo", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("scene show: %v", err)
	}
	var views []sceneView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode scene show output: %v\n%s", err, out)
	}
	if len(views) != 1 || len(views[0].Nodes) != 6 {
		t.Fatalf("unexpected scene view %+v", views)
	}
	for _, n := range views[0].Nodes {
		if n.Partner == "" {
			t.Fatalf("node %s has no partner", n.ID)
		}
	}

	out, _, err = runCLI(t, []string{"mode", "off", "demo"}, env.configPath)
	if err != nil {
		t.Fatalf("mode off: %v", err)
	}
	requireContains(t, out, "node maps kept")

	out, _, err = runCLI(t, []string{"convert-vanilla", "demo"}, env.configPath)
	if err != nil {
		t.Fatalf("convert-vanilla: %v", err)
	}
	requireContains(t, out, "Removed 3 vertical nodes and 3 map entries")

	out, _, err = runCLI(t, []string{"collection", "export", "demo", "--format", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("collection export: %v", err)
	}
	requireContains(t, out, "name: Demo")
	if strings.Contains(out, "node_map") {
		t.Fatalf("vanilla export should not carry a node map:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"collection", "delete", "demo"}, env.configPath); err != nil {
		t.Fatalf("collection delete: %v", err)
	}
	if _, _, err := runCLI(t, []string{"scene", "show", "demo"}, env.configPath); err == nil {
		t.Fatal("expected an error for a deleted collection")
	}
}

func TestModeOnRequiresUser(t *testing.T) {
	env := setupCLITestEnv(t, "")
	docPath := writeDocument(t, env.baseDir, "Demo", false)
	if _, _, err := runCLI(t, []string{"collection", "import", docPath, "--id", "demo"}, env.configPath); err != nil {
		t.Fatalf("collection import: %v", err)
	}

	_, _, err := runCLI(t, []string{"mode", "on", "demo"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--user") {
		t.Fatalf("expected a login hint, got %v", err)
	}
	out, _, err := runCLI(t, []string{"mode", "on", "demo", "--user", "alice"}, env.configPath)
	if err != nil {
		t.Fatalf("mode on --user: %v", err)
	}
	requireContains(t, out, "Dual output enabled")
}

func TestRepairAll(t *testing.T) {
	env := setupCLITestEnv(t, "tester")
	for _, name := range []string{"One", "Two"} {
		path := writeDocument(t, env.baseDir, name, name == "One")
		if _, _, err := runCLI(t, []string{"collection", "import", path, "--id", strings.ToLower(name)}, env.configPath); err != nil {
			t.Fatalf("import %s: %v", name, err)
		}
	}

	out, _, err := runCLI(t, []string{"repair", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("repair --all: %v\n%s", err, out)
	}
	requireContains(t, out, "one")
	requireContains(t, out, "two")
	if strings.Contains(out, "failed") {
		t.Fatalf("unexpected failure:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"repair"}, env.configPath); err == nil {
		t.Fatal("expected an error without a collection id")
	}
	if _, _, err := runCLI(t, []string{"repair", "missing"}, env.configPath); err == nil {
		t.Fatal("expected an error for an unknown collection")
	}
}

func TestPlatformsCheck(t *testing.T) {
	env := setupCLITestEnv(t, "tester")

	_, _, err := runCLI(t, []string{"platforms", "check", "twitch", "youtube"}, env.configPath)
	if err == nil || err.Error() != platforms.CoverageMessage {
		t.Fatalf("expected the coverage message, got %v", err)
	}
	out, _, err := runCLI(t, []string{"platforms", "check", "twitch", "tiktok"}, env.configPath)
	if err != nil {
		t.Fatalf("platforms check: %v", err)
	}
	requireContains(t, out, "Horizontal: twitch")
	requireContains(t, out, "Vertical: tiktok")
	if _, _, err := runCLI(t, []string{"platforms", "check", "--single-output", "twitch"}, env.configPath); err != nil {
		t.Fatalf("single output check: %v", err)
	}
}

func TestWatchDocumentDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- watchDocument(ctx, path, 50*time.Millisecond, func() error {
			changes <- struct{}{}
			return nil
		}, func(error) {})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte(`{"name":"x"}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchDocument: %v", err)
	}
}
