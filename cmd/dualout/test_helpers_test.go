package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T, username string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("DUALOUT_USER", "")
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\n\n[logging]\nlevel = \"error\"\n\n[account]\nusername = %q\n",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		username,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}

// writeDocument writes a one-scene collection with a folder to dir.
func writeDocument(t *testing.T, dir, name string, dualOutput bool) string {
	t.Helper()
	content := fmt.Sprintf(`{
  "name": %q,
  "dualOutputMode": %t,
  "activeSceneId": "main",
  "scenes": [
    {"id": "main", "name": "Main", "nodes": [
      {"id": "Item1", "type": "item", "name": "Item1", "sourceId": "src-Item1", "visible": true},
      {"id": "Folder1", "type": "folder", "name": "Folder1"},
      {"id": "Item2", "type": "item", "name": "Item2", "sourceId": "src-Item2", "parentId": "Folder1", "visible": true}
    ]}
  ]
}`, name, dualOutput)
	path := filepath.Join(dir, strings.ToLower(name)+".json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}
