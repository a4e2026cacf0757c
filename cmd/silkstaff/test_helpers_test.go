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
	projectDir string
	configPath string
}

type cliOption func(*cliSettings)

type cliSettings struct {
	apiURL    string
	ntfyTopic string
}

func withAPI(url string) cliOption {
	return func(s *cliSettings) { s.apiURL = url }
}

func withTopic(topic string) cliOption {
	return func(s *cliSettings) { s.ntfyTopic = topic }
}

func setupCLITestEnv(t *testing.T, opts ...cliOption) *cliTestEnv {
	t.Helper()

	settings := cliSettings{apiURL: "http://127.0.0.1:1"}
	for _, opt := range opts {
		opt(&settings)
	}

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	projectDir := filepath.Join(base, "project")
	for _, dir := range []string{homeDir, projectDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"EMD_API", "EMD_SPACE", "EMD_TOKEN", "EMD_USER_ID", "EMD_HEADER_TOKEN", "NTFY_TOPIC", "DAYS_GONE_FOR_START_SITES"} {
		t.Setenv(key, "")
	}

	configPath := filepath.Join(homeDir, ".config", "silkstaff", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, projectDir, settings)

	return &cliTestEnv{baseDir: base, projectDir: projectDir, configPath: configPath}
}

func writeTestConfig(t *testing.T, path, projectDir string, settings cliSettings) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
mode = "development"
project_root = %q

[api]
url = %q
space = "test-space"
token = "test-token"
user_id = "user-1"
requests_per_second = 0

[notifications]
ntfy_topic = %q

[logging]
level = "error"
retention_days = 0
`, projectDir, settings.apiURL, settings.ntfyTopic)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
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

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
