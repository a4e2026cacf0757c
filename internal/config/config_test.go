package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"silkstaff/internal/config"
	"silkstaff/internal/services"
)

func clearAPIEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"EMD_API", "EMD_SPACE", "EMD_HEADER_TOKEN", "EMD_TOKEN", "EMD_USER_ID", "DAYS_GONE_FOR_START_SITES", "NTFY_TOPIC"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultConfigResolvesInstalledLayout(t *testing.T) {
	clearAPIEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "silkstaff")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.EnvFile != filepath.Join(tempHome, ".config", "silkstaff", ".env") {
		t.Fatalf("unexpected env file: %q", cfg.Paths.EnvFile)
	}
	if cfg.ReleaseUpload.CheckpointPath != filepath.Join(wantData, "upload_state.json") {
		t.Fatalf("unexpected release checkpoint: %q", cfg.ReleaseUpload.CheckpointPath)
	}
	if cfg.Shipment.CheckpointPath != filepath.Join(wantData, "shipment_state.json") {
		t.Fatalf("unexpected shipment checkpoint: %q", cfg.Shipment.CheckpointPath)
	}
	if cfg.Upload.StorePath != filepath.Join(wantData, "uploads.db") {
		t.Fatalf("unexpected upload store: %q", cfg.Upload.StorePath)
	}
	if cfg.Upload.ChunkSize() != 64*1024*1024 {
		t.Fatalf("unexpected chunk size: %d", cfg.Upload.ChunkSize())
	}
	if got := cfg.Upload.RetrySchedule(); len(got) != 5 || got[1] != 3*time.Second || got[4] != 20*time.Second {
		t.Fatalf("unexpected retry schedule: %v", got)
	}
	if cfg.ReleaseUpload.StartDelayDays != 14 {
		t.Fatalf("expected 14 start delay days, got %d", cfg.ReleaseUpload.StartDelayDays)
	}
	if cfg.Shipment.FetchInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected fetch interval: %s", cfg.Shipment.FetchInterval())
	}
	if cfg.Upload.Endpoint != "" {
		t.Fatalf("expected empty upload endpoint without api url, got %q", cfg.Upload.Endpoint)
	}
	if err := cfg.ValidateAPI(); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing credentials, got %v", err)
	}
}

func TestLoadCustomPathDevelopmentMode(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	configPath := filepath.Join(root, "silkstaff.toml")

	payload := map[string]any{
		"paths": map[string]any{
			"mode":         "development",
			"project_root": root,
		},
		"api": map[string]any{
			"url":     "https://api.example.com/",
			"space":   "space-1",
			"token":   "secret",
			"user_id": "user-1",
		},
		"release_upload": map[string]any{
			"interval_ms": 250,
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(root, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.ResultsDir != filepath.Join(root, "results") {
		t.Fatalf("unexpected results dir: %q", cfg.Paths.ResultsDir)
	}
	if cfg.Paths.EnvFile != filepath.Join(root, ".env") {
		t.Fatalf("unexpected env file: %q", cfg.Paths.EnvFile)
	}
	if cfg.API.URL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.URL)
	}
	if cfg.Upload.Endpoint != "https://api.example.com/silk/uploader/chunk/default/s3/" {
		t.Fatalf("unexpected upload endpoint: %q", cfg.Upload.Endpoint)
	}
	if cfg.Upload.StaticURL != "https://api.example.com/silk/uploader/chunk/default/file" {
		t.Fatalf("unexpected static url: %q", cfg.Upload.StaticURL)
	}
	if cfg.ReleaseUpload.Interval() != 250*time.Millisecond {
		t.Fatalf("unexpected interval: %s", cfg.ReleaseUpload.Interval())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if got := cfg.API.AuthorizationHeader(); got != "Bearer secret" {
		t.Fatalf("unexpected authorization header: %q", got)
	}
	if err := cfg.ValidateAPI(); err != nil {
		t.Fatalf("ValidateAPI returned error: %v", err)
	}
}

func TestEnvFileSuppliesCredentialsWithoutOverridingProcessEnv(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	envFile := filepath.Join(root, ".env")
	content := strings.Join([]string{
		"EMD_API=https://file.example.com",
		"EMD_SPACE=file-space",
		"EMD_HEADER_TOKEN=Token",
		"EMD_TOKEN=file-token",
		"EMD_USER_ID=file-user",
		"DAYS_GONE_FOR_START_SITES=7",
		"NTFY_TOPIC=https://ntfy.example.com/topic",
	}, "\n")
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("EMD_TOKEN", "process-token")

	configPath := filepath.Join(root, "config.toml")
	configBody := "[paths]\nmode = \"development\"\nproject_root = \"" + filepath.ToSlash(root) + "\"\n"
	if err := os.WriteFile(configPath, []byte(configBody), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.API.Token != "process-token" {
		t.Fatalf("expected process env to win, got %q", cfg.API.Token)
	}
	if cfg.API.URL != "https://file.example.com" || cfg.API.Space != "file-space" || cfg.API.UserID != "file-user" {
		t.Fatalf("expected env file credentials, got %+v", cfg.API)
	}
	if cfg.API.HeaderToken != "Token" {
		t.Fatalf("expected header token from env file, got %q", cfg.API.HeaderToken)
	}
	if cfg.ReleaseUpload.StartDelayDays != 7 {
		t.Fatalf("expected start delay from env file, got %d", cfg.ReleaseUpload.StartDelayDays)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example.com/topic" {
		t.Fatalf("unexpected ntfy topic: %q", cfg.Notifications.NtfyTopic)
	}
	if _, ok := os.LookupEnv("EMD_SPACE"); ok && os.Getenv("EMD_SPACE") != "" {
		t.Fatal("env file must not mutate the process environment")
	}
}

func TestResolvePathsOverridesWin(t *testing.T) {
	got := config.ResolvePaths(config.ModeInstalled, config.PathOverrides{
		HomeDir: "/home/u",
		LogDir:  "/var/log/silkstaff",
	})
	if got.DataDir != filepath.Join("/home/u", ".local", "share", "silkstaff") {
		t.Fatalf("unexpected data dir: %q", got.DataDir)
	}
	if got.LogDir != "/var/log/silkstaff" {
		t.Fatalf("expected log override, got %q", got.LogDir)
	}

	dev := config.ResolvePaths(config.ModeDevelopment, config.PathOverrides{ProjectRoot: "/src/app"})
	if dev.DataDir != filepath.Join("/src/app", "data") || dev.EnvFile != filepath.Join("/src/app", ".env") {
		t.Fatalf("unexpected development layout: %+v", dev)
	}
	if again := config.ResolvePaths(config.ModeDevelopment, config.PathOverrides{ProjectRoot: "/src/app"}); again != dev {
		t.Fatalf("expected ResolvePaths to be deterministic: %+v vs %+v", again, dev)
	}
}

func TestSavedPathsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if _, ok, err := config.ReadSavedPaths(dir); err != nil || ok {
		t.Fatalf("expected missing saved paths, got ok=%v err=%v", ok, err)
	}
	want := config.SavedPaths{ExcelPath: "/data/releases.xlsx", DirectoryPath: "/data/media"}
	if err := config.WriteSavedPaths(dir, want); err != nil {
		t.Fatalf("WriteSavedPaths: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "paths.json"))
	if err != nil {
		t.Fatalf("read paths.json: %v", err)
	}
	if !strings.Contains(string(raw), "excel_file_path") {
		t.Fatalf("expected excel_file_path key, got %s", raw)
	}
	got, ok, err := config.ReadSavedPaths(dir)
	if err != nil || !ok {
		t.Fatalf("ReadSavedPaths: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("unexpected saved paths: %+v", got)
	}
}

func TestCreateSample(t *testing.T) {
	clearAPIEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[release_upload]") {
		t.Fatalf("expected release_upload section in sample config")
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"chunk size", func(c *config.Config) { c.Upload.ChunkSizeMiB = 0 }, "chunk_size_mib"},
		{"retry delay", func(c *config.Config) { c.Upload.RetryDelays = []int{0, -1} }, "retry_delays"},
		{"interval", func(c *config.Config) { c.ReleaseUpload.IntervalMillis = -5 }, "interval_ms"},
		{"statuses", func(c *config.Config) { c.Shipment.TargetStatus = c.Shipment.SourceStatus }, "must differ"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
