package testsupport

import (
	"path/filepath"
	"testing"

	"silkstaff/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// API credentials are filled with placeholders, pacing is disabled, and the
// checkpoint and upload store paths live under the temp data directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.Mode = string(config.ModeDevelopment)
	cfgVal.Paths.ProjectRoot = base
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.EnvFile = filepath.Join(base, ".env")

	cfgVal.API.URL = "http://127.0.0.1:0"
	cfgVal.API.Space = "test-space"
	cfgVal.API.Token = "test-token"
	cfgVal.API.UserID = "user-1"
	cfgVal.API.RequestsPerSecond = 0

	cfgVal.Upload.Endpoint = "http://127.0.0.1:0/files/"
	cfgVal.Upload.StaticURL = "http://127.0.0.1:0/static"
	cfgVal.Upload.RetryDelays = []int{0}
	cfgVal.Upload.Progress = false
	cfgVal.Upload.StorePath = filepath.Join(cfgVal.Paths.DataDir, "uploads.db")

	cfgVal.ReleaseUpload.IntervalMillis = 0
	cfgVal.ReleaseUpload.CheckpointPath = filepath.Join(cfgVal.Paths.DataDir, "upload_state.json")

	cfgVal.Shipment.FetchIntervalMillis = 0
	cfgVal.Shipment.UpdateIntervalMillis = 0
	cfgVal.Shipment.FlagDelayMillis = 0
	cfgVal.Shipment.CheckpointPath = filepath.Join(cfgVal.Paths.DataDir, "shipment_state.json")

	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIServer points the table API and the upload endpoint at baseURL,
// typically an httptest server.
func WithAPIServer(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.URL = baseURL
		b.cfg.Upload.Endpoint = baseURL + "/files/"
		b.cfg.Upload.StaticURL = baseURL + "/static"
	}
}

// WithNtfyTopic enables notifications against topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithMediaDir sets the release upload source paths.
func WithMediaDir(excelPath, mediaDir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.ReleaseUpload.ExcelPath = excelPath
		b.cfg.ReleaseUpload.MediaDir = mediaDir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.ProjectRoot
}
