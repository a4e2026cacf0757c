package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration. Empty fields are filled by ResolvePaths.
type Paths struct {
	Mode        string `toml:"mode"`
	ProjectRoot string `toml:"project_root"`
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	ResultsDir  string `toml:"results_dir"`
	EnvFile     string `toml:"env_file"`
}

// API contains connection settings for the remote table storage service.
type API struct {
	URL               string  `toml:"url"`
	Space             string  `toml:"space"`
	HeaderToken       string  `toml:"header_token"`
	Token             string  `toml:"token"`
	UserID            string  `toml:"user_id"`
	RequestTimeout    int     `toml:"request_timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Upload contains configuration for the chunked media upload endpoint.
type Upload struct {
	Endpoint     string `toml:"endpoint"`
	StaticURL    string `toml:"static_url"`
	ChunkSizeMiB int    `toml:"chunk_size_mib"`
	RetryDelays  []int  `toml:"retry_delays"`
	StorePath    string `toml:"store_path"`
	Progress     bool   `toml:"progress"`
}

// ReleaseUpload configures the spreadsheet-to-table release upload job.
type ReleaseUpload struct {
	ExcelPath      string `toml:"excel_path"`
	MediaDir       string `toml:"media_dir"`
	Sheet          string `toml:"sheet"`
	Table          string `toml:"table"`
	PlatformsTable string `toml:"platforms_table"`
	Notice         string `toml:"notice"`
	IntervalMillis int    `toml:"interval_ms"`
	CheckpointPath string `toml:"checkpoint_path"`
	StartDelayDays int    `toml:"start_delay_days"`
}

// Shipment configures the job that hands new releases over to moderation.
type Shipment struct {
	Table                string `toml:"table"`
	PageLimit            int    `toml:"page_limit"`
	FetchIntervalMillis  int    `toml:"fetch_interval_ms"`
	UpdateIntervalMillis int    `toml:"update_interval_ms"`
	FlagDelayMillis      int    `toml:"flag_delay_ms"`
	SourceStatus         string `toml:"source_status"`
	TargetStatus         string `toml:"target_status"`
	FlagField            string `toml:"flag_field"`
	Notice               string `toml:"notice"`
	CheckpointPath       string `toml:"checkpoint_path"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for silkstaff.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and results directories plus the env file
//   - API: table storage credentials and request pacing
//   - Upload: chunked upload endpoint, chunk size, and retry schedule
//   - ReleaseUpload: spreadsheet source, media directory, and checkpoint
//   - Shipment: status filters and pacing for the moderation hand-off
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Upload        Upload        `toml:"upload"`
	ReleaseUpload ReleaseUpload `toml:"release_upload"`
	Shipment      Shipment      `toml:"shipment"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/silkstaff/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields resolved and expanded, and credentials merged from the environment.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("silkstaff.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and results directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ResultsDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RequestTimeoutDuration returns the per-request timeout for table API calls.
func (a API) RequestTimeoutDuration() time.Duration {
	return time.Duration(a.RequestTimeout) * time.Second
}

// AuthorizationHeader renders the Authorization header value shared by the
// table API and the upload endpoint.
func (a API) AuthorizationHeader() string {
	header := strings.TrimSpace(a.HeaderToken)
	token := strings.TrimSpace(a.Token)
	if header == "" {
		return token
	}
	return header + " " + token
}

// ChunkSize returns the upload chunk size in bytes.
func (u Upload) ChunkSize() int64 {
	return int64(u.ChunkSizeMiB) * 1024 * 1024
}

// RetrySchedule returns the delays applied between upload attempts.
func (u Upload) RetrySchedule() []time.Duration {
	delays := make([]time.Duration, 0, len(u.RetryDelays))
	for _, seconds := range u.RetryDelays {
		delays = append(delays, time.Duration(seconds)*time.Second)
	}
	return delays
}

// Interval returns the delay between consecutive release uploads.
func (r ReleaseUpload) Interval() time.Duration {
	return time.Duration(r.IntervalMillis) * time.Millisecond
}

// FetchInterval returns the delay between page requests.
func (s Shipment) FetchInterval() time.Duration {
	return time.Duration(s.FetchIntervalMillis) * time.Millisecond
}

// UpdateInterval returns the delay between release status updates.
func (s Shipment) UpdateInterval() time.Duration {
	return time.Duration(s.UpdateIntervalMillis) * time.Millisecond
}

// FlagDelay returns the pause between the flag upsert and the status upsert.
func (s Shipment) FlagDelay() time.Duration {
	return time.Duration(s.FlagDelayMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
