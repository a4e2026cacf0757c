package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	env, err := loadEnvSource(c.Paths.EnvFile)
	if err != nil {
		return err
	}
	if err := c.normalizeAPI(env); err != nil {
		return err
	}
	if err := c.normalizeUpload(); err != nil {
		return err
	}
	if err := c.normalizeReleaseUpload(env); err != nil {
		return err
	}
	if err := c.normalizeShipment(); err != nil {
		return err
	}
	c.normalizeNotifications(env)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	mode, err := ParseMode(c.Paths.Mode)
	if err != nil {
		return err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	root := strings.TrimSpace(c.Paths.ProjectRoot)
	if root == "" && mode == ModeDevelopment {
		if root, err = os.Getwd(); err != nil {
			return fmt.Errorf("paths.project_root: %w", err)
		}
	}
	if root, err = expandPath(root); err != nil {
		return fmt.Errorf("paths.project_root: %w", err)
	}

	resolved := ResolvePaths(mode, PathOverrides{
		HomeDir:     home,
		ProjectRoot: root,
		DataDir:     c.Paths.DataDir,
		LogDir:      c.Paths.LogDir,
		ResultsDir:  c.Paths.ResultsDir,
		EnvFile:     c.Paths.EnvFile,
	})

	c.Paths.Mode = string(resolved.Mode)
	c.Paths.ProjectRoot = resolved.ProjectRoot
	if c.Paths.DataDir, err = expandPath(resolved.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(resolved.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ResultsDir, err = expandPath(resolved.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if c.Paths.EnvFile, err = expandPath(resolved.EnvFile); err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeAPI(env envSource) error {
	env.fill(&c.API.URL, "EMD_API")
	env.fill(&c.API.Space, "EMD_SPACE")
	env.fill(&c.API.Token, "EMD_TOKEN")
	env.fill(&c.API.UserID, "EMD_USER_ID")
	if value, ok := env.lookup("EMD_HEADER_TOKEN"); ok && (c.API.HeaderToken == "" || c.API.HeaderToken == defaultHeaderToken) {
		c.API.HeaderToken = value
	}
	c.API.URL = strings.TrimRight(strings.TrimSpace(c.API.URL), "/")
	c.API.HeaderToken = strings.TrimSpace(c.API.HeaderToken)
	if c.API.RequestTimeout <= 0 {
		c.API.RequestTimeout = defaultRequestTimeout
	}
	if c.API.RequestsPerSecond < 0 {
		c.API.RequestsPerSecond = 0
	}
	return nil
}

func (c *Config) normalizeUpload() error {
	c.Upload.Endpoint = strings.TrimSpace(c.Upload.Endpoint)
	c.Upload.StaticURL = strings.TrimRight(strings.TrimSpace(c.Upload.StaticURL), "/")
	if c.Upload.Endpoint == "" && c.API.URL != "" {
		c.Upload.Endpoint = c.API.URL + defaultUploadEndpointSuffix
	}
	if c.Upload.StaticURL == "" && c.API.URL != "" {
		c.Upload.StaticURL = c.API.URL + defaultUploadStaticSuffix
	}
	if c.Upload.ChunkSizeMiB <= 0 {
		c.Upload.ChunkSizeMiB = defaultChunkSizeMiB
	}
	if len(c.Upload.RetryDelays) == 0 {
		c.Upload.RetryDelays = append([]int(nil), defaultRetryDelays...)
	}
	if strings.TrimSpace(c.Upload.StorePath) == "" {
		c.Upload.StorePath = filepath.Join(c.Paths.DataDir, defaultUploadStoreFile)
	}
	var err error
	if c.Upload.StorePath, err = expandPath(c.Upload.StorePath); err != nil {
		return fmt.Errorf("upload.store_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeReleaseUpload(env envSource) error {
	r := &c.ReleaseUpload
	var err error
	if r.ExcelPath, err = expandPath(strings.TrimSpace(r.ExcelPath)); err != nil {
		return fmt.Errorf("release_upload.excel_path: %w", err)
	}
	if r.MediaDir, err = expandPath(strings.TrimSpace(r.MediaDir)); err != nil {
		return fmt.Errorf("release_upload.media_dir: %w", err)
	}
	if strings.TrimSpace(r.Sheet) == "" {
		r.Sheet = defaultReleaseSheet
	}
	if strings.TrimSpace(r.Table) == "" {
		r.Table = defaultReleaseTable
	}
	if strings.TrimSpace(r.PlatformsTable) == "" {
		r.PlatformsTable = defaultPlatformsTable
	}
	if strings.TrimSpace(r.Notice) == "" {
		r.Notice = defaultNotice
	}
	if r.IntervalMillis < 0 {
		r.IntervalMillis = 0
	}
	if strings.TrimSpace(r.CheckpointPath) == "" {
		r.CheckpointPath = filepath.Join(c.Paths.DataDir, defaultReleaseCheckpoint)
	}
	if r.CheckpointPath, err = expandPath(r.CheckpointPath); err != nil {
		return fmt.Errorf("release_upload.checkpoint_path: %w", err)
	}
	if value, ok := env.lookup("DAYS_GONE_FOR_START_SITES"); ok && r.StartDelayDays == defaultStartDelayDays {
		days, convErr := strconv.Atoi(value)
		if convErr != nil {
			return fmt.Errorf("DAYS_GONE_FOR_START_SITES: %q is not an integer", value)
		}
		r.StartDelayDays = days
	}
	return nil
}

func (c *Config) normalizeShipment() error {
	s := &c.Shipment
	if strings.TrimSpace(s.Table) == "" {
		s.Table = defaultReleaseTable
	}
	if s.PageLimit <= 0 {
		s.PageLimit = defaultShipmentPageLimit
	}
	if strings.TrimSpace(s.SourceStatus) == "" {
		s.SourceStatus = defaultShipmentSource
	}
	if strings.TrimSpace(s.TargetStatus) == "" {
		s.TargetStatus = defaultShipmentTarget
	}
	if strings.TrimSpace(s.FlagField) == "" {
		s.FlagField = defaultShipmentFlagField
	}
	if strings.TrimSpace(s.Notice) == "" {
		s.Notice = defaultNotice
	}
	if strings.TrimSpace(s.CheckpointPath) == "" {
		s.CheckpointPath = filepath.Join(c.Paths.DataDir, defaultShipmentCheckpoint)
	}
	var err error
	if s.CheckpointPath, err = expandPath(s.CheckpointPath); err != nil {
		return fmt.Errorf("shipment.checkpoint_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications(env envSource) {
	env.fill(&c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
