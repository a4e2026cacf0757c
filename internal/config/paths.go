package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Mode selects the directory layout used by ResolvePaths.
type Mode string

const (
	// ModeInstalled keeps state under the user's home directory.
	ModeInstalled Mode = "installed"
	// ModeDevelopment keeps state next to a project checkout.
	ModeDevelopment Mode = "development"
)

// ParseMode converts a configuration value to a Mode, defaulting to ModeInstalled.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ModeInstalled):
		return ModeInstalled, nil
	case string(ModeDevelopment), "dev":
		return ModeDevelopment, nil
	default:
		return "", fmt.Errorf("paths.mode: unsupported value %q", value)
	}
}

// PathOverrides carries the inputs ResolvePaths needs. HomeDir and ProjectRoot
// anchor the two layouts; the remaining fields replace computed values when set.
type PathOverrides struct {
	HomeDir     string
	ProjectRoot string
	DataDir     string
	LogDir      string
	ResultsDir  string
	EnvFile     string
}

// PathConfig is the resolved directory layout for one process.
type PathConfig struct {
	Mode        Mode
	ProjectRoot string
	DataDir     string
	LogDir      string
	ResultsDir  string
	EnvFile     string
}

// ResolvePaths computes the directory layout for mode. It performs no I/O.
func ResolvePaths(mode Mode, overrides PathOverrides) PathConfig {
	var resolved PathConfig
	switch mode {
	case ModeDevelopment:
		root := strings.TrimSpace(overrides.ProjectRoot)
		if root == "" {
			root = "."
		}
		resolved = PathConfig{
			Mode:        ModeDevelopment,
			ProjectRoot: root,
			DataDir:     filepath.Join(root, "data"),
			LogDir:      filepath.Join(root, "logs"),
			ResultsDir:  filepath.Join(root, "results"),
			EnvFile:     filepath.Join(root, ".env"),
		}
	default:
		home := strings.TrimSpace(overrides.HomeDir)
		if home == "" {
			home = "~"
		}
		dataDir := filepath.Join(home, ".local", "share", "silkstaff")
		resolved = PathConfig{
			Mode:        ModeInstalled,
			ProjectRoot: strings.TrimSpace(overrides.ProjectRoot),
			DataDir:     dataDir,
			LogDir:      filepath.Join(dataDir, "logs"),
			ResultsDir:  filepath.Join(dataDir, "results"),
			EnvFile:     filepath.Join(home, ".config", "silkstaff", ".env"),
		}
	}

	if v := strings.TrimSpace(overrides.DataDir); v != "" {
		resolved.DataDir = v
	}
	if v := strings.TrimSpace(overrides.LogDir); v != "" {
		resolved.LogDir = v
	}
	if v := strings.TrimSpace(overrides.ResultsDir); v != "" {
		resolved.ResultsDir = v
	}
	if v := strings.TrimSpace(overrides.EnvFile); v != "" {
		resolved.EnvFile = v
	}
	return resolved
}

// SavedPaths mirrors the paths.json document the desktop front end writes into
// the data directory.
type SavedPaths struct {
	ExcelPath     string `json:"excel_file_path"`
	DirectoryPath string `json:"directory_path"`
}

const savedPathsFile = "paths.json"

// ReadSavedPaths loads paths.json from dataDir. The boolean reports whether the
// file existed.
func ReadSavedPaths(dataDir string) (SavedPaths, bool, error) {
	var saved SavedPaths
	data, err := os.ReadFile(filepath.Join(dataDir, savedPathsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return saved, false, nil
		}
		return saved, false, fmt.Errorf("read saved paths: %w", err)
	}
	if err := json.Unmarshal(data, &saved); err != nil {
		return saved, true, fmt.Errorf("parse saved paths: %w", err)
	}
	saved.ExcelPath = strings.TrimSpace(saved.ExcelPath)
	saved.DirectoryPath = strings.TrimSpace(saved.DirectoryPath)
	return saved, true, nil
}

// WriteSavedPaths stores the paths used by the last successful setup.
func WriteSavedPaths(dataDir string, saved SavedPaths) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return fmt.Errorf("encode saved paths: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, savedPathsFile), data, 0o644); err != nil {
		return fmt.Errorf("write saved paths: %w", err)
	}
	return nil
}
