package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/subosito/gotenv"
)

// envSource resolves variables from the process environment first and the
// configured env file second. The env file never mutates the process environment.
type envSource struct {
	file gotenv.Env
}

func loadEnvSource(path string) (envSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return envSource{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return envSource{}, nil
		}
		return envSource{}, fmt.Errorf("stat env file: %w", err)
	}
	values, err := gotenv.Read(path)
	if err != nil {
		return envSource{}, fmt.Errorf("read env file %s: %w", path, err)
	}
	return envSource{file: values}, nil
}

func (e envSource) lookup(key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), true
	}
	if value, ok := e.file[key]; ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), true
	}
	return "", false
}

// fill assigns the first non-empty variable among keys to target when target is blank.
func (e envSource) fill(target *string, keys ...string) {
	if strings.TrimSpace(*target) != "" {
		*target = strings.TrimSpace(*target)
		return
	}
	for _, key := range keys {
		if value, ok := e.lookup(key); ok {
			*target = value
			return
		}
	}
}
