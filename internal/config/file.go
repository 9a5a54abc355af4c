package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dalibo/hl/internal/hlerr"
)

// LoadFile reads a config file, dispatching on its extension to TOML
// (preferred), YAML, or JSON, all sharing the same schema (spec.md §6).
func LoadFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, hlerr.New(hlerr.KindConfig, fmt.Errorf("reading config %s: %w", path, err))
	}

	var s Settings
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml", "":
		if _, err := toml.Decode(string(data), &s); err != nil {
			return Settings{}, hlerr.New(hlerr.KindConfig, fmt.Errorf("parsing toml config %s: %w", path, err))
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, hlerr.New(hlerr.KindConfig, fmt.Errorf("parsing yaml config %s: %w", path, err))
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return Settings{}, hlerr.New(hlerr.KindConfig, fmt.Errorf("parsing json config %s: %w", path, err))
		}
	default:
		return Settings{}, hlerr.New(hlerr.KindConfig, fmt.Errorf("%s: unrecognized config extension %q", path, ext))
	}
	return s, nil
}

// SystemConfigPath is the well-known system-wide config location.
func SystemConfigPath() string { return "/etc/hl/config.toml" }

// UserConfigPath returns the per-user config path under the OS config
// directory, or "" if it cannot be determined.
func UserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hl", "config.toml")
}

// LoadLayered builds the effective Settings by applying, in increasing
// priority: embedded defaults, the system config, the user config, and
// any explicit --config paths (later entries win). A missing optional
// file is silently skipped; explicit paths that don't exist are errors.
func LoadLayered(explicitPaths []string) (Settings, error) {
	s := Default()

	if path := SystemConfigPath(); fileExists(path) {
		sys, err := LoadFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = Merge(s, sys)
	}
	if path := UserConfigPath(); path != "" && fileExists(path) {
		user, err := LoadFile(path)
		if err != nil {
			return Settings{}, err
		}
		s = Merge(s, user)
	}

	for _, p := range explicitPaths {
		if p == "-" {
			continue // "-" disables implicit configs; handled by the caller before this point
		}
		layer, err := LoadFile(p)
		if err != nil {
			return Settings{}, err
		}
		s = Merge(s, layer)
	}
	return s, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
