package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is jdbasic's optional on-disk settings file (§2 AMBIENT STACK:
// Configuration), grounded on the teacher's internal/ext/config.go (a
// yaml.v3-backed struct with a FindConfig/LoadConfig pair) but trimmed to
// jdbasic's much smaller needs: debugger defaults and REPL behavior.
type Settings struct {
	DebugPort        int      `yaml:"debug_port"`
	BreakpointsOnLoad []string `yaml:"breakpoints_on_load"`
	NoPause          bool     `yaml:"no_pause"`
}

func defaultSettings() *Settings {
	return &Settings{DebugPort: DefaultDebugPort}
}

// LoadSettings reads jdbasic.yaml from path.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseSettings(data, path)
}

// ParseSettings parses jdbasic.yaml content from bytes; path is used only
// for error messages.
func ParseSettings(data []byte, path string) (*Settings, error) {
	cfg := defaultSettings()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.DebugPort == 0 {
		cfg.DebugPort = DefaultDebugPort
	}
	return cfg, nil
}

// FindSettings searches for jdbasic.yaml starting from dir and walking up
// to parent directories, the same way the teacher's FindConfig locates
// funxy.yaml. Returns "" with a nil error if no file is found.
func FindSettings(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		for _, name := range []string{"jdbasic.yaml", "jdbasic.yml"} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadSettingsOrDefault finds and loads jdbasic.yaml starting from dir,
// falling back to defaults if none exists.
func LoadSettingsOrDefault(dir string) (*Settings, error) {
	path, err := FindSettings(dir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return defaultSettings(), nil
	}
	return LoadSettings(path)
}
