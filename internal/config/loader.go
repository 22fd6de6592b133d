package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(homeDir, ".config", "tilde", "config.yaml"), nil
}

// Load reads the configuration from the standard location. A missing
// file yields the defaults.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads and validates the configuration at path. Absent
// keys keep their default values; unknown keys are an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file: run with defaults.
	case err != nil:
		return nil, errors.Wrapf(err, "%s: failed to read", path)
	default:
		// Configured sections replace their defaults wholesale, so a
		// partial file keeps the default layouts or groups it omits.
		overlay := struct {
			ModKey      *string         `yaml:"mod_key"`
			LogLevel    *string         `yaml:"log_level"`
			Keybindings *[]Keybinding   `yaml:"keybindings"`
			Layouts     *[]LayoutConfig `yaml:"layouts"`
			Groups      *[]GroupConfig  `yaml:"groups"`
		}{}
		if err := decodeStrictYAML(data, &overlay); err != nil {
			return nil, errors.Wrapf(err, "%s: failed to parse yaml", path)
		}
		if overlay.ModKey != nil {
			cfg.ModKey = *overlay.ModKey
		}
		if overlay.LogLevel != nil {
			cfg.LogLevel = *overlay.LogLevel
		}
		if overlay.Keybindings != nil {
			cfg.Keybindings = *overlay.Keybindings
		}
		if overlay.Layouts != nil {
			cfg.Layouts = *overlay.Layouts
		}
		if overlay.Groups != nil {
			cfg.Groups = *overlay.Groups
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}
