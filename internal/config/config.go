// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for the env-var prefix and the
	// config file basename.
	AppName = "venvman"

	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "venvman"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// Settings is the resolved, immutable configuration for one invocation.
type Settings struct {
	// VenvDir is the virtual environment directory, relative to the project
	// directory.
	VenvDir string `mapstructure:"venv_dir"`

	// ManifestFile is the dependency manifest, relative to the project
	// directory.
	ManifestFile string `mapstructure:"manifest_file"`

	// Interpreter is the base Python executable used to create new virtual
	// environments. Inside an existing environment the venv's own
	// interpreter is always used instead.
	Interpreter string `mapstructure:"interpreter"`

	// Bookkeeping lists packages that belong to the tooling itself and are
	// hidden from list/update output.
	Bookkeeping []string `mapstructure:"bookkeeping"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		VenvDir:      "venv",
		ManifestFile: "requirements.txt",
		Interpreter:  "python3",
		Bookkeeping:  []string{"pip", "setuptools", "wheel"},
	}
}

// IsBookkeeping reports whether name is one of the tool's own packages.
func (s Settings) IsBookkeeping(name string) bool {
	for _, b := range s.Bookkeeping {
		if strings.EqualFold(name, b) {
			return true
		}
	}
	return false
}

// Load resolves settings from defaults, then an optional config file in the
// given project directory (and the explicit path override, if any), then
// VENVMAN_* environment variables. A missing config file is not an error.
func Load(projectDir, cfgFile string) (Settings, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("venv_dir", def.VenvDir)
	v.SetDefault("manifest_file", def.ManifestFile)
	v.SetDefault("interpreter", def.Interpreter)
	v.SetDefault("bookkeeping", def.Bookkeeping)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if projectDir == "" {
			projectDir = "."
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(projectDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if s.VenvDir == "" || s.ManifestFile == "" || s.Interpreter == "" {
		return Settings{}, fmt.Errorf("invalid config: venv_dir, manifest_file, and interpreter must be non-empty")
	}

	return s, nil
}
