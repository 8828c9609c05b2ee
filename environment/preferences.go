package environment

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	lib "github.com/din14970/hyperspy/library"
)

// GeneralPreferences holds toolkit-wide settings.
type GeneralPreferences struct {
	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`
	LogDevelopment bool   `yaml:"log_development" env:"LOG_DEVELOPMENT"`
}

// MVAPreferences holds defaults for the multivariate-analysis routines.
type MVAPreferences struct {
	MaxIterations int     `yaml:"max_iterations" env:"MVA_MAX_ITERATIONS"`
	Tolerance     float64 `yaml:"tolerance" env:"MVA_TOLERANCE"`
}

// Preferences is the persisted toolkit configuration. Values come from the
// YAML preferences file and can be overridden per-key from the environment.
type Preferences struct {
	General GeneralPreferences `yaml:"general"`
	MVA     MVAPreferences     `yaml:"mva"`
}

// DefaultPreferences returns the built-in configuration.
func DefaultPreferences() Preferences {
	return Preferences{
		General: GeneralPreferences{
			LogLevel:       "info",
			LogDevelopment: true,
		},
		MVA: MVAPreferences{
			MaxIterations: 256,
			Tolerance:     1.4901e-07,
		},
	}
}

// LoadPreferences reads the preferences file at path and applies environment
// overrides on top. A missing file is not an error: defaults plus overrides
// are returned.
func LoadPreferences(path string, options ...CreateENVOptions) (Preferences, error) {
	prefs := DefaultPreferences()
	raw, err := os.ReadFile(path)
	if err == nil {
		if err = yaml.Unmarshal(raw, &prefs); err != nil {
			return Preferences{}, errors.Wrap(err, lib.StringTags("load preferences", "unmarshal"))
		}
	} else if !os.IsNotExist(err) {
		return Preferences{}, errors.Wrap(err, lib.StringTags("load preferences", "read file"))
	}
	env, err := CreateENV(options...)
	if err != nil {
		return Preferences{}, errors.Wrap(err, lib.StringTags("load preferences", "create env"))
	}
	if err = env.Parse(&prefs); err != nil {
		return Preferences{}, errors.Wrap(err, lib.StringTags("load preferences", "parse env"))
	}
	return prefs, nil
}

// SavePreferences writes prefs to the preferences file at path.
func SavePreferences(path string, prefs Preferences) error {
	raw, err := yaml.Marshal(prefs)
	if err != nil {
		return errors.Wrap(err, lib.StringTags("save preferences", "marshal"))
	}
	if err = os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrap(err, lib.StringTags("save preferences", "write file"))
	}
	return nil
}
