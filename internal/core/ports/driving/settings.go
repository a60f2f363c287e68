package driving

import "github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves the current settings from the config file and environment.
	Get() (domain.Settings, error)

	// Set validates and persists a single setting by key.
	Set(key, value string) error

	// Keys lists the supported setting keys.
	Keys() []string

	// Lookup returns the effective value of a key as text.
	Lookup(key string) (string, error)

	// Path returns the configuration file path.
	Path() string
}
