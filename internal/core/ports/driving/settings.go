package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves settings from defaults, the config file and the environment.
	Get() (*domain.AppSettings, error)

	// Set validates and persists a single dot-notation key.
	Set(key, value string) error

	// Validate checks that settings are usable for answering questions.
	Validate(settings *domain.AppSettings) error
}
