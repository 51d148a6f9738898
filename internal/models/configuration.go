package models

import "time"

// ConfigurationType defines supported types for configuration values.
type ConfigurationType string

const (
	ConfigurationTypeInteger ConfigurationType = "INTEGER"
	ConfigurationTypeBoolean ConfigurationType = "BOOLEAN"
)

// Configuration keys understood by the settings service.
const (
	ConfigKeyFirstDayOfWeek = "first_day_of_week"
)

// Configuration represents a persisted configuration entry.
type Configuration struct {
	Key         string            `db:"key" json:"key"`
	Value       string            `db:"value" json:"value"`
	Type        ConfigurationType `db:"type" json:"type"`
	Description *string           `db:"description" json:"description,omitempty"`
	UpdatedBy   *string           `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updated_at"`
}

// SystemSettings is the typed view of the configuration entries.
type SystemSettings struct {
	FirstDayOfWeek int        `json:"firstDayOfWeek"`
	UpdatedBy      *string    `json:"updatedBy,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}
