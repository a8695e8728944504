package config

import "time"

// DomainConfig holds all configurable business rules and constraints
// for the dashboard layout engine
type DomainConfig struct {
	// Layout constraints
	MaxSettingsKeys    int
	MaxPlacementWidth  int
	MaxPlacementHeight int

	// Autosave behaviour
	AutosaveInterval time.Duration
	SessionIdleTTL   time.Duration

	// Validation settings
	AllowUnknownWidgetTypesOnLoad bool

	// Feature flags
	EnableEventPublishing bool
	EnableRenderCache     bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Layout constraints
		MaxSettingsKeys:    64,
		MaxPlacementWidth:  12,
		MaxPlacementHeight: 24,

		// Autosave behaviour
		AutosaveInterval: 5 * time.Second,
		SessionIdleTTL:   30 * time.Minute,

		// Stale saved layouts must still hydrate; only addWidget rejects
		// unregistered types.
		AllowUnknownWidgetTypesOnLoad: true,

		// Feature flags
		EnableEventPublishing: true,
		EnableRenderCache:     true,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Longer idle window: real users park dashboard tabs
	config.SessionIdleTTL = 2 * time.Hour

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// Short timings make autosave behaviour observable while developing
	config.AutosaveInterval = 2 * time.Second
	config.SessionIdleTTL = 5 * time.Minute
	config.EnableEventPublishing = false

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	return nil
}
