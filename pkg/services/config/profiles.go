package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// Registry resolves named backend profiles from an ini file:
//
//	[staging]
//	base_url    = https://autofixer.staging:8000/api/v1
//	timeout_ms  = 15000
//	max_retries = 2
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetBackend(ctx context.Context, profile string) (*BackendConfig, error)
	// OverlayBackend returns base with only the keys the profile sets replaced.
	OverlayBackend(ctx context.Context, profile string, base BackendConfig) (*BackendConfig, error)
}

type profileRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &profileRegistry{cfg: cfg}, nil
}

func (pr *profileRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range pr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (pr *profileRegistry) GetBackend(ctx context.Context, profile string) (*BackendConfig, error) {
	return pr.OverlayBackend(ctx, profile, BackendConfig{
		TimeoutMs:      DefaultTimeoutMs,
		RetryBackoffMs: DefaultRetryBackoffMs,
	})
}

func (pr *profileRegistry) OverlayBackend(
	_ context.Context,
	profile string,
	base BackendConfig,
) (*BackendConfig, error) {
	section, err := pr.cfg.GetSection(profile)
	if err != nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("profile %s not found", profile)
	}

	baseURL := section.Key("base_url").String()
	if baseURL == "" {
		return nil, fmt.Errorf("profile %s: base_url is required", profile)
	}

	backend := base
	backend.BaseURL = baseURL
	if section.HasKey("timeout_ms") {
		backend.TimeoutMs = section.Key("timeout_ms").MustInt(base.TimeoutMs)
	}
	if section.HasKey("max_retries") {
		backend.MaxRetries = section.Key("max_retries").MustInt(base.MaxRetries)
	}
	if section.HasKey("retry_backoff_ms") {
		backend.RetryBackoffMs = section.Key("retry_backoff_ms").MustInt(base.RetryBackoffMs)
	}
	return &backend, nil
}

// ApplyProfile overlays the keys set in the named profile onto the backend section of cfg.
// Keys the profile leaves out keep their file, environment or default values; keys it
// sets win over all three.
func ApplyProfile(ctx context.Context, cfg *Config, registry Registry, profile string) error {
	backend, err := registry.OverlayBackend(ctx, profile, cfg.Backend)
	if err != nil {
		return err
	}
	cfg.Backend = *backend
	return cfg.Validate()
}
