package goIdentity

import (
	"errors"
	"net/url"
	"strings"
)

// Config holds every tunable of a [Manager]. Obtain a populated value with
// [DefaultConfig] or [LoadConfig] and adjust fields before passing it to
// [Builder.WithConfig].
type Config struct {
	Audit         AuditConfig         `toml:"audit"`
	Metrics       MetricsConfig       `toml:"metrics"`
	Enrollment    EnrollmentConfig    `toml:"enrollment"`
	PasswordReset PasswordResetConfig `toml:"password_reset"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `toml:"enabled"`
	BufferSize int  `toml:"buffer_size"`
	DropIfFull bool `toml:"drop_if_full"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig toggles the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `toml:"enabled"`
	EnableLatencyHistograms bool `toml:"latency_histograms"`
}

/*
====================================
ENROLLMENT CONFIG
====================================
*/

// EnrollmentConfig shapes TOTP enrollment requests.
type EnrollmentConfig struct {
	// FriendlyNamePrefix is joined with a nanosecond timestamp so every
	// enrollment attempt carries a unique factor name.
	FriendlyNamePrefix string `toml:"friendly_name_prefix"`
	// DisableRetries is how many extra unenroll attempts DisableAllTOTP makes
	// per factor.
	DisableRetries int `toml:"disable_retries"`
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig configures the recovery e-mail flow.
type PasswordResetConfig struct {
	// RedirectURL is where the recovery link lands. Empty leaves the choice to
	// the backend.
	RedirectURL string `toml:"redirect_url"`
}

// DefaultConfig returns the configuration a zero-option Builder uses.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Enrollment: EnrollmentConfig{
			FriendlyNamePrefix: "totp",
			DisableRetries:     1,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	prefix := strings.TrimSpace(c.Enrollment.FriendlyNamePrefix)
	if prefix == "" {
		return errors.New("Enrollment FriendlyNamePrefix must not be empty")
	}
	if strings.ContainsAny(prefix, " \t\r\n") {
		return errors.New("Enrollment FriendlyNamePrefix must not contain whitespace")
	}
	if c.Enrollment.DisableRetries < 0 || c.Enrollment.DisableRetries > 5 {
		return errors.New("Enrollment DisableRetries must be between 0 and 5")
	}

	if c.PasswordReset.RedirectURL != "" {
		u, err := url.Parse(c.PasswordReset.RedirectURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("PasswordReset RedirectURL must be an absolute URL")
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return errors.New("PasswordReset RedirectURL must use http or https")
		}
	}
	return nil
}
