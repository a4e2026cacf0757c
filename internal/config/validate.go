package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"silkstaff/internal/services"
)

// Validate ensures the configuration is usable. Remote credentials are checked
// separately by ValidateAPI so offline commands keep working without them.
func (c *Config) Validate() error {
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateReleaseUpload(); err != nil {
		return err
	}
	if err := c.validateShipment(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("api.requests_per_second must be >= 0")
	}
	return nil
}

// ValidateAPI reports missing or malformed remote API settings. Commands that
// talk to the table API call it during setup.
func (c *Config) ValidateAPI() error {
	var missing []string
	if c.API.URL == "" {
		missing = append(missing, "api.url (EMD_API)")
	}
	if strings.TrimSpace(c.API.Space) == "" {
		missing = append(missing, "api.space (EMD_SPACE)")
	}
	if strings.TrimSpace(c.API.Token) == "" {
		missing = append(missing, "api.token (EMD_TOKEN)")
	}
	if strings.TrimSpace(c.API.UserID) == "" {
		missing = append(missing, "api.user_id (EMD_USER_ID)")
	}
	if len(missing) > 0 {
		return services.Wrap(
			services.ErrConfiguration,
			"config",
			"validate api",
			"missing required settings: "+strings.Join(missing, ", "),
			nil,
		)
	}
	parsed, err := url.Parse(c.API.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return services.Wrap(
			services.ErrConfiguration,
			"config",
			"validate api",
			fmt.Sprintf("api.url %q is not an absolute URL", c.API.URL),
			err,
		)
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.ChunkSizeMiB <= 0 {
		return errors.New("upload.chunk_size_mib must be positive")
	}
	for _, delay := range c.Upload.RetryDelays {
		if delay < 0 {
			return errors.New("upload.retry_delays must not contain negative values")
		}
	}
	return nil
}

func (c *Config) validateReleaseUpload() error {
	if c.ReleaseUpload.IntervalMillis < 0 {
		return errors.New("release_upload.interval_ms must be >= 0")
	}
	if c.ReleaseUpload.StartDelayDays < 0 {
		return errors.New("release_upload.start_delay_days must be >= 0")
	}
	return nil
}

func (c *Config) validateShipment() error {
	s := c.Shipment
	if s.PageLimit <= 0 {
		return errors.New("shipment.page_limit must be positive")
	}
	if s.FetchIntervalMillis < 0 || s.UpdateIntervalMillis < 0 || s.FlagDelayMillis < 0 {
		return errors.New("shipment intervals must be >= 0")
	}
	if s.SourceStatus == s.TargetStatus {
		return fmt.Errorf("shipment.source_status and shipment.target_status must differ (both %q)", s.SourceStatus)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0 (0 disables pruning)")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
