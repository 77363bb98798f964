package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEvergreen()
	c.normalizeOverdrive()
	c.normalizeMetadata()
	c.normalizeHTTP()
	c.normalizeReconcile()
	c.normalizeAlerts()
	c.normalizeSMTP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEvergreen() {
	c.Evergreen.BaseURL = strings.TrimRight(strings.TrimSpace(c.Evergreen.BaseURL), "/")
	if c.Evergreen.BaseURL == "" {
		c.Evergreen.BaseURL = defaultEvergreenBaseURL
	}
	c.Evergreen.OrgUnit = strings.TrimSpace(c.Evergreen.OrgUnit)
	if c.Evergreen.OrgUnit == "" {
		c.Evergreen.OrgUnit = defaultEvergreenOrgUnit
	}
	c.Evergreen.Format = strings.TrimSpace(c.Evergreen.Format)
	if c.Evergreen.Format == "" {
		c.Evergreen.Format = defaultEvergreenFormat
	}
	c.Evergreen.Includes = strings.TrimSpace(c.Evergreen.Includes)
	if c.Evergreen.Includes == "" {
		c.Evergreen.Includes = defaultEvergreenIncludes
	}
}

func (c *Config) normalizeOverdrive() {
	c.Overdrive.ClientKey = strings.TrimSpace(c.Overdrive.ClientKey)
	if c.Overdrive.ClientKey == "" {
		if value, ok := os.LookupEnv("OVERDRIVE_CLIENT_KEY"); ok {
			c.Overdrive.ClientKey = strings.TrimSpace(value)
		}
	}
	c.Overdrive.ClientSecret = strings.TrimSpace(c.Overdrive.ClientSecret)
	if c.Overdrive.ClientSecret == "" {
		if value, ok := os.LookupEnv("OVERDRIVE_CLIENT_SECRET"); ok {
			c.Overdrive.ClientSecret = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.Overdrive.OAuthURL) == "" {
		c.Overdrive.OAuthURL = defaultOverdriveOAuthURL
	}
	c.Overdrive.APIURL = strings.TrimRight(strings.TrimSpace(c.Overdrive.APIURL), "/")
	if c.Overdrive.APIURL == "" {
		c.Overdrive.APIURL = defaultOverdriveAPIURL
	}
	libraries := make(map[string]string, len(c.Overdrive.Libraries))
	for key, id := range c.Overdrive.Libraries {
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		libraries[key] = strings.TrimSpace(id)
	}
	c.Overdrive.Libraries = libraries
}

func (c *Config) normalizeMetadata() {
	c.GoodReads.APIKey = strings.TrimSpace(c.GoodReads.APIKey)
	if c.GoodReads.APIKey == "" {
		if value, ok := os.LookupEnv("GOODREADS_API_KEY"); ok {
			c.GoodReads.APIKey = strings.TrimSpace(value)
		}
	}
	c.GoodReads.BaseURL = strings.TrimRight(strings.TrimSpace(c.GoodReads.BaseURL), "/")
	if c.GoodReads.BaseURL == "" {
		c.GoodReads.BaseURL = defaultGoodReadsBaseURL
	}

	c.OMDb.APIKey = strings.TrimSpace(c.OMDb.APIKey)
	if c.OMDb.APIKey == "" {
		if value, ok := os.LookupEnv("OMDB_API_KEY"); ok {
			c.OMDb.APIKey = strings.TrimSpace(value)
		}
	}
	c.OMDb.BaseURL = strings.TrimRight(strings.TrimSpace(c.OMDb.BaseURL), "/")
	if c.OMDb.BaseURL == "" {
		c.OMDb.BaseURL = defaultOMDbBaseURL
	}

	c.OpenLibrary.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenLibrary.BaseURL), "/")
	if c.OpenLibrary.BaseURL == "" {
		c.OpenLibrary.BaseURL = defaultOpenLibraryBaseURL
	}
}

func (c *Config) normalizeHTTP() {
	if c.HTTP.TimeoutSeconds <= 0 {
		c.HTTP.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	if c.HTTP.Burst <= 0 {
		c.HTTP.Burst = defaultBurst
	}
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeReconcile() {
	if c.Reconcile.ChunkSize <= 0 {
		c.Reconcile.ChunkSize = defaultChunkSize
	}
}

func (c *Config) normalizeAlerts() {
	c.Alerts.From = strings.TrimSpace(c.Alerts.From)
	if c.Alerts.From == "" {
		c.Alerts.From = defaultAlertsFrom
	}
	c.Alerts.ManagerPositions = trimList(c.Alerts.ManagerPositions)
	c.Alerts.SupervisorPositions = trimList(c.Alerts.SupervisorPositions)
}

func (c *Config) normalizeSMTP() {
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)
	c.SMTP.Username = strings.TrimSpace(c.SMTP.Username)
	if c.SMTP.Password == "" {
		if value, ok := os.LookupEnv("SMTP_PASSWORD"); ok {
			c.SMTP.Password = value
		}
	}
	if c.SMTP.Port <= 0 {
		c.SMTP.Port = defaultSMTPPort
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
