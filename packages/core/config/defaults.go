package config

import "github.com/abdul-hamid-achik/rqn/packages/http"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         0,
		FollowRedirects: boolPtr(true),
		MaxRedirects:    http.DefaultMaxRedirects,
		ValidateSSL:     boolPtr(false),
		Headers:         nil,
		LogLevel:        "warn",
		NoColor:         boolPtr(false),
		History:         "",
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.Timeout == defaults.Timeout &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.MaxRedirects == defaults.MaxRedirects &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		len(c.Headers) == 0 &&
		c.LogLevel == defaults.LogLevel &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.History == defaults.History
}
