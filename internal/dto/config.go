package dto

import "time"

type Config struct {
	Username      string        `yaml:"username,omitempty"`
	Password      string        `yaml:"-"`
	Domain        string        `yaml:"domain,omitempty"`
	// Endpoint replaces https://<Domain> for API calls. Share links always use Domain.
	Endpoint      string        `yaml:"endpoint,omitempty"`
	SharePassword string        `yaml:"-"`
	Timeout       time.Duration `yaml:"timeout,omitempty"`
	Retries       int           `yaml:"retries,omitempty"`
	Verify        bool          `yaml:"verify,omitempty"`
}
