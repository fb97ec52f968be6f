package config

import (
	"gopkg.in/yaml.v3"
)

// displayConfig mirrors Config with durations as strings, the way they are
// written in config.yaml.
type displayConfig struct {
	Supabase struct {
		URL     string `yaml:"url"`
		AnonKey string `yaml:"anon_key"`
		Timeout string `yaml:"timeout"`
	} `yaml:"supabase"`
	Server struct {
		Listen        string `yaml:"listen"`
		SessionKey    string `yaml:"session_key"`
		SecureCookies bool   `yaml:"secure_cookies"`
		ViewIdle      string `yaml:"view_idle"`
	} `yaml:"server"`
	Tasks TasksConfig `yaml:"tasks"`
	Log   LogConfig   `yaml:"log"`
}

// YAML renders the configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	r := c.Redacted()
	var d displayConfig
	d.Supabase.URL = r.Supabase.URL
	d.Supabase.AnonKey = r.Supabase.AnonKey
	d.Supabase.Timeout = r.Supabase.Timeout.String()
	d.Server.Listen = r.Server.Listen
	d.Server.SessionKey = r.Server.SessionKey
	d.Server.SecureCookies = r.Server.SecureCookies
	d.Server.ViewIdle = r.Server.ViewIdle.String()
	d.Tasks = r.Tasks
	d.Log = r.Log
	return yaml.Marshal(d)
}
