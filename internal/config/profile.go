package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is the optional YAML file read by portalctl.
//
//	base_url: https://portal.example.com
//	session_file: ~/.config/ticket-portal/identity.json
//	seal_key: 32-byte-secret
//	log_level: warn
type Profile struct {
	BaseURL        string `yaml:"base_url"`
	SessionFile    string `yaml:"session_file"`
	SealKey        string `yaml:"seal_key"`
	LogLevel       string `yaml:"log_level"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DefaultSessionFile is where the CLI keeps its identity record.
func DefaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".ticket-portal-identity.json"
	}
	return filepath.Join(dir, "ticket-portal", "identity.json")
}

// DefaultProfilePath returns the profile location used when --config is empty.
func DefaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "ticket-portal", "profile.yaml")
}

// LoadProfile reads a profile. A missing file yields an empty profile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	p.SessionFile = expandHome(p.SessionFile)
	return &p, nil
}

// Apply overlays non-empty profile values onto cfg.
func (p *Profile) Apply(cfg *Config) {
	if p == nil || cfg == nil {
		return
	}
	if p.BaseURL != "" {
		cfg.API.BaseURL = p.BaseURL
	}
	if p.TimeoutSeconds > 0 {
		cfg.API.TimeoutSeconds = p.TimeoutSeconds
	}
	if p.SessionFile != "" {
		cfg.Session.FilePath = p.SessionFile
	}
	if p.SealKey != "" {
		cfg.Session.SealKey = p.SealKey
	}
	if p.LogLevel != "" {
		cfg.Logger.Level = p.LogLevel
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
