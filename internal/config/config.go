// Package config manages the gallery CLI configuration and the .gallery
// directory structure. It handles loading, saving, and initializing the
// workspace configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	GalleryDir = ".gallery"
	ConfigFile = "config"
)

// Config represents the gallery CLI configuration
type Config struct {
	ServerURL  string `toml:"server_url"`
	Token      string `toml:"token,omitempty"`       // bearer token for the gallery-server
	GalleryKey string `toml:"gallery_key,omitempty"` // default gallery for commands
	path       string // path to .gallery directory
}

// FindGalleryRoot finds the .gallery directory by walking up from the current
// directory
func FindGalleryRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		galleryPath := filepath.Join(dir, GalleryDir)
		if info, err := os.Stat(galleryPath); err == nil && info.IsDir() {
			return galleryPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a gallery workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .gallery directory
func Load() (*Config, error) {
	galleryPath, err := FindGalleryRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(galleryPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = galleryPath
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Config may hold a bearer token, keep it private
	return os.WriteFile(configPath, data, 0600)
}

// GalleryPath returns the path to the .gallery directory
func (c *Config) GalleryPath() string {
	return c.path
}

// Initialize creates a new .gallery directory with initial configuration
func Initialize(serverURL, galleryKey string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	galleryPath := filepath.Join(cwd, GalleryDir)

	// Check if already initialized
	if _, err := os.Stat(galleryPath); err == nil {
		return nil, fmt.Errorf("gallery workspace already exists")
	}

	if err := os.MkdirAll(galleryPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .gallery directory: %w", err)
	}

	cfg := &Config{
		ServerURL:  serverURL,
		GalleryKey: galleryKey,
		path:       galleryPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(galleryPath)
		return nil, err
	}

	return cfg, nil
}
