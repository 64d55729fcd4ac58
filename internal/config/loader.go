package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	configDir  = ".streamtap"
	configFile = "config.json"

	// EnvPrefix prefixes every environment override, e.g. STREAMTAP_LLM_MODEL.
	EnvPrefix = "STREAMTAP_"
)

// Loader manages reading and writing the config file.
type Loader struct {
	mu       sync.RWMutex
	config   *Config
	filePath string
	environ  map[string]string
}

// NewLoader creates a loader that stores config in ~/.streamtap/config.json.
func NewLoader() (*Loader, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return &Loader{
		filePath: filepath.Join(dir, configFile),
	}, nil
}

// NewFileLoader creates a loader for an explicit path. A .yaml or .yml
// extension selects YAML encoding.
func NewFileLoader(path string) *Loader {
	return &Loader{filePath: path}
}

// Dir returns ~/.streamtap, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, configDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// Load reads the config from disk and applies environment overrides. If the
// file doesn't exist, the defaults are used.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := Defaults()

	data, err := os.ReadFile(l.filePath)
	switch {
	case err == nil:
		if err := l.unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.filePath, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	opts := env.Options{Prefix: EnvPrefix}
	if l.environ != nil {
		opts.Environment = l.environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	l.config = cfg
	return cfg, nil
}

// Save writes the config to disk.
func (l *Loader) Save(cfg *Config) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := l.marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.filePath), 0700); err != nil {
		return err
	}

	l.config = cfg
	return os.WriteFile(l.filePath, data, 0600)
}

// Get returns the currently loaded config (or defaults if not loaded yet).
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.config == nil {
		return Defaults()
	}
	return l.config
}

// FilePath returns the config file path.
func (l *Loader) FilePath() string {
	return l.filePath
}

func (l *Loader) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(l.filePath))
	return ext == ".yaml" || ext == ".yml"
}

func (l *Loader) unmarshal(data []byte, cfg *Config) error {
	if l.isYAML() {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func (l *Loader) marshal(cfg *Config) ([]byte, error) {
	if l.isYAML() {
		return yaml.Marshal(cfg)
	}
	return json.MarshalIndent(cfg, "", "  ")
}
