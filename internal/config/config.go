package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "pcapcat.yaml"

// Config is the resolved runtime configuration.
type Config struct {
	PcapDir        string
	IndexFile      string
	ListenAddr     string
	TsharkPath     string
	Workers        int
	ExtractTimeout time.Duration
	LockTimeout    time.Duration
	CorsOrigins    []string
	LogLevel       string
	ServiceName    string
}

// fileConfig mirrors the on-disk layout of pcapcat.yaml / pcapcat.toml.
type fileConfig struct {
	PcapDir        string   `yaml:"pcap_dir" toml:"pcap_dir"`
	IndexFile      string   `yaml:"index_file" toml:"index_file"`
	ListenAddr     string   `yaml:"listen_addr" toml:"listen_addr"`
	TsharkPath     string   `yaml:"tshark_path" toml:"tshark_path"`
	Workers        int      `yaml:"workers" toml:"workers"`
	ExtractTimeout string   `yaml:"extract_timeout" toml:"extract_timeout"`
	LockTimeout    string   `yaml:"lock_timeout" toml:"lock_timeout"`
	CorsOrigins    []string `yaml:"cors_origins,omitempty" toml:"cors_origins"`
	LogLevel       string   `yaml:"log_level" toml:"log_level"`
	ServiceName    string   `yaml:"service_name" toml:"service_name"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		PcapDir:        "pcaps",
		IndexFile:      "pcap_index.json",
		ListenAddr:     ":8000",
		TsharkPath:     "tshark",
		Workers:        1,
		ExtractTimeout: 2 * time.Minute,
		LockTimeout:    30 * time.Second,
		CorsOrigins:    []string{},
		LogLevel:       "info",
		ServiceName:    "pcapcat",
	}
}

func (c *Config) toFile() fileConfig {
	return fileConfig{
		PcapDir:        c.PcapDir,
		IndexFile:      c.IndexFile,
		ListenAddr:     c.ListenAddr,
		TsharkPath:     c.TsharkPath,
		Workers:        c.Workers,
		ExtractTimeout: c.ExtractTimeout.String(),
		LockTimeout:    c.LockTimeout.String(),
		CorsOrigins:    c.CorsOrigins,
		LogLevel:       c.LogLevel,
		ServiceName:    c.ServiceName,
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// Load reads path (YAML, or TOML when the extension is .toml), applies
// PCAPCAT_* overrides from the environment and the sibling .env file, and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	fc := DefaultConfig().toFile()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &fc); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	dotenv, err := LoadDotEnv(DotEnvPath(path))
	if err != nil {
		return nil, err
	}
	if err := applyEnv(&fc, dotenv); err != nil {
		return nil, err
	}

	cfg, err := fromFile(fc)
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(path string, data []byte, fc *fileConfig) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		meta, err := toml.Decode(string(data), fc)
		if err != nil {
			return fmt.Errorf("invalid TOML in %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q in %s", undecoded[0].String(), path)
		}
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return nil
}

func encode(path string, fc fileConfig) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(fc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(fc)
}

func fromFile(fc fileConfig) (*Config, error) {
	extract, err := parseDuration("extract_timeout", fc.ExtractTimeout)
	if err != nil {
		return nil, err
	}
	lock, err := parseDuration("lock_timeout", fc.LockTimeout)
	if err != nil {
		return nil, err
	}
	pcapDir, err := ExpandPath(strings.TrimSpace(fc.PcapDir))
	if err != nil {
		return nil, err
	}
	indexFile, err := ExpandPath(strings.TrimSpace(fc.IndexFile))
	if err != nil {
		return nil, err
	}
	tshark, err := ExpandPath(strings.TrimSpace(fc.TsharkPath))
	if err != nil {
		return nil, err
	}
	return &Config{
		PcapDir:        pcapDir,
		IndexFile:      indexFile,
		ListenAddr:     strings.TrimSpace(fc.ListenAddr),
		TsharkPath:     tshark,
		Workers:        fc.Workers,
		ExtractTimeout: extract,
		LockTimeout:    lock,
		CorsOrigins:    normalizeList(fc.CorsOrigins),
		LogLevel:       strings.TrimSpace(fc.LogLevel),
		ServiceName:    strings.TrimSpace(fc.ServiceName),
	}, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Validate rejects configurations the catalog cannot run with.
func (c *Config) Validate() error {
	if c.PcapDir == "" {
		return fmt.Errorf("pcap_dir is required")
	}
	if c.IndexFile == "" {
		return fmt.Errorf("index_file is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.TsharkPath == "" {
		return fmt.Errorf("tshark_path is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ExtractTimeout < 0 || c.LockTimeout < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Save writes cfg to path, as TOML when path ends in .toml and as YAML
// otherwise, so Load reads it back with the same decoder.
func Save(path string, cfg *Config) error {
	data, err := encode(path, cfg.toFile())
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
