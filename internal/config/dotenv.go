package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment overrides, checked in the process environment first and then
// in the .env file next to the config file.
const (
	EnvPcapDir    = "PCAPCAT_PCAP_DIR"
	EnvIndexFile  = "PCAPCAT_INDEX_FILE"
	EnvListenAddr = "PCAPCAT_LISTEN_ADDR"
	EnvTsharkPath = "PCAPCAT_TSHARK_PATH"
	EnvWorkers    = "PCAPCAT_WORKERS"
	EnvLogLevel   = "PCAPCAT_LOG_LEVEL"
)

// DotEnvPath returns the .env file that sits next to configPath.
func DotEnvPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ".env")
}

// LoadDotEnv reads path and returns key/value pairs. A missing file yields an
// empty map.
//
// Parsing rules:
// - Lines starting with '#' are ignored.
// - Empty lines are ignored.
// - Lines must be of form KEY=VALUE.
// - Whitespace around KEY is trimmed.
// - VALUE is taken as-is (no quote parsing).
func LoadDotEnv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot open dotenv file %s: %w", path, err)
	}
	defer f.Close()

	out := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		k := strings.TrimSpace(line[:i])
		v := line[i+1:]
		if k == "" {
			continue
		}
		out[k] = v
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read dotenv file %s: %w", path, err)
	}
	return out, nil
}

// GetConfigValue returns the effective value for key, using process
// environment variables first and falling back to dotenv.
func GetConfigValue(key string, dotenv map[string]string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return dotenv[key]
}

func applyEnv(fc *fileConfig, dotenv map[string]string) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvPcapDir, &fc.PcapDir},
		{EnvIndexFile, &fc.IndexFile},
		{EnvListenAddr, &fc.ListenAddr},
		{EnvTsharkPath, &fc.TsharkPath},
		{EnvLogLevel, &fc.LogLevel},
	}
	for _, s := range strs {
		if v := GetConfigValue(s.key, dotenv); v != "" {
			*s.dst = v
		}
	}
	if v := GetConfigValue(EnvWorkers, dotenv); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvWorkers, err)
		}
		fc.Workers = n
	}
	return nil
}
