package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvPcapDir, EnvIndexFile, EnvListenAddr, EnvTsharkPath, EnvWorkers, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "pcapcat.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "pcapcat.yaml")
	body := "pcap_dir: /data/captures\n" +
		"index_file: /var/lib/pcapcat/index.json\n" +
		"workers: 4\n" +
		"extract_timeout: 45s\n" +
		"cors_origins:\n  - http://localhost:3000\n  - ' '\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PcapDir != "/data/captures" || cfg.IndexFile != "/var/lib/pcapcat/index.json" {
		t.Fatalf("unexpected paths: %+v", cfg)
	}
	if cfg.Workers != 4 || cfg.ExtractTimeout != 45*time.Second {
		t.Fatalf("unexpected workers/timeout: %+v", cfg)
	}
	if cfg.ListenAddr != ":8000" || cfg.LockTimeout != 30*time.Second {
		t.Fatalf("defaults not kept for absent keys: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CorsOrigins, []string{"http://localhost:3000"}) {
		t.Fatalf("unexpected cors origins: %v", cfg.CorsOrigins)
	}
}

func TestLoad_YAMLRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "pcapcat.yaml")
	if err := os.WriteFile(p, []byte("pcap_directory: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoad_TOML(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "pcapcat.toml")
	body := "pcap_dir = \"captures\"\nlisten_addr = \"127.0.0.1:9000\"\ntshark_path = \"/opt/wireshark/tshark\"\nlock_timeout = \"5s\"\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PcapDir != "captures" || cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.TsharkPath != "/opt/wireshark/tshark" || cfg.LockTimeout != 5*time.Second {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.IndexFile != "pcap_index.json" {
		t.Fatalf("default index file lost: %q", cfg.IndexFile)
	}
}

func TestLoad_TOMLRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	p := filepath.Join(t.TempDir(), "pcapcat.toml")
	if err := os.WriteFile(p, []byte("bogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(p)
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoad_EnvAndDotEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "pcapcat.yaml")
	if err := os.WriteFile(p, []byte("pcap_dir: from-file\nworkers: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PCAPCAT_PCAP_DIR=from-dotenv\nPCAPCAT_WORKERS=3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvWorkers, "8")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PcapDir != "from-dotenv" {
		t.Fatalf("expected dotenv to override file, got %q", cfg.PcapDir)
	}
	if cfg.Workers != 8 {
		t.Fatalf("expected env to override dotenv, got %d", cfg.Workers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"workers":  "workers: 0\n",
		"duration": "extract_timeout: soon\n",
		"dir":      "pcap_dir: ''\n",
	}
	for name, body := range cases {
		p := filepath.Join(t.TempDir(), "pcapcat.yaml")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	for _, name := range []string{"pcapcat.yaml", "pcapcat.toml"} {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			p := filepath.Join(t.TempDir(), name)
			want := DefaultConfig()
			want.PcapDir = "/srv/pcaps"
			want.Workers = 3
			want.CorsOrigins = []string{"http://localhost:3000"}
			if err := Save(p, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := Load(p)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, want)
			}
		})
	}
}

func TestSave_TOMLExtensionWritesTOML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "pcapcat.toml")
	if err := Save(p, DefaultConfig()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `pcap_dir = "pcaps"`) {
		t.Fatalf("expected TOML assignment, got:\n%s", data)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/pcaps")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "pcaps") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got, _ := ExpandPath("/abs"); got != "/abs" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
