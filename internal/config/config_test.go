package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/vango-dev/way/internal/errors"
	"github.com/vango-dev/way/pkg/form"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"WAY_HOST", "WAY_PORT", "WAY_LOG_LEVEL", "WAY_METRICS"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Server.Page != DefaultPage {
		t.Errorf("Server.Page = %q, want %q", cfg.Server.Page, DefaultPage)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
	if cfg.Runtime.ExprCacheSize != DefaultExprCacheSize {
		t.Errorf("Runtime.ExprCacheSize = %d, want %d", cfg.Runtime.ExprCacheSize, DefaultExprCacheSize)
	}
	if cfg.Runtime.MaxFlushRounds != DefaultMaxFlushRounds {
		t.Errorf("Runtime.MaxFlushRounds = %d, want %d", cfg.Runtime.MaxFlushRounds, DefaultMaxFlushRounds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if !errors.HasCode(err, "E141") {
		t.Fatalf("Load on empty dir = %v, want E141", err)
	}

	writeFile(t, tmpDir, ConfigFileName, `{
  "server": {"port": 8080, "host": "0.0.0.0", "page": "app.html"},
  "log": {"level": "debug"},
  "props": {"title": "Demo"}
}
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
	if cfg.PagePath() != filepath.Join(tmpDir, "app.html") {
		t.Errorf("PagePath() = %q", cfg.PagePath())
	}
	if cfg.Props["title"] != "Demo" {
		t.Errorf("Props = %v", cfg.Props)
	}
	// Unset sections keep their defaults.
	if cfg.Runtime.ExprCacheSize != DefaultExprCacheSize {
		t.Errorf("Runtime.ExprCacheSize = %d", cfg.Runtime.ExprCacheSize)
	}
	if lvl, err := cfg.LogLevel(); err != nil || lvl != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, %v", lvl, err)
	}
	if cfg.Path() != filepath.Join(tmpDir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, YAMLConfigFileName, `
server:
  port: 4000
metrics:
  enabled: true
forms:
  signup:
    username: required,minlength=4
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true")
	}

	fields, err := cfg.FormFields("signup")
	if err != nil {
		t.Fatal(err)
	}
	if r := form.Check(fields["username"], "ab"); r.Success {
		t.Error("short username should fail")
	}
	if r := form.Check(fields["username"], "abcd"); !r.Success {
		t.Errorf("valid username failed: %s", r.Message)
	}
}

func TestJSONPreferredOverYAML(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, ConfigFileName, `{"server": {"port": 1111}}`)
	writeFile(t, tmpDir, YAMLConfigFileName, "server:\n  port: 2222\n")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 1111 {
		t.Errorf("Server.Port = %d, want 1111", cfg.Server.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	jsonPath := writeFile(t, tmpDir, "bad.json", `{not json`)
	if _, err := LoadFile(jsonPath); !errors.HasCode(err, "E120") {
		t.Errorf("invalid JSON = %v, want E120", err)
	}

	yamlPath := writeFile(t, tmpDir, "bad.yaml", "server: [")
	if _, err := LoadFile(yamlPath); !errors.HasCode(err, "E120") {
		t.Errorf("invalid YAML = %v, want E120", err)
	}

	if _, err := LoadFile(filepath.Join(tmpDir, "missing.json")); !errors.HasCode(err, "E141") {
		t.Errorf("missing file = %v, want E141", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	path := writeFile(t, tmpDir, ConfigFileName, `{"server": {"port": 8080}}`)

	t.Setenv("WAY_HOST", "0.0.0.0")
	t.Setenv("WAY_PORT", "9090")
	t.Setenv("WAY_LOG_LEVEL", "WARN")
	t.Setenv("WAY_METRICS", "true")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("address = %s, want 0.0.0.0:9090", cfg.Address())
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want warn", cfg.Log.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be true")
	}
}

func TestEnvOverrideInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("WAY_PORT", "http")

	err := New().ApplyEnv()
	if !errors.HasCode(err, "E122") {
		t.Fatalf("ApplyEnv() = %v, want E122", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, false},
		{"negative port", func(c *Config) { c.Server.Port = -1 }, false},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, false},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, false},
		{"negative cache", func(c *Config) { c.Runtime.ExprCacheSize = -1 }, false},
		{"bad rule", func(c *Config) {
			c.Forms = map[string]map[string]string{"f": {"a": "minlength=x"}}
		}, false},
		{"good rule", func(c *Config) {
			c.Forms = map[string]map[string]string{"f": {"a": "required,email"}}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.HasCode(err, "E122") {
				t.Errorf("Validate() = %v, want E122", err)
			}
		})
	}
}

func TestFormFieldsUnknown(t *testing.T) {
	if _, err := New().FormFields("nope"); !errors.HasCode(err, "E222") {
		t.Errorf("FormFields(nope) = %v, want E222", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	for _, name := range []string{"saved.json", "saved.yaml"} {
		cfg := New()
		cfg.Name = "demo"
		cfg.Server.Port = 5000
		path := filepath.Join(tmpDir, name)
		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("SaveTo(%s): %v", name, err)
		}

		loaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile(%s): %v", name, err)
		}
		if loaded.Name != "demo" || loaded.Server.Port != 5000 {
			t.Errorf("%s: loaded = %+v", name, loaded)
		}
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, YAMLConfigFileName, "name: demo\n")
	nested := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := filepath.Abs(tmpDir)
	if root != want {
		t.Errorf("FindProjectRoot() = %q, want %q", root, want)
	}
}
