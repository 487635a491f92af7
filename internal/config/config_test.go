package config

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		wantPanic bool
	}{
		{
			name:  "variable set",
			key:   "CLIPFLOW_TEST_VAR",
			value: "test_value",
		},
		{
			name:      "variable not set",
			key:       "CLIPFLOW_TEST_VAR_MISSING",
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  int
		wantPanic bool
	}{
		{name: "valid integer", value: "42", expected: 42},
		{name: "invalid integer", value: "not_a_number", wantPanic: true},
		{name: "missing variable", value: "", wantPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLIPFLOW_TEST_INT", tt.value)

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnvInt() should have panicked")
					}
				}()
			}

			result := requireEnvInt("CLIPFLOW_TEST_INT")
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("requireEnvInt() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestParseList(t *testing.T) {
	def := []string{"a", "b"}

	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "unset keeps default", value: "", expected: []string{"a", "b"}},
		{name: "off disables", value: "off", expected: nil},
		{name: "off is case-insensitive", value: " OFF ", expected: nil},
		{name: "single value", value: "10.0.0.0/8", expected: []string{"10.0.0.0/8"}},
		{name: "trimmed and unquoted", value: ` "x" , 'y',, z `, expected: []string{"x", "y", "z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLIPFLOW_TEST_LIST", tt.value)

			result := parseList("CLIPFLOW_TEST_LIST", def)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("parseList() = %#v, want %#v", result, tt.expected)
			}
		})
	}

	// the default slice must not be shared
	result := parseList("CLIPFLOW_TEST_LIST_UNSET", def)
	result[0] = "changed"
	if def[0] != "a" {
		t.Errorf("parseList() returned the default slice itself")
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CLIPFLOW_DATA_DIR", dir)
	t.Setenv("CLIPFLOW_STORE", "")
	t.Setenv("CLIPFLOW_LOG_LEVEL", "")
	t.Setenv("CLIPFLOW_ALLOWED_CIDRS", "")
	t.Setenv("CLIPFLOW_ALLOWED_HOSTS", "")

	cfg := Load()

	if cfg.ListenAddr != "127.0.0.1:7878" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Store != StoreSQLite {
		t.Errorf("Store = %q, want sqlite", cfg.Store)
	}
	if cfg.DBPath != filepath.Join(dir, "clipboard.db") {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.ImagesDir != filepath.Join(dir, "images") {
		t.Errorf("ImagesDir = %q", cfg.ImagesDir)
	}
	if cfg.SettingsFile != filepath.Join(dir, "settings.yaml") {
		t.Errorf("SettingsFile = %q", cfg.SettingsFile)
	}
	if cfg.SettleDelay != 100*time.Millisecond {
		t.Errorf("SettleDelay = %v", cfg.SettleDelay)
	}
	if !reflect.DeepEqual(cfg.AllowedCIDRS, []string{"127.0.0.1/8", "::1/128"}) {
		t.Errorf("AllowedCIDRS = %v", cfg.AllowedCIDRS)
	}
	if len(cfg.AllowedHosts) != 3 {
		t.Errorf("AllowedHosts = %v", cfg.AllowedHosts)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("redis settings should stay empty for sqlite, got addr %q", cfg.RedisAddr)
	}
}

func TestLoadStore(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantStore string
		wantPanic bool
	}{
		{
			name:      "memory",
			env:       map[string]string{"CLIPFLOW_STORE": "Memory"},
			wantStore: StoreMemory,
		},
		{
			name:      "unknown store",
			env:       map[string]string{"CLIPFLOW_STORE": "postgres"},
			wantPanic: true,
		},
		{
			name:      "redis without address",
			env:       map[string]string{"CLIPFLOW_STORE": "redis", "CLIPFLOW_REDIS_ADDR": ""},
			wantPanic: true,
		},
		{
			name: "redis password required",
			env: map[string]string{
				"CLIPFLOW_STORE":                   "redis",
				"CLIPFLOW_REDIS_ADDR":              "localhost:6379",
				"CLIPFLOW_REDIS_DB":                "0",
				"CLIPFLOW_REDIS_PASSWORD_REQUIRED": "true",
				"CLIPFLOW_REDIS_PASSWORD":          "",
			},
			wantPanic: true,
		},
		{
			name: "redis",
			env: map[string]string{
				"CLIPFLOW_STORE":        "redis",
				"CLIPFLOW_REDIS_ADDR":   "localhost:6379",
				"CLIPFLOW_REDIS_DB":     "2",
				"CLIPFLOW_REDIS_PREFIX": "",
			},
			wantStore: StoreRedis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLIPFLOW_DATA_DIR", t.TempDir())
			t.Setenv("CLIPFLOW_LOG_LEVEL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("Load() should have panicked")
					}
				}()
			}

			cfg := Load()
			if tt.wantPanic {
				return
			}
			if cfg.Store != tt.wantStore {
				t.Errorf("Store = %q, want %q", cfg.Store, tt.wantStore)
			}
			if cfg.Store == StoreRedis {
				if cfg.RedisDB != 2 || cfg.RedisPrefix != "clipflow" {
					t.Errorf("redis settings = db %d prefix %q", cfg.RedisDB, cfg.RedisPrefix)
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: 1 * time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "invalid", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLIPFLOW_TEST_DURATION", tt.value)

			result := mustDuration("CLIPFLOW_TEST_DURATION", tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      bool
		expected bool
	}{
		{name: "true value", value: "true", def: false, expected: true},
		{name: "false value", value: "false", def: true, expected: false},
		{name: "invalid value uses default", value: "invalid", def: true, expected: true},
		{name: "missing variable uses default", value: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CLIPFLOW_TEST_BOOL", tt.value)

			result := mustBool("CLIPFLOW_TEST_BOOL", tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}
