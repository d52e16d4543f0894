package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate moves the test into an empty directory with an empty HOME so no
// real .env file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	wd, _ := os.Getwd()
	t.Cleanup(func() { _ = os.Chdir(wd) })
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Setenv("HOME", tmpDir)
	return tmpDir
}

func TestGetEnvString(t *testing.T) {
	t.Setenv("TEST_ENV_STRING", "test_value")

	if got := getEnvString("TEST_ENV_STRING", "default"); got != "test_value" {
		t.Errorf("getEnvString() = %q, want %q", got, "test_value")
	}
	if got := getEnvString("NON_EXISTENT_RFID_KEY", "default"); got != "default" {
		t.Errorf("getEnvString() = %q, want %q", got, "default")
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_ENV_DURATION"

	tests := []struct {
		name       string
		envVal     string
		defaultVal time.Duration
		want       time.Duration
	}{
		{"ValidDuration", "250ms", time.Second, 250 * time.Millisecond},
		{"ValidSeconds", "2", time.Second, 2 * time.Second},
		{"Invalid", "invalid", time.Second, time.Second},
		{"Empty", "", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)
			if got := getEnvDuration(key, tt.defaultVal); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_ENV_BOOL"

	tests := []struct {
		envVal     string
		defaultVal bool
		want       bool
	}{
		{"true", false, true},
		{"0", true, false},
		{"off", true, false},
		{"yes", false, true},
		{"maybe", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.envVal, func(t *testing.T) {
			t.Setenv(key, tt.envVal)
			if got := getEnvBool(key, tt.defaultVal); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envVal, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir")

	if err := ensureDir(path); err != nil {
		t.Fatalf("ensureDir() failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("directory was not created")
	}
	if err := ensureDir(""); err != nil {
		t.Error("ensureDir(\"\") should not error")
	}
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.RefreshInterval != defaultRefreshInterval {
		t.Errorf("RefreshInterval = %v, want %v", cfg.RefreshInterval, defaultRefreshInterval)
	}
	if cfg.ConnectTimeout != defaultConnectTimeout {
		t.Errorf("ConnectTimeout = %v, want %v", cfg.ConnectTimeout, defaultConnectTimeout)
	}
	if cfg.SelfTestDuration != 0 {
		t.Errorf("SelfTestDuration = %v, want 0", cfg.SelfTestDuration)
	}
	if !cfg.Notifications {
		t.Error("Notifications should default to true")
	}
	wantCatalog := filepath.Join(home, ".config", appDirName, "catalog.db")
	if cfg.CatalogPath != wantCatalog {
		t.Errorf("CatalogPath = %q, want %q", cfg.CatalogPath, wantCatalog)
	}
	if _, err := os.Stat(filepath.Dir(wantCatalog)); err != nil {
		t.Errorf("config directory not created: %v", err)
	}
}

func TestLoad_WithEnvFile(t *testing.T) {
	tmpDir := isolate(t)

	content := "REFRESH_INTERVAL=250ms\nNOTIFICATIONS=false\nSELF_TEST_DURATION=2\n"
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// godotenv.Load does not override variables that already exist, so make
	// sure these are unset for the duration of the test.
	for _, k := range []string{"REFRESH_INTERVAL", "NOTIFICATIONS", "SELF_TEST_DURATION"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		os.Unsetenv("REFRESH_INTERVAL")
		os.Unsetenv("NOTIFICATIONS")
		os.Unsetenv("SELF_TEST_DURATION")
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.RefreshInterval != 250*time.Millisecond {
		t.Errorf("RefreshInterval = %v, want 250ms", cfg.RefreshInterval)
	}
	if cfg.Notifications {
		t.Error("Notifications should be false from .env")
	}
	if cfg.SelfTestDuration != 2*time.Second {
		t.Errorf("SelfTestDuration = %v, want 2s", cfg.SelfTestDuration)
	}
}

func TestLoad_InvalidRefreshInterval(t *testing.T) {
	isolate(t)
	t.Setenv("REFRESH_INTERVAL", "-1s")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail for a negative refresh interval")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{RefreshInterval: time.Second, ConnectTimeout: time.Second}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"ZeroRefresh", Config{ConnectTimeout: time.Second}},
		{"ZeroTimeout", Config{RefreshInterval: time.Second}},
		{"NegativeSelfTest", Config{RefreshInterval: time.Second, ConnectTimeout: time.Second, SelfTestDuration: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestGetEnvPaths(t *testing.T) {
	paths := getEnvPaths()
	if len(paths) == 0 {
		t.Fatal("getEnvPaths() returned empty list")
	}

	cwd, _ := os.Getwd()
	if paths[0] != filepath.Join(cwd, ".env") {
		t.Errorf("first path = %q, want current directory .env", paths[0])
	}
}
