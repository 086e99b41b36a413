package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NatDug/Field-Buddy/internal/storage"
)

func TestLoadConfigPrecedenceFlagOverEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
backend = "kv"
`)

	flagBackend := "sqlite"
	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"FIELDBUDDY_BACKEND": "auto",
			"FIELDBUDDY_HOME":    t.TempDir(),
		},
		Flags: FlagOverrides{
			Backend: &flagBackend,
		},
	})
	require.NoError(t, err)
	require.Equal(t, storage.BackendSQLite, cfg.Storage.Backend)
}

func TestLoadConfigPrecedenceEnvOverFile(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[usda]
timeout = "10s"
`)

	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env: map[string]string{
			"FIELDBUDDY_USDA_TIMEOUT": "20s",
			"FIELDBUDDY_HOME":         t.TempDir(),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 20*time.Second, cfg.USDA.Timeout)
}

func TestLoadConfigPrecedenceFileOverDefault(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[geocoding]
timeout = "3s"
`)

	cfg, err := Load(LoadOptions{
		ConfigPath: cfgPath,
		Env:        map[string]string{"FIELDBUDDY_HOME": t.TempDir()},
	})
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.Geocoding.Timeout)
	require.Equal(t, defaultGeocoderURL, cfg.Geocoding.BaseURL)
	require.Equal(t, storage.BackendAuto, cfg.Storage.Backend)
}

func TestLoadConfigFromTOMLParsesAllSupportedFields(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[storage]
backend = "sqlite"
data_dir = "/tmp/fieldbuddy-data"

[logging]
level = "debug"
file = "/tmp/fieldbuddy.log"
max_size_mb = 42
max_files = 9

[location]
latitude = 36.7378
longitude = -119.7871

[geocoding]
base_url = "http://localhost:8080"
user_agent = "fb-test"
timeout = "4s"

[usda]
quickstats_url = "http://localhost:9090/api"
api_key = "k"
default_state = "ia"
timeout = "30s"

[auth]
dev_bypass = true
`)

	cfg, err := Load(LoadOptions{ConfigPath: cfgPath})
	require.NoError(t, err)
	require.Equal(t, storage.BackendSQLite, cfg.Storage.Backend)
	require.Equal(t, "/tmp/fieldbuddy-data", cfg.Storage.DataDir)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "/tmp/fieldbuddy.log", cfg.Logging.File)
	require.Equal(t, 42, cfg.Logging.MaxSizeMB)
	require.Equal(t, 9, cfg.Logging.MaxFiles)
	require.Equal(t, 36.7378, *cfg.Location.Latitude)
	require.Equal(t, -119.7871, *cfg.Location.Longitude)
	require.Equal(t, "http://localhost:8080", cfg.Geocoding.BaseURL)
	require.Equal(t, "fb-test", cfg.Geocoding.UserAgent)
	require.Equal(t, 4*time.Second, cfg.Geocoding.Timeout)
	require.Equal(t, "http://localhost:9090/api", cfg.USDA.QuickStatsURL)
	require.Equal(t, "k", cfg.USDA.APIKey)
	require.Equal(t, "IA", cfg.USDA.DefaultState)
	require.Equal(t, 30*time.Second, cfg.USDA.Timeout)
	require.True(t, cfg.Auth.DevBypass)
}

func TestLoadConfigEnvCoordinatesAndDevBypass(t *testing.T) {
	t.Parallel()

	cfg, err := Load(LoadOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Env: map[string]string{
			"FIELDBUDDY_HOME":       t.TempDir(),
			"FIELDBUDDY_LATITUDE":   "42.03",
			"FIELDBUDDY_LONGITUDE":  "-93.63",
			"FIELDBUDDY_DEV_BYPASS": "true",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 42.03, *cfg.Location.Latitude)
	require.True(t, cfg.Auth.DevBypass)
}

func TestLoadConfigValidationRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "unknown-backend", toml: "[storage]\nbackend = \"postgres\"\n"},
		{name: "bad-level", toml: "[logging]\nlevel = \"loud\"\n"},
		{name: "zero-max-files", toml: "[logging]\nmax_files = 0\n"},
		{name: "half-location", toml: "[location]\nlatitude = 10.0\n"},
		{name: "latitude-range", toml: "[location]\nlatitude = 91.0\nlongitude = 0.0\n"},
		{name: "negative-timeout", toml: "[geocoding]\ntimeout = \"-1s\"\n"},
		{name: "timeout-too-long", toml: "[usda]\ntimeout = \"6m\"\n"},
		{name: "unparsable-timeout", toml: "[usda]\ntimeout = \"soon\"\n"},
		{name: "state-code", toml: "[usda]\ndefault_state = \"Iowa\"\n"},
		{name: "malformed-toml", toml: "[storage\n"},
		{name: "env-bool", env: map[string]string{"FIELDBUDDY_DEV_BYPASS": "maybe"}},
		{name: "env-latitude", env: map[string]string{"FIELDBUDDY_LATITUDE": "north"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := map[string]string{"FIELDBUDDY_HOME": t.TempDir()}
			for k, v := range tt.env {
				env[k] = v
			}
			_, err := Load(LoadOptions{
				ConfigPath: writeConfigFile(t, tt.toml),
				Env:        env,
			})
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfigPathFromEnv(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfigFile(t, `
[logging]
level = "warn"
`)

	cfg, err := Load(LoadOptions{
		Env: map[string]string{
			"FIELDBUDDY_CONFIG_PATH": cfgPath,
			"FIELDBUDDY_HOME":        t.TempDir(),
		},
	})
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestDataHomeDefaults(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	got, err := DataHome(map[string]string{"FIELDBUDDY_HOME": home})
	require.NoError(t, err)
	require.Equal(t, home, got)

	cfg, err := Load(LoadOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.toml"),
		Env:        map[string]string{"FIELDBUDDY_HOME": home},
	})
	require.NoError(t, err)
	require.Equal(t, home, cfg.Storage.DataDir)
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(contents), 0o600))
	return p
}
