package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试创建默认配置
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:10004", cfg.Resolver.DaemonAddr())
	assert.Equal(t, 15*time.Second, cfg.Daemon.KeepAliveInterval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Daemon.DefaultLookupTimeout.Duration())
	assert.Equal(t, RegistryBackendMemory, cfg.Registry.Backend)
}

func TestConfig_ValidateNil(t *testing.T) {
	var cfg *Config
	assert.Error(t, cfg.Validate())
}

// TestFromJSON 部分配置覆盖默认值
func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{
		"resolver": {"address": "10.0.0.1", "port": 7000},
		"daemon": {"keepalive_interval": 30, "max_clients": 8},
		"log": {"level": "debug"}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1", cfg.Resolver.Address)
	assert.Equal(t, 7000, cfg.Resolver.Port)
	assert.Equal(t, 30*time.Second, cfg.Daemon.KeepAliveInterval.Duration())
	assert.Equal(t, 8, cfg.Daemon.MaxClients)
	assert.Equal(t, "debug", cfg.Log.Level)

	// 未出现的字段保持默认
	assert.Equal(t, time.Second, cfg.Daemon.PollInterval.Duration())
	assert.Equal(t, "sequence", cfg.Resolver.KeyScheme)
	assert.NoError(t, cfg.Validate())

	_, err = FromJSON([]byte(`{"daemon": {"keepalive_interval": "forever"}}`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	t.Run("EmptyPath", func(t *testing.T) {
		cfg, err := LoadFile("")
		require.NoError(t, err)
		assert.Equal(t, NewConfig(), cfg)
	})

	t.Run("RoundTrip", func(t *testing.T) {
		cfg := NewConfig()
		cfg.Registry.Backend = RegistryBackendBadger
		cfg.Registry.DataDir = t.TempDir()
		data, err := cfg.ToJSON()
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "resolvd.json")
		require.NoError(t, os.WriteFile(path, data, 0o600))

		loaded, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"250ms"`), &d))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`1.5`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Duration())

	assert.Error(t, json.Unmarshal([]byte(`-1`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))

	out, err := json.Marshal(Duration(15 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"15s"`, string(out))
}

func TestSectionValidate(t *testing.T) {
	t.Run("Resolver", func(t *testing.T) {
		cfg := DefaultResolverConfig()
		cfg.Port = 0
		assert.Error(t, cfg.Validate())

		cfg = DefaultResolverConfig()
		cfg.KeyScheme = "random"
		assert.Error(t, cfg.Validate())

		cfg = DefaultResolverConfig()
		cfg.RPCInterface = "not-an-ip"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Daemon", func(t *testing.T) {
		cfg := DefaultDaemonConfig()
		cfg.MaxClients = 0
		assert.Error(t, cfg.Validate())

		cfg = DefaultDaemonConfig()
		cfg.MaxLookupTimeout = Duration(time.Second)
		assert.Error(t, cfg.Validate())
	})

	t.Run("Registry", func(t *testing.T) {
		cfg := DefaultRegistryConfig()
		cfg.Backend = "etcd"
		assert.Error(t, cfg.Validate())

		cfg = DefaultRegistryConfig()
		cfg.Backend = RegistryBackendBadger
		cfg.DataDir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("Log", func(t *testing.T) {
		cfg := DefaultLogConfig()
		cfg.Level = "trace"
		assert.Error(t, cfg.Validate())
	})

	t.Run("Metrics", func(t *testing.T) {
		cfg := DefaultMetricsConfig()
		cfg.ListenAddr = "nope"
		assert.NoError(t, cfg.Validate(), "disabled metrics are not validated")
		cfg.Enabled = true
		assert.Error(t, cfg.Validate())
	})
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPrefix + EnvAddress:           "192.168.1.10",
		EnvPrefix + EnvPort:              "11000",
		EnvPrefix + EnvKeepAliveInterval: "30",
		EnvPrefix + EnvMaxClients:        "64",
		EnvPrefix + EnvLogLevel:          "warn",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	require.NoError(t, applyEnv(cfg, lookup))
	assert.Equal(t, "192.168.1.10", cfg.Resolver.Address)
	assert.Equal(t, 11000, cfg.Resolver.Port)
	assert.Equal(t, 30*time.Second, cfg.Daemon.KeepAliveInterval.Duration())
	assert.Equal(t, 64, cfg.Daemon.MaxClients)
	assert.Equal(t, "warn", cfg.Log.Level)

	env[EnvPrefix+EnvKeepAliveInterval] = "2m"
	require.NoError(t, applyEnv(cfg, lookup))
	assert.Equal(t, 2*time.Minute, cfg.Daemon.KeepAliveInterval.Duration())

	env[EnvPrefix+EnvPort] = "abc"
	assert.Error(t, applyEnv(cfg, lookup))
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvPrefix+EnvMaxClients, "3")
	cfg := NewConfig()
	require.NoError(t, ApplyEnvOverrides(cfg))
	assert.Equal(t, 3, cfg.Daemon.MaxClients)
}
