package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity_monitor.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
device = "ward-3"

[mqtt]
broker = "tcp://localhost:1883"
qos = 1

[pipeline]
interval_ms = 250

[models]
meta = "models/meta.json"
dynamic = "models/dynamic.json"
static = "models/static.json"
respiratory = "models/respiratory.json"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ward-3", cfg.Device)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "activity/samples/chest", cfg.MQTT.TopicChest)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval())
	assert.Equal(t, 51, cfg.Pipeline.WindowSize)
	assert.Equal(t, 10*time.Second, cfg.RedisTTL())
	assert.NoError(t, cfg.ValidateModels())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "device = \n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[pipeline]\ninterval_ms = 0\n"))
	assert.ErrorContains(t, err, "interval_ms")

	_, err = Load(writeConfig(t, "[serial]\nport = \"/dev/ttyUSB0\"\nsource = \"ankle\"\n"))
	assert.ErrorContains(t, err, "serial.source")

	_, err = Load(writeConfig(t, "[mqtt]\nbroker = \"tcp://x:1883\"\nqos = 3\n"))
	assert.ErrorContains(t, err, "qos")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ACTIVITY_MQTT_BROKER": "tcp://broker:1883",
		"ACTIVITY_LOG_DIR":     "/var/lib/activity",
		"ACTIVITY_LOG_LEVEL":   "debug",
		"ACTIVITY_REDIS_ADDR":  "redis:6379",
		"ACTIVITY_WEB_PORT":    "8080",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "/var/lib/activity", cfg.Logbook.Dir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 8080, cfg.Web.Port)

	env["ACTIVITY_WEB_PORT"] = "http"
	assert.Error(t, Default().applyEnv(lookup))
}

func TestValidateModels(t *testing.T) {
	cfg := Default()
	for i := 0; i < 20; i++ {
		assert.EqualError(t, cfg.ValidateModels(), "models.meta is required")
	}

	cfg.Models.Meta = "meta.json"
	cfg.Models.Static = "static.json"
	assert.EqualError(t, cfg.ValidateModels(), "models.dynamic is required")

	cfg.Models.Dynamic = "dynamic.json"
	assert.EqualError(t, cfg.ValidateModels(), "models.respiratory is required")
}

func TestInitGlobal(t *testing.T) {
	path := writeConfig(t, `device = "global"`)
	require.NoError(t, InitGlobal(path))
	require.NotNil(t, Get())
	assert.Equal(t, "global", Get().Device)

	// later calls keep the first config
	require.NoError(t, InitGlobal(writeConfig(t, `device = "other"`)))
	assert.Equal(t, "global", Get().Device)
}
