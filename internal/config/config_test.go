package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reflow_emulator/internal/device"
	"reflow_emulator/internal/service"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func flagsFor(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := Flags()
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\n")

	cfg, err := Load(flagsFor(t, "--config", path))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.BindAddr.String())
	assert.Equal(t, uint16(9001), cfg.ControllerPort)
	assert.Equal(t, 100*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, service.VariantRequestReply, cfg.Variant)
	assert.Equal(t, device.DefaultTemperatureC, cfg.TemperatureC)
	assert.Equal(t, device.ReserveReject, cfg.ReservePolicy)
	assert.Equal(t, device.ReleaseOwner, cfg.ReleasePolicy)
	assert.Equal(t, "8080", cfg.HTTPPort)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
transport:
  bind_address: 0.0.0.0
  bind_port: 9100
device:
  variant: poll
  temperature: 240
  poll_period: 20ms
  reserve_policy: transfer
  release_policy: any
`)
	t.Setenv("REFLOW_TRANSPORT_CONTROLLER_PORT", "9200")

	cfg, err := Load(flagsFor(t, "--config", path, "--bind-port", "9300", "--http-port", ""))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9300", cfg.BindAddr.String(), "flag overrides file")
	assert.Equal(t, uint16(9200), cfg.ControllerPort, "env overrides default")
	assert.Equal(t, service.VariantPoll, cfg.Variant)
	assert.Equal(t, uint16(240), cfg.TemperatureC)
	assert.Equal(t, 20*time.Millisecond, cfg.PollPeriod)
	assert.Equal(t, device.ReserveTransfer, cfg.ReservePolicy)
	assert.Equal(t, device.ReleaseAny, cfg.ReleasePolicy)
	assert.Empty(t, cfg.HTTPPort)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad address": "transport:\n  bind_address: not-an-ip\n",
		"bad port":    "transport:\n  bind_port: 70000\n",
		"bad temp":    "device:\n  temperature: -1\n",
		"bad variant": "device:\n  variant: busy_wait\n",
		"bad reserve": "device:\n  reserve_policy: latest\n",
		"bad release": "device:\n  release_policy: nobody\n",
		"bad timeout": "transport:\n  read_timeout: 0s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, body)
			_, err := Load(flagsFor(t, "--config", path))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(flagsFor(t, "--config", filepath.Join(t.TempDir(), "nope.yml")))
	require.Error(t, err)
}
