// Package config loads emulator settings from configs/config.yml, REFLOW_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"reflow_emulator/internal/device"
	"reflow_emulator/internal/service"
)

const envPrefix = "REFLOW"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the validated process configuration.
type Config struct {
	LogLevel string

	BindAddr       netip.AddrPort
	ControllerPort uint16
	ReadTimeout    time.Duration

	Variant       string
	TemperatureC  uint16
	PollPeriod    time.Duration
	ReservePolicy device.ReservePolicy
	ReleasePolicy device.ReleasePolicy

	JournalPath   string
	JournalBuffer int

	HTTPPort string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("transport.bind_address", "127.0.0.1")
	v.SetDefault("transport.bind_port", 9000)
	v.SetDefault("transport.controller_port", 9001)
	v.SetDefault("transport.read_timeout", 100*time.Millisecond)
	v.SetDefault("device.variant", service.VariantRequestReply)
	v.SetDefault("device.temperature", int(device.DefaultTemperatureC))
	v.SetDefault("device.poll_period", service.DefaultPollPeriod)
	v.SetDefault("device.reserve_policy", string(device.ReserveReject))
	v.SetDefault("device.release_policy", string(device.ReleaseOwner))
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.buffer", service.DefaultJournalBuffer)
	v.SetDefault("http.port", "8080")
}

// Flags returns the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("reflow-emulator", pflag.ContinueOnError)
	fs.String("config", "", "path to config file (default configs/config.yml)")
	fs.String("bind-address", "", "local interface address")
	fs.Int("bind-port", 0, "local UDP port")
	fs.Int("controller-port", 0, "controller UDP port (poll variant)")
	fs.String("variant", "", "protocol variant: request_reply or poll")
	fs.String("http-port", "", "HTTP monitor port, empty to disable")
	fs.String("log-level", "", "debug, info, warn or error")
	return fs
}

var flagKeys = map[string]string{
	"bind-address":    "transport.bind_address",
	"bind-port":       "transport.bind_port",
	"controller-port": "transport.controller_port",
	"variant":         "device.variant",
	"http-port":       "http.port",
	"log-level":       "log.level",
}

// Load reads the configuration. fs may be nil; only flags that were set
// explicitly override file and environment values.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	addr, err := netip.ParseAddr(v.GetString("transport.bind_address"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: transport.bind_address: %v", ErrInvalidConfig, err)
	}
	bindPort, err := portValue(v, "transport.bind_port")
	if err != nil {
		return Config{}, err
	}
	ctrlPort, err := portValue(v, "transport.controller_port")
	if err != nil {
		return Config{}, err
	}

	temp := v.GetInt("device.temperature")
	if temp < 0 || temp > 65535 {
		return Config{}, fmt.Errorf("%w: device.temperature %d outside 0-65535", ErrInvalidConfig, temp)
	}

	variant := v.GetString("device.variant")
	if _, err := service.NewVariant(variant, ctrlPort, 0); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	reservePolicy, err := device.ParseReservePolicy(v.GetString("device.reserve_policy"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	releasePolicy, err := device.ParseReleasePolicy(v.GetString("device.release_policy"))
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	readTimeout := v.GetDuration("transport.read_timeout")
	if readTimeout <= 0 {
		return Config{}, fmt.Errorf("%w: transport.read_timeout must be positive", ErrInvalidConfig)
	}

	return Config{
		LogLevel:       v.GetString("log.level"),
		BindAddr:       netip.AddrPortFrom(addr, bindPort),
		ControllerPort: ctrlPort,
		ReadTimeout:    readTimeout,
		Variant:        variant,
		TemperatureC:   uint16(temp),
		PollPeriod:     v.GetDuration("device.poll_period"),
		ReservePolicy:  reservePolicy,
		ReleasePolicy:  releasePolicy,
		JournalPath:    v.GetString("journal.path"),
		JournalBuffer:  v.GetInt("journal.buffer"),
		HTTPPort:       v.GetString("http.port"),
	}, nil
}

func portValue(v *viper.Viper, key string) (uint16, error) {
	p := v.GetInt(key)
	if p < 0 || p > 65535 {
		return 0, fmt.Errorf("%w: %s %d outside 0-65535", ErrInvalidConfig, key, p)
	}
	return uint16(p), nil
}
