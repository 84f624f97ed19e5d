package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. IFMON_MONITOR_INTERFACE.
const EnvPrefix = "IFMON"

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"interface":        "monitor.interface",
	"update-interval":  "monitor.update_interval_ms",
	"filter":           "monitor.filter",
	"list-interfaces":  "monitor.list_interfaces",
	"engine":           "capture.engine",
	"read-file":        "capture.file_path",
	"snaplen":          "capture.snap_len",
	"log-level":        "log.level",
	"log-format":       "log.format",
	"metrics-listen":   "metrics.listen",
	"history-database": "outputs.history.path",
}

// Load reads configuration from path (optional), environment and flags.
// Precedence: changed flag > env > file > default.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// A history path given on the command line implies the history output.
	if flags != nil {
		if f := flags.Lookup("history-database"); f != nil && f.Changed {
			cfg.Outputs.History.Enabled = true
		}
		if f := flags.Lookup("metrics-listen"); f != nil && f.Changed {
			cfg.Metrics.Enabled = true
		}
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default values for configuration.
func setDefaults(v *viper.Viper) {
	// Monitor defaults
	v.SetDefault("monitor.interface", "eth0")
	v.SetDefault("monitor.update_interval_ms", 1000)
	v.SetDefault("monitor.filter", "")
	v.SetDefault("monitor.list_interfaces", false)

	// Capture defaults
	v.SetDefault("capture.engine", EnginePcap)
	v.SetDefault("capture.snap_len", 65535)
	v.SetDefault("capture.promiscuous", true)
	v.SetDefault("capture.immediate_mode", true)
	v.SetDefault("capture.timeout_ms", 100)
	v.SetDefault("capture.buffer_size_mb", 8)
	v.SetDefault("capture.file_path", "")

	// Output defaults
	v.SetDefault("outputs.console.enabled", true)
	v.SetDefault("outputs.kafka.enabled", false)
	v.SetDefault("outputs.kafka.brokers", []string{})
	v.SetDefault("outputs.kafka.topic", "ifmon-windows")
	v.SetDefault("outputs.kafka.compression", "snappy")
	v.SetDefault("outputs.kafka.batch_timeout", "100ms")
	v.SetDefault("outputs.history.enabled", false)
	v.SetDefault("outputs.history.path", "ifmon.db")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9091")
	v.SetDefault("metrics.path", "/metrics")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.outputs.file.enabled", false)
	v.SetDefault("log.outputs.file.path", "/var/log/ifmon/ifmon.log")
	v.SetDefault("log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("log.outputs.file.rotation.compress", true)
}
