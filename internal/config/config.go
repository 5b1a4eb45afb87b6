package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/dashmon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultTickInterval  = 100
	DefaultStoragePath   = "/"
	DefaultLogLevel      = "info"
	DefaultHistoryDB     = "/var/lib/dashmon/history.db"
	DefaultBatchSize     = 20
	DefaultBatchTimeout  = 30
	DefaultIPCHost       = "127.0.0.1"
	DefaultIPCListenPort = 5005
	DefaultIPCPeerPort   = 5006
	DefaultGPIODebounce  = 50

	configEnv     = "CONFIG"
	defaultPrefix = "DASHMON"
	configName    = "dashmon"
	configDir     = "/etc/dashmon"

	minTickInterval = 10
	maxTickInterval = 10000
	maxModule       = 5
)

type Config struct {
	TickInterval        int    `mapstructure:"tick_interval"`
	StoragePath         string `mapstructure:"storage_path"`
	ActiveModule        int    `mapstructure:"active_module"`
	LogLevel            string `mapstructure:"log_level"`
	Debug               bool   `mapstructure:"debug"`
	Verbose             bool   `mapstructure:"verbose"`
	History             bool   `mapstructure:"history"`
	HistoryDB           string `mapstructure:"history_db"`
	HistoryBatchSize    int    `mapstructure:"history_batch_size"`
	HistoryBatchTimeout int    `mapstructure:"history_batch_timeout"`
	IPC                 bool   `mapstructure:"ipc"`
	IPCHost             string `mapstructure:"ipc_host"`
	IPCListenPort       int    `mapstructure:"ipc_listen_port"`
	IPCPeerPort         int    `mapstructure:"ipc_peer_port"`
	GPIOPins            []int  `mapstructure:"gpio_pins"`
	GPIOActiveLow       bool   `mapstructure:"gpio_active_low"`
	GPIODebounce        int    `mapstructure:"gpio_debounce"`
	StatusAddr          string `mapstructure:"status_addr"`
}

// Load reads the configuration from defaults, the TOML config file, DASHMON_*
// environment variables and finally the command line, in increasing priority.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{envPrefix: defaultPrefix}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}
	if o.configPath == "" {
		o.configPath = os.Getenv(o.envPrefix + "_" + configEnv)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, bindErr)
	}

	if err := readConfigFile(v, o.configPath); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tick_interval", DefaultTickInterval)
	v.SetDefault("storage_path", DefaultStoragePath)
	v.SetDefault("active_module", 0)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("history", false)
	v.SetDefault("history_db", DefaultHistoryDB)
	v.SetDefault("history_batch_size", DefaultBatchSize)
	v.SetDefault("history_batch_timeout", DefaultBatchTimeout)
	v.SetDefault("ipc", true)
	v.SetDefault("ipc_host", DefaultIPCHost)
	v.SetDefault("ipc_listen_port", DefaultIPCListenPort)
	v.SetDefault("ipc_peer_port", DefaultIPCPeerPort)
	v.SetDefault("gpio_pins", []int{})
	v.SetDefault("gpio_active_low", true)
	v.SetDefault("gpio_debounce", DefaultGPIODebounce)
	v.SetDefault("status_addr", "")
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet(configName, pflag.ContinueOnError)
	fs.Int("tick-interval", DefaultTickInterval, "Sampler tick interval in milliseconds")
	fs.String("storage-path", DefaultStoragePath, "Mount path reported as storage")
	fs.Int("active-module", 0, "Initially active dashboard module")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning, error")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.Bool("history", false, "Record samples to the history database")
	fs.String("history-db", DefaultHistoryDB, "Path to the history database")
	fs.Bool("ipc", true, "Enable the UDP assistant channel")
	fs.String("ipc-host", DefaultIPCHost, "Host for the UDP assistant channel")
	fs.Int("ipc-listen-port", DefaultIPCListenPort, "UDP port to receive assistant messages on")
	fs.Int("ipc-peer-port", DefaultIPCPeerPort, "UDP port to send assistant messages to")
	fs.IntSlice("gpio-pins", nil, "GPIO pins wired to buttons")
	fs.Bool("gpio-active-low", true, "Buttons pull the line low when pressed")
	fs.Int("gpio-debounce", DefaultGPIODebounce, "Button debounce window in milliseconds")
	fs.String("status-addr", "", "Listen address for the HTTP status endpoint (disabled if empty)")

	return fs
}

func readConfigFile(v *viper.Viper, path string) error {
	errFactory := errors.New()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}

		return nil
	}

	v.SetConfigName(configName)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	return nil
}

// Validate checks every value that has a bounded domain.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(strings.ToLower(c.LogLevel)).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.TickInterval < minTickInterval || c.TickInterval > maxTickInterval {
		return errFactory.WithData(errors.ErrInvalidInterval, c.TickInterval)
	}

	if c.ActiveModule < 0 || c.ActiveModule > maxModule {
		return errFactory.WithData(errors.ErrInvalidModule, c.ActiveModule)
	}

	if c.StoragePath == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "storage path must not be empty")
	}

	if c.IPC {
		for _, port := range []int{c.IPCListenPort, c.IPCPeerPort} {
			if port <= 0 || port > 65535 {
				return errFactory.WithData(errors.ErrInvalidPort, port)
			}
		}
		if c.IPCListenPort == c.IPCPeerPort {
			return errFactory.WithData(errors.ErrInvalidPort, "listen and peer ports must differ")
		}
	}

	if c.GPIODebounce < 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.GPIODebounce)
	}

	if c.History && c.HistoryDB == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history database path must not be empty")
	}

	return nil
}
