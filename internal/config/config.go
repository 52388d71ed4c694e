package config

import (
	"errors"
	"fmt"
	"strings"

	constants "mysqllogger/config"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the runtime configuration. It is built once by Load and passed by
// value to the controller and the poll loop.
type Config struct {
	DBUser      string `mapstructure:"user"`
	DBPass      string `mapstructure:"pass"`
	PIDFile     string `mapstructure:"pidfile"`
	Syslog      bool   `mapstructure:"syslog"`
	Daemonize   bool   `mapstructure:"daemonize"`
	Command     string `mapstructure:"command"`
	MyCnf       string `mapstructure:"mycnf"`
	LockPIDFile bool   `mapstructure:"lock"`
	LogFile     string `mapstructure:"log_file"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// InvalidCommandError reports a --command value outside start|stop|status.
type InvalidCommandError struct {
	Command string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("Invalid command %s", e.Command)
}

// flagKeys maps viper keys to the pflag names they are bound to.
var flagKeys = map[string]string{
	"user":         "user",
	"pass":         "pass",
	"pidfile":      "pidfile",
	"syslog":       "syslog",
	"daemonize":    "daemonize",
	"command":      "command",
	"mycnf":        "mycnf",
	"lock":         "lock",
	"log_file":     "log-file",
	"metrics_addr": "metrics-addr",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("user", "u", "", "MySQL User")
	fs.StringP("pass", "p", "", "MySQL Password")
	fs.StringP("pidfile", "P", constants.PID_FILE, "PID File")
	fs.BoolP("syslog", "s", false, "Log to syslog")
	fs.BoolP("daemonize", "d", false, "daemonize process")
	fs.StringP("command", "k", constants.COMMAND_START, "command to pass daemon (start|stop|status)")
	fs.String("mycnf", constants.MYSQL_CNF, "MySQL configuration file listing instances")
	fs.Bool("lock", false, "hold an exclusive lock on the PID file while running")
	fs.String("log-file", constants.LOG_FILE, "file for the daemon's own diagnostics")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address (disabled when empty)")
	fs.String("config", "", "optional YAML config file")
}

// Load layers defaults, an optional config file, MYSQL_LOGGER_* environment
// variables and the parsed flags, in increasing precedence.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()

	v.SetDefault("user", "")
	v.SetDefault("pass", "")
	v.SetDefault("pidfile", constants.PID_FILE)
	v.SetDefault("syslog", false)
	v.SetDefault("daemonize", false)
	v.SetDefault("command", constants.COMMAND_START)
	v.SetDefault("mycnf", constants.MYSQL_CNF)
	v.SetDefault("lock", false)
	v.SetDefault("log_file", constants.LOG_FILE)
	v.SetDefault("metrics_addr", "")

	v.SetEnvPrefix(constants.ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	configFile := ""
	if fs != nil {
		configFile, _ = fs.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(constants.CONFIG_NAME)
		v.SetConfigType("yaml")
		v.AddConfigPath(constants.CONFIG_DIR)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields that have a closed set of values.
func (cfg Config) Validate() error {
	switch cfg.Command {
	case constants.COMMAND_START, constants.COMMAND_STOP, constants.COMMAND_STATUS:
		return nil
	default:
		return &InvalidCommandError{Command: cfg.Command}
	}
}
