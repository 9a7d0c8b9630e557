package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xraph/wrapnzap"
	"github.com/xraph/wrapnzap/store"
)

// Config holds relay server configuration.
type Config struct {
	Address   string       `mapstructure:"address"`
	Recipient string       `mapstructure:"recipient"`
	Wrapper   string       `mapstructure:"wrapper"`
	Token     string       `mapstructure:"token"`
	Listen    string       `mapstructure:"listen"`
	Prefix    string       `mapstructure:"prefix"`
	Store     store.Config `mapstructure:"store"`
	PokeRate  int          `mapstructure:"poke_rate"`
	Faucet    bool         `mapstructure:"faucet"`
	LogLevel  string       `mapstructure:"log_level"`
	LogFormat string       `mapstructure:"log_format"`
	Metrics   bool         `mapstructure:"metrics"`
}

// Defaults contains default values for the relay server.
var Defaults = struct {
	Listen     string
	Token      string
	Driver     string
	SQLitePath string
	PokeRate   int
	LogLevel   string
	LogFormat  string
}{
	Listen:     ":8080",
	Token:      "WETH",
	Driver:     store.DriverMemory,
	SQLitePath: "wrapnzap.db",
	PokeRate:   10,
	LogLevel:   "info",
	LogFormat:  "text",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("address", "")
	v.SetDefault("recipient", "")
	v.SetDefault("wrapper", "")
	v.SetDefault("listen", Defaults.Listen)
	v.SetDefault("prefix", "")
	v.SetDefault("token", Defaults.Token)
	v.SetDefault("store.driver", Defaults.Driver)
	v.SetDefault("store.redis_addr", "")
	v.SetDefault("store.redis_db", 0)
	v.SetDefault("store.sqlite_path", Defaults.SQLitePath)
	v.SetDefault("poke_rate", Defaults.PokeRate)
	v.SetDefault("faucet", false)
	v.SetDefault("log_level", Defaults.LogLevel)
	v.SetDefault("log_format", Defaults.LogFormat)
	v.SetDefault("metrics", true)
}

func bindServeFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()
	f.String("config", "", "config file path")
	f.String("address", "", "zapper account address")
	f.String("recipient", "", "zappee address receiving wrapped tokens")
	f.String("wrapper", "", "wrapping service address")
	f.String("token", "", "wrapped token asset name")
	f.String("listen", "", "HTTP listen address")
	f.String("prefix", "", "URL prefix for the API routes")
	f.String("store", "", "ledger backend (memory, redis, sqlite)")
	f.String("redis-addr", "", "redis address for the redis store")
	f.String("sqlite-path", "", "database file for the sqlite store")
	f.Int("poke-rate", 0, "pokes per second allowed per client (0 disables)")
	f.Bool("faucet", false, "enable the /fund endpoint")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (json, text)")
	f.Bool("metrics", true, "serve prometheus metrics on /metrics")

	_ = v.BindPFlag("address", f.Lookup("address"))
	_ = v.BindPFlag("recipient", f.Lookup("recipient"))
	_ = v.BindPFlag("wrapper", f.Lookup("wrapper"))
	_ = v.BindPFlag("token", f.Lookup("token"))
	_ = v.BindPFlag("listen", f.Lookup("listen"))
	_ = v.BindPFlag("prefix", f.Lookup("prefix"))
	_ = v.BindPFlag("store.driver", f.Lookup("store"))
	_ = v.BindPFlag("store.redis_addr", f.Lookup("redis-addr"))
	_ = v.BindPFlag("store.sqlite_path", f.Lookup("sqlite-path"))
	_ = v.BindPFlag("poke_rate", f.Lookup("poke-rate"))
	_ = v.BindPFlag("faucet", f.Lookup("faucet"))
	_ = v.BindPFlag("log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("log_format", f.Lookup("log-format"))
	_ = v.BindPFlag("metrics", f.Lookup("metrics"))
}

func loadConfig(v *viper.Viper, configFile string) (Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("WRAPNZAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("wrapnzap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/wrapnzap")
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) || configFile != "" {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// zapperConfig parses the hex addresses into a deployment configuration.
func (c Config) zapperConfig() (wrapnzap.Config, error) {
	var out wrapnzap.Config
	fields := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"address", c.Address, &out.Address},
		{"recipient", c.Recipient, &out.Recipient},
		{"wrapper", c.Wrapper, &out.Wrapper},
	}
	for _, f := range fields {
		if !common.IsHexAddress(f.raw) {
			return wrapnzap.Config{}, fmt.Errorf("%s: invalid address %q", f.name, f.raw)
		}
		*f.dst = common.HexToAddress(f.raw)
	}
	return out, out.Validate()
}
