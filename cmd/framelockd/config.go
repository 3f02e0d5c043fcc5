package main

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config drives a simulated cluster run. Values come from framelockd.yaml,
// CLUSTER_* environment variables and command-line flags, in ascending
// precedence.
type Config struct {
	Nodes          int    `mapstructure:"nodes"`
	Frames         int    `mapstructure:"frames"`
	Buffers        int    `mapstructure:"buffers"`
	WarmupPresents int    `mapstructure:"warmup_presents"`
	Renderer       string `mapstructure:"renderer"`
	Master         bool   `mapstructure:"master"`
	SyncInterval   uint32 `mapstructure:"sync_interval"`
	Verbose        bool   `mapstructure:"verbose"`
}

// loadConfig reads the configuration from file and environment.
func loadConfig() (*Config, error) {
	viper.SetConfigName("framelockd")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("CLUSTER")
	viper.AutomaticEnv()

	viper.SetDefault("nodes", 2)
	viper.SetDefault("frames", 8)
	viper.SetDefault("buffers", 3)
	viper.SetDefault("warmup_presents", 2)
	viper.SetDefault("renderer", "explicit")
	viper.SetDefault("master", true)
	viper.SetDefault("sync_interval", 1)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
