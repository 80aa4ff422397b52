package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode        string        `mapstructure:"mode"`
	Port        int           `mapstructure:"port"`
	Secret      string        `mapstructure:"secret"`
	DataDir     string        `mapstructure:"data_dir"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	PingPeriod  time.Duration `mapstructure:"ping_period"`
	GraceWindow time.Duration `mapstructure:"grace_window"`
	VoteTimeout time.Duration `mapstructure:"vote_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 4000)
	v.SetDefault("secret", "dev-secret")
	v.SetDefault("data_dir", "")
	v.SetDefault("token_ttl", "168h")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	// Grace window before a dropped connection becomes an eviction.
	// One knob for every handler; the old per-handler values had no
	// deliberate policy behind them.
	v.SetDefault("grace_window", "5s")
	v.SetDefault("vote_timeout", "60s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Grace: %s\n", cfg.Mode, cfg.Port, cfg.GraceWindow)
	return &cfg, nil
}
