package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	OpsPath           string
	EventsOut         string
	ErrorsOut         string
	Checkpoint        string
	CheckpointEnabled bool
	SnapshotName      string
	PGDSN             string
	BadgerDir         string
	BatchSize         int
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string

	AssetAddress string
	Custody      string
	RewardPool   string
	InitialPrice string
	Injectors    []string
	Pricers      []string
	Treasurers   []string
	Operators    []string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("errors-out", "./data/op_errors.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("snapshot-name", "vault")
	v.SetDefault("badger-dir", "./data/vaultdb")
	v.SetDefault("batch-size", 100)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		OpsPath:           v.GetString("ops"),
		EventsOut:         v.GetString("events-out"),
		ErrorsOut:         v.GetString("errors-out"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		SnapshotName:      v.GetString("snapshot-name"),
		PGDSN:             v.GetString("pg-dsn"),
		BadgerDir:         v.GetString("badger-dir"),
		BatchSize:         v.GetInt("batch-size"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
		AssetAddress:      v.GetString("asset"),
		Custody:           v.GetString("custody"),
		RewardPool:        v.GetString("reward-pool"),
		InitialPrice:      v.GetString("initial-price"),
		Injectors:         getStringSlice(v, "injector"),
		Pricers:           getStringSlice(v, "pricer"),
		Treasurers:        getStringSlice(v, "treasurer"),
		Operators:         getStringSlice(v, "operator"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
