// Package config loads the indexer's configuration from a YAML file plus
// environment overrides, the same viper-based approach the rest of this
// codebase's ancestry uses for its node configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/pkg/utils"
)

var errInvalid = kerrors.ErrConfigInvalid

// DaaRange is one [start, end] pair of the startup.daa_score_range list.
type DaaRange struct {
	Start uint64 `mapstructure:"start" json:"start"`
	End   uint64 `mapstructure:"end" json:"end"`
}

// Config is the unified configuration for one indexer process, mirroring
// the recognised keys of spec §6.
type Config struct {
	Startup struct {
		Hysteresis     int        `mapstructure:"hysteresis" json:"hysteresis"`
		DaaScoreRange  []DaaRange `mapstructure:"daa_score_range" json:"daa_score_range"`
		TickReserved   []string   `mapstructure:"tick_reserved" json:"tick_reserved"`
		KaspaNodeURL   string     `mapstructure:"kaspa_node_url" json:"kaspa_node_url"`
		IsTestnet      bool       `mapstructure:"is_testnet" json:"is_testnet"`
		IssueModeScore uint64     `mapstructure:"issue_mode_daa_score" json:"issue_mode_daa_score"`
	} `mapstructure:"startup" json:"startup"`

	Rocksdb struct {
		Path string `mapstructure:"path" json:"path"`
	} `mapstructure:"rocksdb" json:"rocksdb"`

	HTTP struct {
		Bind string `mapstructure:"bind" json:"bind"`
		Port int    `mapstructure:"port" json:"port"`
	} `mapstructure:"http" json:"http"`

	Rest struct {
		KaspaRestBaseURL string `mapstructure:"kaspa_rest_base_url" json:"kaspa_rest_base_url"`
	} `mapstructure:"rest" json:"rest"`

	Debug int `mapstructure:"debug" json:"debug"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// defaultDaaRanges mirrors the mainnet default from spec §6.
func defaultDaaRanges() []DaaRange {
	return []DaaRange{
		{Start: 83441551, End: 83525600},
		{Start: 90090600, End: ^uint64(0)},
	}
}

// AppConfig holds the configuration loaded via Load.
var AppConfig Config

// Load reads the named config file (searched under ./config and
// ./cmd/config) and merges any environment-specific overlay and
// environment variable overrides. The resulting configuration is stored
// in AppConfig and returned.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.AddConfigPath("cmd/config")
	viper.SetConfigType("yaml")

	viper.SetDefault("startup.hysteresis", 3)
	viper.SetDefault("startup.issue_mode_daa_score", 110165000)
	viper.SetDefault("debug", 1)

	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}

	if err := normalize(&AppConfig); err != nil {
		return nil, err
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the KRC20_ENV environment variable
// to select an overlay file, defaulting to none.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("KRC20_ENV", ""))
}

// normalize clamps hysteresis to 0-1000 and fills in the default DAA
// ranges; a debug level outside 0-3 or an empty rocksdb.path is an error.
func normalize(c *Config) error {
	if c.Startup.Hysteresis < 0 {
		c.Startup.Hysteresis = 0
	}
	if c.Startup.Hysteresis > 1000 {
		c.Startup.Hysteresis = 1000
	}
	if len(c.Startup.DaaScoreRange) == 0 {
		c.Startup.DaaScoreRange = defaultDaaRanges()
	}
	if c.Debug < 0 || c.Debug > 3 {
		return fmt.Errorf("%w: debug must be 0-3, got %d", errInvalid, c.Debug)
	}
	if c.Rocksdb.Path == "" {
		return fmt.Errorf("%w: rocksdb.path is required", errInvalid)
	}
	return nil
}
