// Package config provides a reusable loader for the protocol's
// configuration files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/flammafex/scarcity/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a protocol node: its issuance,
// witness, gossip, validator, transport, and logging settings. It mirrors
// the structure of the YAML files under cmd/config.
type Config struct {
	Freebird struct {
		Issuers []struct {
			ID       string `mapstructure:"id" json:"id"`
			Endpoint string `mapstructure:"endpoint" json:"endpoint"`
			PubKey   string `mapstructure:"pubkey" json:"pubkey"` // hex, 33-byte compressed P-256
		} `mapstructure:"issuers" json:"issuers"`
		AllowFallbackBlinding bool `mapstructure:"allow_fallback_blinding" json:"allow_fallback_blinding"`
		HTTPTimeoutMS         int  `mapstructure:"http_timeout_ms" json:"http_timeout_ms"`
	} `mapstructure:"freebird" json:"freebird"`

	Witness struct {
		Gateways []struct {
			ID     string `mapstructure:"id" json:"id"`
			URL    string `mapstructure:"url" json:"url"`
			PubKey string `mapstructure:"pubkey" json:"pubkey"` // hex, 48-byte compressed BLS12-381 G1
		} `mapstructure:"gateways" json:"gateways"`
		Quorum         int `mapstructure:"quorum" json:"quorum"`
		PoWDifficulty  int `mapstructure:"pow_difficulty" json:"pow_difficulty"`
		SeenThreshold  int `mapstructure:"seen_threshold" json:"seen_threshold"`
		HTTPTimeoutMS  int `mapstructure:"http_timeout_ms" json:"http_timeout_ms"`
	} `mapstructure:"witness" json:"witness"`

	Gossip struct {
		PeerScoreThreshold     int32   `mapstructure:"peer_score_threshold" json:"peer_score_threshold"`
		MaxTimestampFutureSec  int64   `mapstructure:"max_timestamp_future_sec" json:"max_timestamp_future_sec"`
		MaxNullifierAgeMs      int64   `mapstructure:"max_nullifier_age_ms" json:"max_nullifier_age_ms"`
		RequireOwnershipProof  bool    `mapstructure:"require_ownership_proof" json:"require_ownership_proof"`
		RateLimitBurst         float64 `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`
		RateLimitRefillPerSec  float64 `mapstructure:"rate_limit_refill_per_sec" json:"rate_limit_refill_per_sec"`
		QuorumEstimate         uint32  `mapstructure:"quorum_estimate" json:"quorum_estimate"`
		SubnetWarnFraction     float64 `mapstructure:"subnet_warn_fraction" json:"subnet_warn_fraction"`
		SweepIntervalSec       int     `mapstructure:"sweep_interval_sec" json:"sweep_interval_sec"`
	} `mapstructure:"gossip" json:"gossip"`

	Validator struct {
		MaxTokenAgeMs  int64   `mapstructure:"max_token_age_ms" json:"max_token_age_ms"`
		WaitTimeMs     int64   `mapstructure:"wait_time_ms" json:"wait_time_ms"`
		MinConfidence  float64 `mapstructure:"min_confidence" json:"min_confidence"`
		WitnessFederationDepth int `mapstructure:"witness_federation_depth" json:"witness_federation_depth"`
	} `mapstructure:"validator" json:"validator"`

	Transport struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
		Topic          string   `mapstructure:"topic" json:"topic"`
	} `mapstructure:"transport" json:"transport"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up overrides from environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SCARCITY_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SCARCITY_ENV", ""))
}

// GossipValidatorWindowsAgree reports whether the validator's max token age
// does not exceed the gossip validity window; kept here rather than
// importing the gossip package directly so config has no dependency on
// protocol internals.
func (c *Config) GossipValidatorWindowsAgree() bool {
	return c.Validator.MaxTokenAgeMs <= c.Gossip.MaxNullifierAgeMs
}
