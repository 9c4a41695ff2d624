// internal/config/config.go
package config

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
)

// Config carries everything the client needs to talk to a cluster: the RPC
// endpoint, the two program ids, the payer key and compliance defaults for
// freshly initialized KYC records.
type Config struct {
	RPCURL             string        `mapstructure:"rpc_url"`
	WebSocketURL       string        `mapstructure:"websocket_url"`
	AmmProgramID       string        `mapstructure:"amm_program_id"`
	HookProgramID      string        `mapstructure:"hook_program_id"`
	PayerKey           string        `mapstructure:"payer_key"`
	Commitment         string        `mapstructure:"commitment"`
	ConfirmationTime   time.Duration `mapstructure:"confirmation_time"`
	SkipPreflight      bool          `mapstructure:"skip_preflight"`
	DebugLogging       bool          `mapstructure:"debug_logging"`
	DefaultKycCountry  string        `mapstructure:"default_kyc_country"`
	DefaultKycState    string        `mapstructure:"default_kyc_state"`
	DefaultKycCity     string        `mapstructure:"default_kyc_city"`
	PriorityFeeMicroLp uint64        `mapstructure:"priority_fee_microlamports"`
}

const (
	DefaultConfirmationTime = 60 * time.Second
	DefaultCommitment       = "confirmed"
	DefaultKycCountry       = "US"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"commitment":          DefaultCommitment,
		"confirmation_time":   DefaultConfirmationTime,
		"default_kyc_country": DefaultKycCountry,
		"default_kyc_state":   "",
		"default_kyc_city":    "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if cfg.WebSocketURL != "" {
		if err := validateURL(cfg.WebSocketURL, "ws"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	if _, err := solana.PublicKeyFromBase58(cfg.AmmProgramID); err != nil {
		return errors.New("invalid amm_program_id")
	}
	if _, err := solana.PublicKeyFromBase58(cfg.HookProgramID); err != nil {
		return errors.New("invalid hook_program_id")
	}
	if cfg.PayerKey == "" {
		return errors.New("missing payer_key in configuration")
	}
	if cfg.ConfirmationTime <= 0 {
		return errors.New("invalid confirmation_time")
	}
	if len(cfg.DefaultKycCountry) != 2 {
		return errors.New("default_kyc_country must be a 2-letter ISO code")
	}
	return nil
}

func validateURL(rawURL, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	v.AutomaticEnv()
	v.SetEnvPrefix("DEXCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if env := v.GetString("RPC_URL"); env != "" {
		cfg.RPCURL = env
	}
	if env := v.GetString("PAYER_KEY"); env != "" {
		cfg.PayerKey = env
	}
}

// MustAmmProgramID returns the parsed AMM program id; call only after
// LoadConfig validated it.
func (c *Config) MustAmmProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.AmmProgramID)
}

func (c *Config) MustHookProgramID() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.HookProgramID)
}
