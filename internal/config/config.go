package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rewardcoins/coinledger/internal/domain"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	// Session tokens issued after sign-in.
	SessionSecret string
	SessionTTL    time.Duration

	// External identity provider. When ProviderSecret is empty the provider
	// is treated as not enabled and sign-in falls back to the demo identity.
	ProviderSecret   string
	ProviderIssuer   string
	ProviderAudience string

	// Ad bridge. Empty URL means the bridge is absent and the ad step
	// degrades to an immediate success.
	AdBridgeURL   string
	AdPlacementID string

	// Per-client request throttling.
	RateLimitPerMinute float64
	RateLimitBurst     int

	Economy Economy
}

// Economy holds the product-tunable constants of the coin economy. The
// defaults match the shipped app; ECONOMY_CONFIG may point at a YAML file
// overriding any of them.
type Economy struct {
	CheckinReward  int64                 `yaml:"checkin_reward"`
	AdReward       int64                 `yaml:"ad_reward"`
	WheelSegments  []int64               `yaml:"wheel_segments"`
	MaxSpinsPerDay int                   `yaml:"max_spins_per_day"`
	Timezone       string                `yaml:"timezone"`
	RedeemOptions  []domain.RedeemOption `yaml:"redeem_options"`
}

func DefaultEconomy() Economy {
	return Economy{
		CheckinReward:  25,
		AdReward:       5,
		WheelSegments:  []int64{2, 3, 4, 5, 6, 7, 8},
		MaxSpinsPerDay: 20,
		Timezone:       "Local",
		RedeemOptions: []domain.RedeemOption{
			{ID: "play100", Title: "₹10 Google Play Code", Value: "₹10", Coins: 1000},
			{ID: "play500", Title: "₹50 Google Play Code", Value: "₹50", Coins: 5000, Popular: true},
		},
	}
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	cfg := &Config{
		DBSource:           dbSource,
		Port:               port,
		Env:                env,
		SessionSecret:      sessionSecret,
		SessionTTL:         24 * time.Hour,
		ProviderSecret:     os.Getenv("IDP_SECRET"),
		ProviderIssuer:     os.Getenv("IDP_ISSUER"),
		ProviderAudience:   os.Getenv("IDP_AUDIENCE"),
		AdBridgeURL:        os.Getenv("AD_BRIDGE_URL"),
		AdPlacementID:      os.Getenv("AD_PLACEMENT_ID"),
		RateLimitPerMinute: 300,
		RateLimitBurst:     30,
		Economy:            DefaultEconomy(),
	}

	if ttl := os.Getenv("SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	if rpm := os.Getenv("RATE_LIMIT_PER_MINUTE"); rpm != "" {
		f, err := strconv.ParseFloat(rpm, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.RateLimitPerMinute = f
	}

	if path := os.Getenv("ECONOMY_CONFIG"); path != "" {
		eco, err := LoadEconomy(path)
		if err != nil {
			return nil, err
		}
		cfg.Economy = eco
	}
	if err := cfg.Economy.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEconomy reads a YAML economy file over the defaults, so a partial
// file only overrides the fields it names.
func LoadEconomy(path string) (Economy, error) {
	eco := DefaultEconomy()
	data, err := os.ReadFile(path)
	if err != nil {
		return eco, fmt.Errorf("reading economy config: %w", err)
	}
	if err := yaml.Unmarshal(data, &eco); err != nil {
		return eco, fmt.Errorf("parsing economy config: %w", err)
	}
	return eco, nil
}

func (e Economy) Validate() error {
	if e.CheckinReward <= 0 {
		return fmt.Errorf("economy: checkin_reward must be positive")
	}
	if e.AdReward <= 0 {
		return fmt.Errorf("economy: ad_reward must be positive")
	}
	if len(e.WheelSegments) == 0 {
		return fmt.Errorf("economy: wheel_segments must not be empty")
	}
	for _, s := range e.WheelSegments {
		if s <= 0 {
			return fmt.Errorf("economy: wheel segment payouts must be positive")
		}
	}
	if e.MaxSpinsPerDay <= 0 {
		return fmt.Errorf("economy: max_spins_per_day must be positive")
	}
	if len(e.RedeemOptions) == 0 {
		return fmt.Errorf("economy: redeem_options must not be empty")
	}
	seen := make(map[string]bool, len(e.RedeemOptions))
	for _, opt := range e.RedeemOptions {
		if opt.ID == "" || opt.Title == "" {
			return fmt.Errorf("economy: redeem options need an id and a title")
		}
		if opt.Coins <= 0 {
			return fmt.Errorf("economy: redeem option %s must cost a positive amount", opt.ID)
		}
		if seen[opt.ID] {
			return fmt.Errorf("economy: duplicate redeem option id %s", opt.ID)
		}
		seen[opt.ID] = true
	}
	if _, err := e.Location(); err != nil {
		return fmt.Errorf("economy: invalid timezone %q: %w", e.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone used for daily resets.
func (e Economy) Location() (*time.Location, error) {
	if e.Timezone == "" || e.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(e.Timezone)
}
