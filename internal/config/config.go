// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Venue families accepted in venues[].family.
const (
	FamilyConstantProduct = "constant_product"
	FamilyConcentrated    = "concentrated"
	FamilyHybrid          = "hybrid"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Ethereum   EthereumConfig   `mapstructure:"ethereum"`
	Tokens     TokensConfig     `mapstructure:"tokens"`
	Venues     []VenueConfig    `mapstructure:"venues"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Routing    RoutingConfig    `mapstructure:"routing"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Health     HealthConfig     `mapstructure:"health"`
	UI         UIConfig         `mapstructure:"ui"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds the JSON-RPC node settings.
type EthereumConfig struct {
	HTTPURL           string        `mapstructure:"http_url"`
	ChainID           uint64        `mapstructure:"chain_id"`
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxConnsPerHost   int           `mapstructure:"max_conns_per_host"`
}

// KnownToken pins metadata for a token so no decimals() call is needed.
type KnownToken struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Decimals uint8  `mapstructure:"decimals"`
}

// TokensConfig describes the native asset and its wrapped form.
type TokensConfig struct {
	NativeSentinel string       `mapstructure:"native_sentinel"`
	WrappedNative  string       `mapstructure:"wrapped_native"`
	NativeSymbol   string       `mapstructure:"native_symbol"`
	WrappedSymbol  string       `mapstructure:"wrapped_symbol"`
	NativeDecimals uint8        `mapstructure:"native_decimals"`
	Known          []KnownToken `mapstructure:"known"`
}

// NativeSentinelHex returns the native sentinel as common.Address.
func (c *TokensConfig) NativeSentinelHex() common.Address {
	return common.HexToAddress(c.NativeSentinel)
}

// WrappedNativeHex returns the wrapped native token as common.Address.
func (c *TokensConfig) WrappedNativeHex() common.Address {
	return common.HexToAddress(c.WrappedNative)
}

// VenueConfig declares one venue. Registration order is the tie-break order.
type VenueConfig struct {
	ID       uint8    `mapstructure:"id"`
	Name     string   `mapstructure:"name"`
	Family   string   `mapstructure:"family"`
	Disabled bool     `mapstructure:"disabled"`
	Router   string   `mapstructure:"router"`
	Quoter   string   `mapstructure:"quoter"`
	Factory  string   `mapstructure:"factory"`
	Lens     string   `mapstructure:"lens"`
	FeeTiers []uint32 `mapstructure:"fee_tiers"`
	// ListingFactory is the hybrid venue's own pool factory, probed when
	// inspecting a graduated token.
	ListingFactory string `mapstructure:"listing_factory"`
	// MinPoolLiquidity is a base-10 integer; pools at or below it are skipped.
	MinPoolLiquidity string `mapstructure:"min_pool_liquidity"`
}

// RouterHex returns the router address as common.Address.
func (c *VenueConfig) RouterHex() common.Address { return common.HexToAddress(c.Router) }

// QuoterHex returns the quoter address as common.Address.
func (c *VenueConfig) QuoterHex() common.Address { return common.HexToAddress(c.Quoter) }

// FactoryHex returns the factory address as common.Address.
func (c *VenueConfig) FactoryHex() common.Address { return common.HexToAddress(c.Factory) }

// LensHex returns the lens address as common.Address.
func (c *VenueConfig) LensHex() common.Address { return common.HexToAddress(c.Lens) }

// ListingFactoryHex returns the listing factory address as common.Address.
func (c *VenueConfig) ListingFactoryHex() common.Address {
	return common.HexToAddress(c.ListingFactory)
}

// MinPoolLiquidityBig parses MinPoolLiquidity, zero when unset.
func (c *VenueConfig) MinPoolLiquidityBig() *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(c.MinPoolLiquidity), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// ExclusionRule removes families for one token.
type ExclusionRule struct {
	Token    string   `mapstructure:"token"`
	Families []string `mapstructure:"families"`
}

// ClassifierConfig holds the static token eligibility rules.
type ClassifierConfig struct {
	HybridSuffixes []string        `mapstructure:"hybrid_suffixes"`
	Exclusions     []ExclusionRule `mapstructure:"exclusions"`
}

// RoutingConfig holds fee, split and timeout parameters.
type RoutingConfig struct {
	ProtocolFeeBps     uint32        `mapstructure:"protocol_fee_bps"`
	DefaultSlippageBps uint32        `mapstructure:"default_slippage_bps"`
	SplitThresholdBps  uint32        `mapstructure:"split_threshold_bps"`
	PrimarySplitPct    uint8         `mapstructure:"primary_split_pct"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	VenueCallTimeout   time.Duration `mapstructure:"venue_call_timeout"`
	MetadataCacheTTL   time.Duration `mapstructure:"metadata_cache_ttl"`
	MetadataCacheSize  int           `mapstructure:"metadata_cache_size"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig controls the health endpoint server.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// UIConfig controls the quote watch view.
type UIConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "SWAP_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SWAP_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SWAP_LOG_LEVEL", "LOG_LEVEL")

	v.BindEnv("ethereum.http_url", "SWAP_RPC_URL", "RPC_URL")
	v.BindEnv("ethereum.chain_id", "SWAP_CHAIN_ID", "CHAIN_ID")
	v.BindEnv("ethereum.requests_per_minute", "SWAP_RPC_RPM")

	v.BindEnv("tokens.wrapped_native", "SWAP_WRAPPED_NATIVE")

	v.BindEnv("routing.protocol_fee_bps", "SWAP_PROTOCOL_FEE_BPS")
	v.BindEnv("routing.default_slippage_bps", "SWAP_DEFAULT_SLIPPAGE_BPS")

	v.BindEnv("telemetry.enabled", "SWAP_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SWAP_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SWAP_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "SWAP_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "swap-router")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Monad mainnet
	v.SetDefault("ethereum.http_url", "https://rpc3.monad.xyz/")
	v.SetDefault("ethereum.chain_id", 143)
	v.SetDefault("ethereum.call_timeout", "5s")
	v.SetDefault("ethereum.requests_per_minute", 6000)
	v.SetDefault("ethereum.max_conns_per_host", 32)

	v.SetDefault("tokens.native_sentinel", "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
	v.SetDefault("tokens.wrapped_native", "0x3bd359C1119dA7Da1D913D1C4D2B7c461115433A")
	v.SetDefault("tokens.native_symbol", "MON")
	v.SetDefault("tokens.wrapped_symbol", "WMON")
	v.SetDefault("tokens.native_decimals", 18)
	v.SetDefault("tokens.known", []map[string]any{
		{"address": "0x754704Bc059F8C67012fEd69BC8A327a5aafb603", "symbol": "USDC", "decimals": 6},
		{"address": "0x98cba48cfb0573e1635ae00d8b3b43b4fad844d6", "symbol": "USDT", "decimals": 6},
		{"address": "0xEE8c0E9f1BFFb4Eb878d8f15f368A02a35481242", "symbol": "WETH", "decimals": 18},
	})

	v.SetDefault("venues", DefaultVenues())

	v.SetDefault("classifier.hybrid_suffixes", []string{"7777"})

	v.SetDefault("routing.protocol_fee_bps", 100)
	v.SetDefault("routing.default_slippage_bps", 50)
	v.SetDefault("routing.split_threshold_bps", 200)
	v.SetDefault("routing.primary_split_pct", 70)
	v.SetDefault("routing.request_timeout", "10s")
	v.SetDefault("routing.venue_call_timeout", "5s")
	v.SetDefault("routing.metadata_cache_ttl", "30s")
	v.SetDefault("routing.metadata_cache_size", 4096)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swap-router")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.enabled", true)
	v.SetDefault("health.port", 8081)

	v.SetDefault("ui.refresh_interval", "5s")
}

// DefaultVenues is the Monad mainnet venue registry.
func DefaultVenues() []map[string]any {
	tiers := []uint32{500, 3000, 10000, 100}
	return []map[string]any{
		{"id": 0, "name": "Uniswap V2", "family": FamilyConstantProduct,
			"router": "0x4B2ab38DBF28D31D467aA8993f6c2585981D6804"},
		{"id": 1, "name": "PancakeSwap V2", "family": FamilyConstantProduct,
			"router": "0xB1Bc24c34e88f7D43D5923034E3a14B24DaACfF9"},
		{"id": 2, "name": "Uniswap V3", "family": FamilyConcentrated,
			"quoter":    "0x661E93cca42AfacB172121EF892830cA3b70F08d",
			"factory":   "0x204faca1764b154221e35c0d20abb3c525710498",
			"fee_tiers": tiers},
		{"id": 3, "name": "Nad.Fun", "family": FamilyHybrid,
			"lens":               "0x7e78A8DE94f21804F7a17F4E8BF9EC2c872187ea",
			"listing_factory":    "0x6B5F564339DbAD6b780249827f2198a841FEB7F3",
			"factory":            "0x204faca1764b154221e35c0d20abb3c525710498",
			"quoter":             "0x661E93cca42AfacB172121EF892830cA3b70F08d",
			"fee_tiers":          tiers,
			"min_pool_liquidity": "1000000000000000"},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if !common.IsHexAddress(c.Tokens.NativeSentinel) {
		return fmt.Errorf("invalid tokens.native_sentinel: %s", c.Tokens.NativeSentinel)
	}
	if !common.IsHexAddress(c.Tokens.WrappedNative) {
		return fmt.Errorf("invalid tokens.wrapped_native: %s", c.Tokens.WrappedNative)
	}
	for _, k := range c.Tokens.Known {
		if !common.IsHexAddress(k.Address) {
			return fmt.Errorf("invalid tokens.known address: %s", k.Address)
		}
	}
	if c.Routing.ProtocolFeeBps > 10000 {
		return fmt.Errorf("routing.protocol_fee_bps must be <= 10000, got %d", c.Routing.ProtocolFeeBps)
	}
	if c.Routing.DefaultSlippageBps > 10000 {
		return fmt.Errorf("routing.default_slippage_bps must be <= 10000, got %d", c.Routing.DefaultSlippageBps)
	}
	if c.Routing.PrimarySplitPct == 0 || c.Routing.PrimarySplitPct >= 100 {
		return fmt.Errorf("routing.primary_split_pct must be in (0, 100), got %d", c.Routing.PrimarySplitPct)
	}

	seen := make(map[uint8]bool, len(c.Venues))
	for i := range c.Venues {
		if err := c.Venues[i].validate(); err != nil {
			return fmt.Errorf("venues[%d]: %w", i, err)
		}
		if seen[c.Venues[i].ID] {
			return fmt.Errorf("venues[%d]: duplicate id %d", i, c.Venues[i].ID)
		}
		seen[c.Venues[i].ID] = true
	}

	for _, r := range c.Classifier.Exclusions {
		if !common.IsHexAddress(r.Token) {
			return fmt.Errorf("invalid classifier.exclusions token: %s", r.Token)
		}
		for _, f := range r.Families {
			if !isFamily(f) {
				return fmt.Errorf("classifier.exclusions: unknown family %q", f)
			}
		}
	}
	return nil
}

func (c *VenueConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.ID == 99 {
		return fmt.Errorf("id 99 is reserved for wrap/unwrap")
	}

	requireAddr := func(field, addr string) error {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s: invalid %s address %q", c.Name, field, addr)
		}
		return nil
	}

	switch c.Family {
	case FamilyConstantProduct:
		return requireAddr("router", c.Router)
	case FamilyConcentrated:
		if len(c.FeeTiers) == 0 {
			return fmt.Errorf("%s: fee_tiers required", c.Name)
		}
		return requireAddr("quoter", c.Quoter)
	case FamilyHybrid:
		if err := requireAddr("lens", c.Lens); err != nil {
			return err
		}
		if c.ListingFactory != "" {
			if err := requireAddr("listing_factory", c.ListingFactory); err != nil {
				return err
			}
		}
		if c.Factory != "" {
			if err := requireAddr("factory", c.Factory); err != nil {
				return err
			}
			return requireAddr("quoter", c.Quoter)
		}
		return nil
	default:
		return fmt.Errorf("%s: unknown family %q", c.Name, c.Family)
	}
}

func isFamily(f string) bool {
	return f == FamilyConstantProduct || f == FamilyConcentrated || f == FamilyHybrid
}
