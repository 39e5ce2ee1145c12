package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/swap-router/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, uint64(143), cfg.Ethereum.ChainID)
	assert.Equal(t, 5*time.Second, cfg.Ethereum.CallTimeout)
	assert.Equal(t, uint32(100), cfg.Routing.ProtocolFeeBps)
	assert.Equal(t, uint32(50), cfg.Routing.DefaultSlippageBps)
	assert.Equal(t, uint32(200), cfg.Routing.SplitThresholdBps)
	assert.Equal(t, uint8(70), cfg.Routing.PrimarySplitPct)
	assert.Equal(t, []string{"7777"}, cfg.Classifier.HybridSuffixes)

	require.Len(t, cfg.Venues, 4)
	assert.Equal(t, "Uniswap V2", cfg.Venues[0].Name)
	assert.Equal(t, config.FamilyConstantProduct, cfg.Venues[0].Family)
	assert.Equal(t, uint8(2), cfg.Venues[2].ID)
	assert.Equal(t, []uint32{500, 3000, 10000, 100}, cfg.Venues[2].FeeTiers)
	assert.Equal(t, "1000000000000000", cfg.Venues[3].MinPoolLiquidityBig().String())

	require.Len(t, cfg.Tokens.Known, 3)
	assert.Equal(t, uint8(6), cfg.Tokens.Known[0].Decimals)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
routing:
  protocol_fee_bps: 30
  primary_split_pct: 60
venues:
  - id: 7
    name: Solo V2
    family: constant_product
    router: "0x4B2ab38DBF28D31D467aA8993f6c2585981D6804"
classifier:
  exclusions:
    - token: "0x754704Bc059F8C67012fEd69BC8A327a5aafb603"
      families: [hybrid]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint32(30), cfg.Routing.ProtocolFeeBps)
	assert.Equal(t, uint8(60), cfg.Routing.PrimarySplitPct)
	require.Len(t, cfg.Venues, 1)
	assert.Equal(t, "Solo V2", cfg.Venues[0].Name)
	require.Len(t, cfg.Classifier.Exclusions, 1)
	assert.Equal(t, []string{"hybrid"}, cfg.Classifier.Exclusions[0].Families)
}

func TestValidate(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"missing rpc url", func(c *config.Config) { c.Ethereum.HTTPURL = "" }},
		{"bad wrapped native", func(c *config.Config) { c.Tokens.WrappedNative = "0x123" }},
		{"fee above 100%", func(c *config.Config) { c.Routing.ProtocolFeeBps = 10001 }},
		{"split 100", func(c *config.Config) { c.Routing.PrimarySplitPct = 100 }},
		{"reserved venue id", func(c *config.Config) { c.Venues[0].ID = 99 }},
		{"duplicate venue id", func(c *config.Config) { c.Venues[1].ID = c.Venues[0].ID }},
		{"unknown family", func(c *config.Config) { c.Venues[0].Family = "orderbook" }},
		{"concentrated without tiers", func(c *config.Config) { c.Venues[2].FeeTiers = nil }},
		{"bad exclusion family", func(c *config.Config) {
			c.Classifier.Exclusions = []config.ExclusionRule{{Token: c.Tokens.WrappedNative, Families: []string{"x"}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, base().Validate())
}
