package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cbmonitor.com/internal/quotes/datasource/coinbase"
	"cbmonitor.com/pkg/xerr"
)

func parse(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	c, _, err := Parse(args, io.Discard)
	return c, err
}

func TestParse_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, 2, c.PlotsPerFig)
	assert.Equal(t, 1000, c.AnimationInterval)
	assert.Equal(t, 1000, c.MaxLen)
	assert.Equal(t, []string{"BTC-USD"}, c.Products())
	assert.Equal(t, coinbase.DefaultFeedURL, c.FeedURL)
	assert.Equal(t, coinbase.DefaultAPIURL, c.APIURL)
	assert.Equal(t, "info", c.LogLevel)
	assert.False(t, c.Listing())
}

func TestParse_ShortFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := parse(t, "-f", "3", "-i", "250", "-m", "50", "-p", "BTC-USD, ETH-USD ,")
	require.NoError(t, err)
	assert.Equal(t, 3, c.PlotsPerFig)
	assert.Equal(t, 250, c.AnimationInterval)
	assert.Equal(t, 50, c.MaxLen)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD"}, c.Products())
}

func TestParse_SelectCurrencyNeedsShowProducts(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := parse(t, "--select-currency", "USD")
	require.Error(t, err)
	assert.Equal(t, "--select-currency must be used with --show-supported-products", xerr.Message(err))
	assert.Equal(t, xerr.ExitUsage, xerr.ExitCode(err))

	c, err := parse(t, "-s", "-c", "USD")
	require.NoError(t, err)
	assert.True(t, c.Listing())
	assert.Equal(t, "USD", c.SelectCurrency)
}

func TestParse_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	cases := map[string][]string{
		"plots":     {"-f", "0"},
		"interval":  {"-i", "0"},
		"maxlen":    {"-m", "0"},
		"empty":     {"-p", " , "},
		"duplicate": {"-p", "BTC-USD,BTC-USD"},
		"unknown":   {"--nope"},
		"extra arg": {"BTC-USD"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parse(t, args...)
			require.Error(t, err)
			assert.Equal(t, xerr.ExitUsage, xerr.ExitCode(err))
		})
	}
}

func TestParse_Help(t *testing.T) {
	_, err := parse(t, "-h")
	assert.ErrorIs(t, err, pflag.ErrHelp)
}

func TestParse_ConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "monitor.yaml")
	require.NoError(t, os.WriteFile(file, []byte("maxlen: 20\nproducts: ETH-USD\nanimation-interval: 500\n"), 0644))
	t.Setenv("CBMONITOR_PLOTS_PER_FIG", "4")

	c, err := parse(t, "--config", file, "-i", "100")
	require.NoError(t, err)
	assert.Equal(t, 20, c.MaxLen)
	assert.Equal(t, []string{"ETH-USD"}, c.Products())
	assert.Equal(t, 4, c.PlotsPerFig)
	assert.Equal(t, 100, c.AnimationInterval)
}

func TestRestartRequired(t *testing.T) {
	a := Config{PlotsPerFig: 2, MaxLen: 10, ProductList: "BTC-USD", AnimationInterval: 1000, LogLevel: "info"}
	b := a
	b.AnimationInterval = 10
	b.LogLevel = "debug"
	assert.Empty(t, a.RestartRequired(b))

	b.MaxLen = 11
	b.ProductList = "ETH-USD"
	assert.Equal(t, []string{"maxlen", "products"}, a.RestartRequired(b))
}
