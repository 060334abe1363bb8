package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"cbmonitor.com/internal/quotes/datasource/coinbase"
	pconf "cbmonitor.com/pkg/config"
	"cbmonitor.com/pkg/xerr"
)

// Service 配置文件名和环境变量前缀
const Service = "cbmonitor"

// Config 监控客户端配置，key 和命令行长参数一致
type Config struct {
	PlotsPerFig       int    `mapstructure:"plots-per-fig" json:"plotsPerFig"`
	AnimationInterval int    `mapstructure:"animation-interval" json:"animationInterval"` // 毫秒
	MaxLen            int    `mapstructure:"maxlen" json:"maxlen"`
	ProductList       string `mapstructure:"products" json:"products"`

	ShowSupportedProducts bool   `mapstructure:"show-supported-products" json:"showSupportedProducts"`
	SelectCurrency        string `mapstructure:"select-currency" json:"selectCurrency"`
	ShowQuoteCurrencies   bool   `mapstructure:"show-supported-quote-currencies" json:"showQuoteCurrencies"`

	ConfigFile string `mapstructure:"config" json:"config"`
	LogLevel   string `mapstructure:"log-level" json:"logLevel"`
	LogFile    string `mapstructure:"log-file" json:"logFile"`
	ServeAddr  string `mapstructure:"serve-addr" json:"serveAddr"`
	NatsURL    string `mapstructure:"nats-url" json:"natsUrl"`
	FeedURL    string `mapstructure:"feed-url" json:"feedUrl"`
	APIURL     string `mapstructure:"api-url" json:"apiUrl"`
}

// Flags 命令行参数定义
func Flags(output io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(Service, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.SortFlags = false

	fs.IntP("plots-per-fig", "f", 2, "maximum number of plots per figure")
	fs.IntP("animation-interval", "i", 1000, "delay between frames in milliseconds")
	fs.IntP("maxlen", "m", 1000, "maximum number of points kept per product")
	fs.StringP("products", "p", "BTC-USD", "comma separated products to monitor, e.g. BTC-USD,ETH-USD")
	fs.BoolP("show-supported-products", "s", false, "show supported products grouped by quote currency and exit")
	fs.StringP("select-currency", "c", "", "only show products quoted in this currency (needs --show-supported-products)")
	fs.BoolP("show-supported-quote-currencies", "q", false, "show supported quote currencies and exit")

	fs.String("config", "", "optional yaml config file, reloaded on change")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "also write json logs to this file")
	fs.String("serve-addr", "", "status server address serving /ws /metrics /snapshot, e.g. :8090")
	fs.String("nats-url", "", "mirror ticks through this nats server")
	fs.String("feed-url", coinbase.DefaultFeedURL, "coinbase websocket feed endpoint")
	fs.String("api-url", coinbase.DefaultAPIURL, "coinbase rest api endpoint")
	return fs
}

// Parse 解析参数 + 环境变量 + 配置文件，并做校验。
// -h/--help 原样返回 pflag.ErrHelp
func Parse(args []string, output io.Writer) (Config, *viper.Viper, error) {
	var c Config
	fs := Flags(output)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return c, nil, err
		}
		return c, nil, xerr.New(xerr.RequestParamsError, err.Error())
	}
	if fs.NArg() > 0 {
		return c, nil, xerr.New(xerr.RequestParamsError, fmt.Sprintf("unexpected arguments: %v", fs.Args()))
	}

	file, _ := fs.GetString("config")
	v, err := pconf.Load(Service, fs, file, &c)
	if err != nil {
		return c, nil, xerr.Wrap(xerr.RequestParamsError, "load config", err)
	}
	if err := c.Validate(); err != nil {
		return c, nil, err
	}
	return c, v, nil
}

// Validate 参数组合校验，全部在联网之前完成
func (c Config) Validate() error {
	if c.SelectCurrency != "" && !c.ShowSupportedProducts {
		return xerr.New(xerr.RequestParamsError, "--select-currency must be used with --show-supported-products")
	}
	if c.Listing() {
		return nil
	}
	if c.PlotsPerFig < 1 {
		return xerr.New(xerr.RequestParamsError, "--plots-per-fig must be at least 1")
	}
	if c.AnimationInterval < 1 {
		return xerr.New(xerr.RequestParamsError, "--animation-interval must be at least 1")
	}
	if c.MaxLen < 1 {
		return xerr.New(xerr.RequestParamsError, "--maxlen must be at least 1")
	}
	products := c.Products()
	if len(products) == 0 {
		return xerr.New(xerr.RequestParamsError, "--products must name at least one product")
	}
	seen := make(map[string]struct{}, len(products))
	for _, p := range products {
		if _, ok := seen[p]; ok {
			return xerr.New(xerr.RequestParamsError, "duplicate product: "+p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// Listing 是否只做一次性列表输出
func (c Config) Listing() bool {
	return c.ShowSupportedProducts || c.ShowQuoteCurrencies
}

// Products 逗号分隔的产品列表，去空格、去空项
func (c Config) Products() []string {
	parts := strings.Split(c.ProductList, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RestartRequired 返回只有重启才能生效的变化项
func (c Config) RestartRequired(next Config) []string {
	var keys []string
	if c.PlotsPerFig != next.PlotsPerFig {
		keys = append(keys, "plots-per-fig")
	}
	if c.MaxLen != next.MaxLen {
		keys = append(keys, "maxlen")
	}
	if c.ProductList != next.ProductList {
		keys = append(keys, "products")
	}
	if c.ServeAddr != next.ServeAddr {
		keys = append(keys, "serve-addr")
	}
	if c.NatsURL != next.NatsURL {
		keys = append(keys, "nats-url")
	}
	if c.FeedURL != next.FeedURL {
		keys = append(keys, "feed-url")
	}
	if c.LogFile != next.LogFile {
		keys = append(keys, "log-file")
	}
	return keys
}
