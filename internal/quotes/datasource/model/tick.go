package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick: 统一后的行情 tick（来自 ticker 频道的一条价格更新）
//
// Price 用 decimal 保存原始精度，画图时再转 float64
type Tick struct {
	Src       string // "coinbase"
	Type      string // 消息类型，例如 "ticker"
	ProductID string // "BASE-QUOTE"，例如 BTC-USD
	Base      string
	Quote     string

	Price    decimal.Decimal
	PriceStr string // 原始十进制字符串

	Sequence int64
	TradeID  int64
	Time     time.Time // 可能为零值（部分消息不带 time）
}

// Float 返回 float64 价格
func (t Tick) Float() float64 {
	return t.Price.InexactFloat64()
}
