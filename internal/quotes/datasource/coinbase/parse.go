package coinbase

import (
	"strings"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"

	"cbmonitor.com/internal/quotes/datasource/model"
)

// Exchange feed 的 ticker 消息是扁平结构：
// {"type":"ticker","sequence":1,"product_id":"BTC-USD","price":"16800.12",...,"time":"...","trade_id":1}
// 只保留用得到的字段
type cbTickerMsg struct {
	Type      string `json:"type"`
	Sequence  int64  `json:"sequence"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"`
	TradeID   int64  `json:"trade_id"`
}

var msgPool = sync.Pool{
	New: func() any {
		return &cbTickerMsg{}
	},
}

// ParseTicker 解析一帧 feed 消息。
// price/type/product_id 任一缺失（或为空）、非 JSON、价格不是合法十进制时返回 ok=false，
// 调用方直接丢弃即可（subscriptions/heartbeat 等消息都走这条路）。
func ParseTicker(b []byte) (model.Tick, bool) {
	msg := msgPool.Get().(*cbTickerMsg)
	*msg = cbTickerMsg{} // 清空，避免上一条的字段残留
	defer msgPool.Put(msg)

	if err := json.Unmarshal(b, msg); err != nil {
		return model.Tick{}, false
	}
	if msg.Price == "" || msg.Type == "" || msg.ProductID == "" {
		return model.Tick{}, false
	}
	px, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return model.Tick{}, false
	}

	base, quote, _ := splitByDash(msg.ProductID)
	t := model.Tick{
		Src:       "coinbase",
		Type:      msg.Type,
		ProductID: msg.ProductID,
		Base:      base,
		Quote:     quote,
		Price:     px,
		PriceStr:  msg.Price,
		Sequence:  msg.Sequence,
		TradeID:   msg.TradeID,
	}
	if msg.Time != "" {
		if ts, err := time.Parse(time.RFC3339Nano, msg.Time); err == nil {
			t.Time = ts.UTC()
		}
	}
	return t, true
}

func splitByDash(productID string) (base, quote string, ok bool) {
	parts := strings.Split(productID, "-")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
