package ws

import (
	"strings"

	"github.com/segmentio/encoding/json"

	"cbmonitor.com/internal/quotes/datasource/model"
)

const TopicPrefix = "ticker:"

// Topic: ticker:<PRODUCT>
func Topic(product string) string {
	return TopicPrefix + normalizeSymbol(product)
}

func normalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	// 保证用 "-" 分隔，别出现 "_" 或 "/"
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}

func ToDTO(t model.Tick) TickDTO {
	dto := TickDTO{
		Product:  t.ProductID,
		Price:    t.PriceStr,
		Sequence: t.Sequence,
		TradeID:  t.TradeID,
	}
	if !t.Time.IsZero() {
		dto.TimeMs = t.Time.UnixMilli()
	}
	return dto
}

// EncodeTick 算 topic + marshal
func EncodeTick(t model.Tick) (topic string, payload []byte, err error) {
	topic = Topic(t.ProductID)
	payload, err = json.Marshal(ServerMsg{Type: "ticker", Topic: topic, Tick: ToDTO(t)})
	if err != nil {
		return "", nil, err
	}
	return topic, payload, nil
}

// BridgeRaw 把已编码的 payload 直接 publish 到 hub
func BridgeRaw(h *Hub, topic string, payload []byte) {
	h.Publish(topic, payload)
}
