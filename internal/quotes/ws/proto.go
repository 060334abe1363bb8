package ws

type ClientMsg struct {
	Type   string   `json:"type"`   // "sub" | "unsub"
	Topics []string `json:"topics"` // topic list
}

type TickDTO struct {
	Product  string `json:"product"`
	Price    string `json:"price"`
	Sequence int64  `json:"sequence,omitempty"`
	TradeID  int64  `json:"tradeId,omitempty"`
	TimeMs   int64  `json:"timeMs,omitempty"`
}

type ServerMsg struct {
	Type  string  `json:"type"`  // "ticker"
	Topic string  `json:"topic"` // e.g. ticker:BTC-USD
	Tick  TickDTO `json:"tick"`
}
