package models

import "time"

// OrderRequest — тело POST /orders/market у MT5-бриджа.
// SL/TP = 0 означает "без уровня", в JSON не уходят.
type OrderRequest struct {
	Symbol    string  `json:"symbol"`
	Side      Side    `json:"side"`
	Volume    float64 `json:"volume"`
	SL        float64 `json:"sl,omitempty"`
	TP        float64 `json:"tp,omitempty"`
	Comment   string  `json:"comment"`
	Deviation int     `json:"deviation"`
	Magic     int     `json:"magic"`
}

// OrderResult — ответ бэкенда на маркет-ордер.
type OrderResult struct {
	Retcode int     `json:"retcode"`
	Comment string  `json:"comment"`
	Order   int64   `json:"order"`
	Deal    int64   `json:"deal"`
	Price   float64 `json:"price"`
}

// RiskConfig — объём и дистанции SL/TP в пипсах для автоторговли.
type RiskConfig struct {
	Volume float64
	SLPips float64
	TPPips float64
}

type TradeStatus string

const (
	TradePending TradeStatus = "pending"
	TradeSent    TradeStatus = "sent"
	TradeError   TradeStatus = "error"
)

// TradeLogEntry — одна попытка отправки ордера в журнале сигналов.
// Создаётся pending до сетевого раундтрипа, потом мутируется в sent/error.
type TradeLogEntry struct {
	ID       string      `json:"id"`
	TS       time.Time   `json:"ts"`
	Strategy string      `json:"strategy"`
	Side     Side        `json:"side"`
	Price    float64     `json:"price"`
	Reason   string      `json:"reason"`
	Status   TradeStatus `json:"status"`
	Message  string      `json:"message,omitempty"`
}
