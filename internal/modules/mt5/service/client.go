package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"auto_trader/internal/modules/config"
)

// Client — REST/WS клиент MT5-бриджа: история свечей, маркет-ордера,
// живая подписка на бары.
type Client struct {
	http     *http.Client
	wsDialer *websocket.Dialer

	baseHTTP string
	baseWS   string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		baseHTTP: strings.TrimRight(cfg.Bridge.BaseHTTP, "/"),
		baseWS:   strings.TrimRight(cfg.Bridge.BaseWS, "/"),
	}
}
