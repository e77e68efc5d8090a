package service

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// Subscription — живой поток баров по одной паре (symbol, timeframe).
// Канал Events закрывается при смерти сокета или после Close();
// событие с Err означает аварийное завершение, закрытие без Err — штатное.
// Реконнектов нет: что делать с мёртвым стримом, решает владелец рана.
type Subscription struct {
	conn   *websocket.Conn
	events chan models.StreamEvent

	closeOnce sync.Once
	closed    chan struct{}
}

// OpenStream подключается к /stream/candles и начинает читать тики.
func (c *Client) OpenStream(ctx context.Context, symbol, timeframe string) (*Subscription, error) {
	u := fmt.Sprintf("%s/stream/candles?symbol=%s&timeframe=%s",
		c.baseWS, url.QueryEscape(symbol), helper.NormTF(timeframe))

	conn, _, err := c.wsDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "dial stream %s %s", symbol, timeframe)
	}
	logger.Info("[WS] connected %s %s", symbol, timeframe)

	s := &Subscription{
		conn:   conn,
		events: make(chan models.StreamEvent, 64),
		closed: make(chan struct{}),
	}

	go s.pingLoop()
	go s.readLoop(ctx, symbol, timeframe)

	return s, nil
}

func (s *Subscription) Events() <-chan models.StreamEvent { return s.events }

// Close рвёт сокет; read-loop завершится и закроет канал событий без Err.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = s.conn.Close()
	})
}

// keepalive каждые 20s, иначе прокси рвут простаивающее соединение
func (s *Subscription) pingLoop() {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-t.C:
			_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		}
	}
}

func (s *Subscription) readLoop(ctx context.Context, symbol, timeframe string) {
	// смерть read-loop гасит и keepalive, и сокет
	defer s.Close()
	defer close(s.events)

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
				// закрыли сами — не ошибка
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("[WS] %s %s closed by server", symbol, timeframe)
				return
			}
			s.emit(ctx, models.StreamEvent{Err: errors.Wrap(err, "stream read")})
			return
		}

		var frame struct {
			Type    string     `json:"type"`
			Bar     *candleDTO `json:"bar"`
			Message string     `json:"message"`
		}
		if err := sonic.Unmarshal(msg, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "tick":
			if frame.Bar == nil {
				continue
			}
			bar, err := frame.Bar.toCandle()
			if err != nil {
				logger.Error("[WS] %s %s bad tick: %v", symbol, timeframe, err)
				continue
			}
			s.emit(ctx, models.StreamEvent{Bar: &bar})
		case "error":
			s.emit(ctx, models.StreamEvent{Err: errors.Errorf("stream: %s", frame.Message)})
			return
		}
	}
}

func (s *Subscription) emit(ctx context.Context, ev models.StreamEvent) {
	select {
	case s.events <- ev:
	case <-s.closed:
	case <-ctx.Done():
	}
}
