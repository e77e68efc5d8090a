package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_trader/internal/models"
	"auto_trader/internal/modules/config"
)

func testClient(srv *httptest.Server) *Client {
	cfg := &config.Config{}
	cfg.Bridge.BaseHTTP = srv.URL
	cfg.Bridge.BaseWS = "ws" + strings.TrimPrefix(srv.URL, "http")
	return NewClient(cfg)
}

func TestGetCandles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/candles/EURUSD", r.URL.Path)
		assert.Equal(t, "M1", r.URL.Query().Get("timeframe"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"symbol": "EURUSD",
			"timeframe": "M1",
			"candles": [
				{"time": 1741597200, "open": 1.1, "high": 1.101, "low": 1.099, "close": 1.1005, "volume": 120},
				{"time": 1741597260, "open": 0, "high": 0, "low": 0, "close": 0, "volume": 0},
				{"time": "2025-03-10T09:02:00Z", "open": 1.1005, "high": 1.102, "low": 1.1, "close": 1.1015, "volume": 90}
			]
		}`))
	}))
	defer srv.Close()

	c := testClient(srv)
	candles, err := c.GetCandles(context.Background(), "EURUSD", "1m", 3)
	require.NoError(t, err)

	// битая свеча с нулевыми ценами выброшена
	require.Len(t, candles, 2)
	assert.Equal(t, time.Unix(1741597200, 0).UTC(), candles[0].Time)
	assert.Equal(t, 1.1005, candles[0].Close)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 2, 0, 0, time.UTC), candles[1].Time)
}

func TestGetCandlesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "symbol not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(srv).GetCandles(context.Background(), "NOPE", "M1", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestPlaceMarket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/market", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "EURUSD", body["symbol"])
		assert.Equal(t, "buy", body["side"])
		assert.Equal(t, 0.1, body["volume"])
		assert.Equal(t, "auto:ema_cross", body["comment"])
		assert.Equal(t, float64(9001), body["magic"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true, "result": {"retcode": 10009, "comment": "done", "order": 5, "deal": 6, "price": 1.10501}}`))
	}))
	defer srv.Close()

	res, err := testClient(srv).PlaceMarket(context.Background(), models.OrderRequest{
		Symbol:    "EURUSD",
		Side:      models.SideBuy,
		Volume:    0.1,
		SL:        1.10200,
		TP:        1.11100,
		Comment:   "auto:ema_cross",
		Deviation: 20,
		Magic:     9001,
	})
	require.NoError(t, err)
	assert.Equal(t, 10009, res.Retcode)
	assert.Equal(t, 1.10501, res.Price)
	assert.Equal(t, int64(5), res.Order)
}

func TestPlaceMarketRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": {"message": "order_send failed", "result": {"retcode": 10019, "comment": "No money"}}}`))
	}))
	defer srv.Close()

	res, err := testClient(srv).PlaceMarket(context.Background(), models.OrderRequest{
		Symbol: "EURUSD",
		Side:   models.SideSell,
		Volume: 500,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_send failed")
	// результат брокера доступен и при отказе
	assert.Equal(t, 10019, res.Retcode)
}

func TestPlaceMarketValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not leave the client")
	}))
	defer srv.Close()
	c := testClient(srv)

	_, err := c.PlaceMarket(context.Background(), models.OrderRequest{Symbol: "EURUSD", Side: models.SideBuy})
	assert.Error(t, err)

	_, err = c.PlaceMarket(context.Background(), models.OrderRequest{Symbol: "EURUSD", Side: "hold", Volume: 0.1})
	assert.Error(t, err)
}

func wsEcho(t *testing.T, frames []string, closeCode int) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stream/candles", r.URL.Path)
		assert.Equal(t, "EURUSD", r.URL.Query().Get("symbol"))

		conn, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for _, f := range frames {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(f)))
		}
		if closeCode != 0 {
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(closeCode, ""),
				time.Now().Add(time.Second),
			)
		}
		// ждём, пока клиент дочитает
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func TestOpenStreamTicksAndServerClose(t *testing.T) {
	srv := wsEcho(t, []string{
		`{"type": "tick", "bar": {"time": 1741597200, "open": 1.1, "high": 1.101, "low": 1.099, "close": 1.1005, "volume": 10}}`,
		`{"type": "tick", "bar": {"time": 1741597260, "open": 1.1005, "high": 1.102, "low": 1.1, "close": 1.1015, "volume": 12}}`,
	}, websocket.CloseNormalClosure)
	defer srv.Close()

	sub, err := testClient(srv).OpenStream(context.Background(), "EURUSD", "M1")
	require.NoError(t, err)
	defer sub.Close()

	ev := <-sub.Events()
	require.NoError(t, ev.Err)
	require.NotNil(t, ev.Bar)
	assert.Equal(t, 1.1005, ev.Bar.Close)

	ev = <-sub.Events()
	require.NotNil(t, ev.Bar)
	assert.Equal(t, 1.1015, ev.Bar.Close)

	// штатное закрытие сервером: канал закрывается без события с Err
	_, open := <-sub.Events()
	assert.False(t, open)

	// смерть стрима сама гасит keepalive и сокет, без внешнего Close
	select {
	case <-sub.closed:
	case <-time.After(time.Second):
		t.Fatal("subscription not torn down after server close")
	}
}

func TestOpenStreamErrorFrame(t *testing.T) {
	srv := wsEcho(t, []string{
		`{"type": "error", "message": "symbol disabled"}`,
	}, 0)
	defer srv.Close()

	sub, err := testClient(srv).OpenStream(context.Background(), "EURUSD", "M1")
	require.NoError(t, err)
	defer sub.Close()

	ev := <-sub.Events()
	require.Error(t, ev.Err)
	assert.Contains(t, ev.Err.Error(), "symbol disabled")

	_, open := <-sub.Events()
	assert.False(t, open)

	select {
	case <-sub.closed:
	case <-time.After(time.Second):
		t.Fatal("subscription not torn down after stream error")
	}
}

func TestOpenStreamClientClose(t *testing.T) {
	srv := wsEcho(t, nil, 0)
	defer srv.Close()

	sub, err := testClient(srv).OpenStream(context.Background(), "EURUSD", "M1")
	require.NoError(t, err)

	sub.Close()

	select {
	case ev, open := <-sub.Events():
		if open {
			assert.NoError(t, ev.Err, "self close must not produce an error event")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel did not close")
	}
}

func TestParseCandleTime(t *testing.T) {
	ts, err := parseCandleTime([]byte(`1741597200`))
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1741597200, 0).UTC(), ts)

	ts, err = parseCandleTime([]byte(`"2025-03-10T09:00:00+03:00"`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC), ts)

	// старый бридж шлёт время без зоны
	ts, err = parseCandleTime([]byte(`"2025-03-10T09:00:00"`))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), ts)

	_, err = parseCandleTime([]byte(`null`))
	assert.Error(t, err)
}
