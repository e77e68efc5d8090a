package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_trader/internal/models"
	"auto_trader/internal/modules/config"
)

type fakeBackend struct {
	mu      sync.Mutex
	orders  []models.OrderRequest
	result  models.OrderResult
	err     error
	release chan struct{} // если задан, PlaceMarket ждёт сигнала
}

func (f *fakeBackend) PlaceMarket(_ context.Context, order models.OrderRequest) (models.OrderResult, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	f.orders = append(f.orders, order)
	f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeBackend) placed() []models.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.OrderRequest, len(f.orders))
	copy(out, f.orders)
	return out
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Trading.Deviation = 20
	cfg.Trading.Magic = 9001
	cfg.Engine.BufferCap = 800
	cfg.Engine.HistoryLimit = 60
	return cfg
}

func TestDispatchBuildsOrderFromPips(t *testing.T) {
	backend := &fakeBackend{
		result:  models.OrderResult{Retcode: 10009, Price: 1.10501},
		release: make(chan struct{}),
	}
	log := NewSignalLog(10)
	d := NewDispatcher(testConfig(), backend, log, nil)

	risk := models.RiskConfig{Volume: 0.1, SLPips: 30, TPPips: 60}
	sig := models.Signal{Side: models.SideBuy, Reason: "EMA fast crossed above slow"}
	id := d.Dispatch(context.Background(), "EURUSD", "ema_cross", sig, 1.10500, risk)

	// запись появляется до раундтрипа и висит в pending
	entries := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, models.TradePending, entries[0].Status)
	assert.Equal(t, "ema_cross", entries[0].Strategy)
	assert.Equal(t, 1.10500, entries[0].Price)

	close(backend.release)
	require.Eventually(t, func() bool {
		return log.Entries()[0].Status == models.TradeSent
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, "retcode 10009 · price 1.10501", log.Entries()[0].Message)

	orders := backend.placed()
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, "EURUSD", o.Symbol)
	assert.Equal(t, models.SideBuy, o.Side)
	assert.Equal(t, 0.1, o.Volume)
	assert.InDelta(t, 1.10200, o.SL, 1e-9)
	assert.InDelta(t, 1.11100, o.TP, 1e-9)
	assert.Equal(t, "auto:ema_cross", o.Comment)
	assert.Equal(t, 20, o.Deviation)
	assert.Equal(t, 9001, o.Magic)
}

func TestDispatchSellMirrorsStops(t *testing.T) {
	backend := &fakeBackend{result: models.OrderResult{Retcode: 10009, Price: 1.10499}}
	log := NewSignalLog(10)
	d := NewDispatcher(testConfig(), backend, log, nil)

	risk := models.RiskConfig{Volume: 0.2, SLPips: 30, TPPips: 60}
	d.Dispatch(context.Background(), "EURUSD", "range_fade", models.Signal{Side: models.SideSell, Reason: "Z-score 2.20"}, 1.10500, risk)

	require.Eventually(t, func() bool { return len(backend.placed()) == 1 }, time.Second, 10*time.Millisecond)
	o := backend.placed()[0]
	assert.InDelta(t, 1.10800, o.SL, 1e-9)
	assert.InDelta(t, 1.09900, o.TP, 1e-9)
}

func TestDispatchZeroPipsMeansNoStops(t *testing.T) {
	backend := &fakeBackend{result: models.OrderResult{Retcode: 10009}}
	log := NewSignalLog(10)
	d := NewDispatcher(testConfig(), backend, log, nil)

	risk := models.RiskConfig{Volume: 0.1}
	d.Dispatch(context.Background(), "EURUSD", "oco_breakout", models.Signal{Side: models.SideBuy}, 1.10500, risk)

	require.Eventually(t, func() bool { return len(backend.placed()) == 1 }, time.Second, 10*time.Millisecond)
	o := backend.placed()[0]
	assert.Zero(t, o.SL)
	assert.Zero(t, o.TP)
}

func TestDispatchEmptyResultFallsBackToSent(t *testing.T) {
	// бэкенд без retcode и цены: в журнале просто "sent"
	backend := &fakeBackend{}
	log := NewSignalLog(10)
	d := NewDispatcher(testConfig(), backend, log, nil)

	d.Dispatch(context.Background(), "EURUSD", "ema_cross", models.Signal{Side: models.SideBuy}, 1.10500, models.RiskConfig{Volume: 0.1})

	require.Eventually(t, func() bool {
		return log.Entries()[0].Status == models.TradeSent
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "sent", log.Entries()[0].Message)
}

func TestDispatchBackendErrorGoesToLog(t *testing.T) {
	backend := &fakeBackend{err: errors.New("bridge: 400 volume too small")}
	log := NewSignalLog(10)
	d := NewDispatcher(testConfig(), backend, log, nil)

	d.Dispatch(context.Background(), "EURUSD", "ema_cross", models.Signal{Side: models.SideBuy}, 1.10500, models.RiskConfig{Volume: 0.1})

	require.Eventually(t, func() bool {
		return log.Entries()[0].Status == models.TradeError
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, log.Entries()[0].Message, "volume too small")
}

func TestDispatchMarksPaperBackend(t *testing.T) {
	paper := NewPaperBroker(10_000, 0)
	log := NewSignalLog(10)
	d := NewDispatcher(testConfig(), paper, log, nil)

	// бумажный брокер получает цену отметки из самого диспатча
	d.Dispatch(context.Background(), "EURUSD", "ema_cross", models.Signal{Side: models.SideBuy}, 1.10500, models.RiskConfig{Volume: 0.1})

	require.Eventually(t, func() bool {
		return log.Entries()[0].Status == models.TradeSent
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.1, paper.Position("EURUSD"))
}
