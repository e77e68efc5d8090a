package service

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/internal/modules/config"
	strategysvc "auto_trader/internal/modules/strategy/service"
	"auto_trader/internal/notify"
	"auto_trader/pkg/logger"
)

var (
	ErrNoSymbol        = errors.New("engine: no symbol configured")
	ErrNoStrategies    = errors.New("engine: no strategies enabled")
	ErrAlreadyRunning  = errors.New("engine: run already active")
	ErrUnknownStrategy = errors.New("engine: unknown strategy")
)

// HistoryProvider отдаёт закрытые бары для прогрева.
type HistoryProvider interface {
	GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
}

// BarStream — открытый поток баров. Канал закрывается на чистом
// завершении, ошибка приходит событием с Err.
type BarStream interface {
	Events() <-chan models.StreamEvent
	Close()
}

// StreamOpener открывает живой поток по символу и таймфрейму.
type StreamOpener interface {
	OpenStream(ctx context.Context, symbol, timeframe string) (BarStream, error)
}

// strategyRun — экземпляр стратегии внутри одного рана.
type strategyRun struct {
	desc          strategysvc.Descriptor
	impl          strategysvc.Strategy
	lastSignalBar time.Time // защита от повторного сигнала на том же баре
}

// Snapshot — моментальный срез состояния для админ-ручек.
type Snapshot struct {
	Status      models.RunStatus `json:"status"`
	Symbol      string           `json:"symbol"`
	Timeframe   string           `json:"timeframe"`
	Strategies  []string         `json:"strategies"`
	Bars        int              `json:"bars"`
	LastPrice   float64          `json:"last_price"`
	LastBarTime time.Time        `json:"last_bar_time"`
	Err         string           `json:"error,omitempty"`
}

// Controller держит жизненный цикл рана: прогрев историей, живой поток,
// прогон стратегий на каждом баре. Каждый запуск получает новый runID,
// асинхронные хвосты старых ранов сверяют его и молча умирают.
type Controller struct {
	mu sync.Mutex

	cfg        *config.Config
	history    HistoryProvider
	streams    StreamOpener
	selection  *strategysvc.SelectionStore
	dispatcher *Dispatcher
	signals    *SignalLog
	n          notify.Notifier

	runID     int64
	status    models.RunStatus
	lastErr   string
	symbol    string
	timeframe string
	names     []string
	risk      models.RiskConfig

	buf       *CandleBuffer
	runs      []*strategyRun
	stream    BarStream
	lastPrice float64
	lastBar   time.Time
}

func NewController(
	cfg *config.Config,
	history HistoryProvider,
	streams StreamOpener,
	selection *strategysvc.SelectionStore,
	dispatcher *Dispatcher,
	signals *SignalLog,
	n notify.Notifier,
) *Controller {
	c := &Controller{
		cfg:        cfg,
		history:    history,
		streams:    streams,
		selection:  selection,
		dispatcher: dispatcher,
		signals:    signals,
		n:          n,
		status:     models.StatusIdle,
		symbol:     cfg.Trading.Symbol,
		timeframe:  helper.NormTF(cfg.Trading.Timeframe),
		names:      append([]string(nil), cfg.Trading.Strategies...),
		risk: models.RiskConfig{
			Volume: cfg.Trading.Volume,
			SLPips: cfg.Trading.SLPips,
			TPPips: cfg.Trading.TPPips,
		},
	}
	return c
}

// Configure меняет параметры будущих ранов. Активный ран перезапускается
// с новыми параметрами.
func (c *Controller) Configure(ctx context.Context, symbol, timeframe string, names []string, risk models.RiskConfig) error {
	for _, name := range names {
		if _, ok := strategysvc.Lookup(name); !ok {
			return errors.Wrap(ErrUnknownStrategy, name)
		}
	}

	c.mu.Lock()
	c.symbol = symbol
	c.timeframe = helper.NormTF(timeframe)
	c.names = append([]string(nil), names...)
	if risk.Volume > 0 {
		c.risk = risk
	}
	active := c.status == models.StatusWarmingUp || c.status == models.StatusStreaming
	c.mu.Unlock()

	if active {
		c.Stop()
		return c.Start(ctx)
	}
	return nil
}

// Start запускает новый ран: прогрев уходит в фон, статус сразу warming-up.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == models.StatusWarmingUp || c.status == models.StatusStreaming {
		return ErrAlreadyRunning
	}
	if c.symbol == "" {
		return ErrNoSymbol
	}

	descs := c.enabledLocked()
	if len(descs) == 0 {
		return ErrNoStrategies
	}

	c.runID++
	rid := c.runID
	c.status = models.StatusWarmingUp
	c.lastErr = ""
	c.buf = NewCandleBuffer(c.cfg.Engine.BufferCap)
	c.runs = nil
	c.lastPrice = 0
	c.lastBar = time.Time{}

	logger.Info("[ENGINE] run %d: %s %s strategies=%v", rid, c.symbol, c.timeframe, names(descs))
	go c.warmup(ctx, rid, c.symbol, c.timeframe, descs)
	return nil
}

// Stop обрывает активный ран. Инкремент runID делает невидимыми все его
// висящие колбэки ещё до закрытия сокета.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.runID++
	st := c.stream
	c.stream = nil
	c.runs = nil
	c.status = models.StatusIdle
	c.lastErr = ""
	c.mu.Unlock()

	if st != nil {
		st.Close()
	}
}

func (c *Controller) enabledLocked() []strategysvc.Descriptor {
	var out []strategysvc.Descriptor
	for _, name := range c.names {
		d, ok := strategysvc.Lookup(name)
		if !ok {
			continue
		}
		if c.selection != nil && !c.selection.IsEnabled(name) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *Controller) historyLimit(descs []strategysvc.Descriptor) int {
	limit := c.cfg.Engine.HistoryLimit
	for _, d := range descs {
		if d.MinBars > limit {
			limit = d.MinBars
		}
	}
	return limit
}

func (c *Controller) warmup(ctx context.Context, rid int64, symbol, timeframe string, descs []strategysvc.Descriptor) {
	hist, err := c.history.GetCandles(ctx, symbol, timeframe, c.historyLimit(descs))

	c.mu.Lock()
	if rid != c.runID {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.failLocked(errors.Wrap(err, "history fetch"))
		c.mu.Unlock()
		return
	}

	c.buf.Seed(hist)
	for _, d := range descs {
		impl := d.New()
		if initErr := impl.Init(c.buf.Candles()); initErr != nil {
			logger.Error("[ENGINE] strategy %s init failed: %v", d.Name, initErr)
			continue
		}
		c.runs = append(c.runs, &strategyRun{desc: d, impl: impl})
	}
	if len(c.runs) == 0 {
		c.failLocked(errors.New("engine: all strategies failed to initialise"))
		c.mu.Unlock()
		return
	}
	if last, ok := c.buf.Last(); ok {
		c.lastPrice = last.Close
		c.lastBar = last.Time
	}
	c.mu.Unlock()

	// сокет открываем без замка, это сетевой раундтрип
	stream, err := c.streams.OpenStream(ctx, symbol, timeframe)

	c.mu.Lock()
	if rid != c.runID {
		c.mu.Unlock()
		if err == nil {
			stream.Close()
		}
		return
	}
	if err != nil {
		c.failLocked(errors.Wrap(err, "open stream"))
		c.mu.Unlock()
		return
	}
	c.stream = stream
	c.status = models.StatusStreaming
	c.mu.Unlock()

	logger.Info("[ENGINE] run %d streaming %s %s (%d bars warm)", rid, symbol, timeframe, c.Snapshot().Bars)
	go c.runLoop(rid, stream)
}

func (c *Controller) runLoop(rid int64, stream BarStream) {
	// мёртвый стрим добиваем в любом исходе, иначе течёт сокет
	defer stream.Close()

	for ev := range stream.Events() {
		if ev.Err != nil {
			c.mu.Lock()
			if rid == c.runID {
				c.failLocked(ev.Err)
				c.stream = nil
			}
			c.mu.Unlock()
			return
		}
		if ev.Bar != nil {
			c.onBar(rid, *ev.Bar)
		}
	}

	// чистое закрытие потока
	c.mu.Lock()
	if rid == c.runID {
		c.status = models.StatusIdle
		c.stream = nil
		logger.Info("[ENGINE] run %d: stream closed", rid)
	}
	c.mu.Unlock()
}

func (c *Controller) onBar(rid int64, bar models.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rid != c.runID {
		return
	}

	c.buf.Merge(bar)
	c.lastPrice = bar.Close
	c.lastBar = bar.Time

	window := c.buf.Candles()
	for _, run := range c.runs {
		if c.buf.Len() < run.desc.MinBars {
			continue
		}
		if run.lastSignalBar.Equal(bar.Time) {
			continue
		}
		sig, ok := evalSafe(run, window)
		if !ok || sig.Side == models.SideNone {
			continue
		}
		run.lastSignalBar = bar.Time
		c.dispatcher.Dispatch(context.Background(), c.symbol, run.desc.Name, sig, bar.Close, c.risk)
	}
}

// evalSafe гасит панику стратегии, один сбой не роняет ран.
func evalSafe(run *strategyRun, window []models.Candle) (sig models.Signal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("[ENGINE] strategy %s panic: %v", run.desc.Name, r)
			sig, ok = models.Signal{}, false
		}
	}()
	return run.impl.OnCandle(window)
}

// failLocked переводит ран в ошибку. Вызывать под c.mu.
func (c *Controller) failLocked(err error) {
	c.status = models.StatusError
	c.lastErr = err.Error()
	logger.Error("[ENGINE] run %d failed: %v", c.runID, err)
	if c.n != nil {
		c.n.Sendf("❗️ [%s] run stopped: %v", c.symbol, err)
	}
}

// Snapshot — состояние движка одним срезом.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Status:      c.status,
		Symbol:      c.symbol,
		Timeframe:   c.timeframe,
		Strategies:  append([]string(nil), c.names...),
		LastPrice:   c.lastPrice,
		LastBarTime: c.lastBar,
		Err:         c.lastErr,
	}
	if c.buf != nil {
		snap.Bars = c.buf.Len()
	}
	return snap
}

func (c *Controller) Status() models.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Controller) LastPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPrice
}

// Log отдаёт журнал сигналов движка.
func (c *Controller) Log() *SignalLog {
	return c.signals
}

func names(descs []strategysvc.Descriptor) []string {
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		out = append(out, d.Name)
	}
	return out
}
