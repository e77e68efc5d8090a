package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/internal/modules/config"
	"auto_trader/internal/notify"
	"auto_trader/pkg/logger"
)

// OrderBackend — куда уходит маркет-ордер: MT5-бридж или бумажный брокер.
type OrderBackend interface {
	PlaceMarket(ctx context.Context, order models.OrderRequest) (models.OrderResult, error)
}

// Marker — опциональная сторона бэкенда: отметка текущей цены
// (нужна бумажному брокеру для филлов и переоценки).
type Marker interface {
	OnMark(symbol string, price float64)
}

// Dispatcher превращает сигнал стратегии в ордер с SL/TP от пипсовых
// дистанций и ведёт запись в журнале: pending до раундтрипа,
// sent/error после ответа бэкенда.
type Dispatcher struct {
	cfg     *config.Config
	backend OrderBackend
	log     *SignalLog
	n       notify.Notifier
}

func NewDispatcher(cfg *config.Config, backend OrderBackend, log *SignalLog, n notify.Notifier) *Dispatcher {
	return &Dispatcher{cfg: cfg, backend: backend, log: log, n: n}
}

// Dispatch регистрирует попытку и уводит сетевой раундтрип в фон.
// Возвращает id записи журнала.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	symbol string,
	strategyName string,
	sig models.Signal,
	price float64,
	risk models.RiskConfig,
) string {
	pip := helper.PipSize(symbol, price)

	var sl, tp float64
	if risk.SLPips > 0 {
		if sig.Side == models.SideBuy {
			sl = price - risk.SLPips*pip
		} else {
			sl = price + risk.SLPips*pip
		}
	}
	if risk.TPPips > 0 {
		if sig.Side == models.SideBuy {
			tp = price + risk.TPPips*pip
		} else {
			tp = price - risk.TPPips*pip
		}
	}

	order := models.OrderRequest{
		Symbol:    symbol,
		Side:      sig.Side,
		Volume:    risk.Volume,
		SL:        sl,
		TP:        tp,
		Comment:   "auto:" + strategyName,
		Deviation: d.cfg.Trading.Deviation,
		Magic:     d.cfg.Trading.Magic,
	}

	entry := models.TradeLogEntry{
		ID:       fmt.Sprintf("%s-%d", strategyName, time.Now().UnixMilli()),
		TS:       time.Now(),
		Strategy: strategyName,
		Side:     sig.Side,
		Price:    price,
		Reason:   sig.Reason,
		Status:   models.TradePending,
	}
	d.log.Append(entry)

	if m, ok := d.backend.(Marker); ok {
		m.OnMark(symbol, price)
	}

	// раундтрип не отменяем вместе с раном: ордер мог дойти до брокера,
	// результат всё равно нужен журналу
	go d.submit(context.WithoutCancel(ctx), entry.ID, order)

	return entry.ID
}

func (d *Dispatcher) submit(ctx context.Context, entryID string, order models.OrderRequest) {
	span := opentracing.StartSpan("order.dispatch")
	span.SetTag("symbol", order.Symbol)
	span.SetTag("side", string(order.Side))
	defer span.Finish()

	if d.n != nil {
		d.n.Sendf("🔔 [%s] %s %s vol=%.2f sl=%s tp=%s (%s)",
			order.Symbol, order.Comment, order.Side, order.Volume,
			helper.FormatPrice(order.Symbol, order.SL),
			helper.FormatPrice(order.Symbol, order.TP),
			entryID,
		)
	}

	res, err := d.backend.PlaceMarket(ctx, order)
	if err != nil {
		span.SetTag("error", true)
		logger.Error("[DISPATCH] %s %s failed: %v", order.Symbol, order.Side, err)
		d.log.Update(entryID, models.TradeError, err.Error())
		if d.n != nil {
			d.n.Sendf("❗️ [%s] order failed: %v", order.Symbol, err)
		}
		return
	}

	var parts []string
	if res.Retcode != 0 {
		parts = append(parts, fmt.Sprintf("retcode %d", res.Retcode))
	}
	if res.Price > 0 {
		parts = append(parts, "price "+helper.FormatPrice(order.Symbol, res.Price))
	}
	msg := strings.Join(parts, " · ")
	if msg == "" {
		msg = "sent"
	}
	d.log.Update(entryID, models.TradeSent, msg)
	logger.Info("[DISPATCH] %s %s %s", order.Symbol, order.Side, msg)
}
