package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

const paperFillRetcode = 10009 // TRADE_RETCODE_DONE

// PaperBroker исполняет ордера локально по последней отмеченной цене.
// Для прогона стратегий без живого MT5-счёта.
type PaperBroker struct {
	mu      sync.Mutex
	cash    float64
	feeRate float64
	marks   map[string]float64
	pos     map[string]float64 // символ -> нетто-объём, минус = шорт
	nextID  int64
}

func NewPaperBroker(cash, feeRate float64) *PaperBroker {
	return &PaperBroker{
		cash:    cash,
		feeRate: feeRate,
		marks:   make(map[string]float64),
		pos:     make(map[string]float64),
		nextID:  1,
	}
}

// OnMark запоминает последнюю рыночную цену символа.
func (p *PaperBroker) OnMark(symbol string, price float64) {
	p.mu.Lock()
	p.marks[symbol] = price
	p.mu.Unlock()
}

func (p *PaperBroker) PlaceMarket(_ context.Context, order models.OrderRequest) (models.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price, ok := p.marks[order.Symbol]
	if !ok || price <= 0 {
		return models.OrderResult{}, errors.Errorf("paper: no mark price for %s", order.Symbol)
	}

	notional := price * order.Volume
	fee := notional * p.feeRate
	if p.cash < fee {
		return models.OrderResult{}, errors.Errorf("paper: insufficient cash %.2f for fee %.2f", p.cash, fee)
	}
	p.cash -= fee

	switch order.Side {
	case models.SideBuy:
		p.pos[order.Symbol] += order.Volume
	case models.SideSell:
		p.pos[order.Symbol] -= order.Volume
	default:
		return models.OrderResult{}, errors.Errorf("paper: bad side %q", order.Side)
	}

	id := p.nextID
	p.nextID++

	logger.Info("[PAPER] %s %s %.2f @ %.5f pos=%.2f cash=%.2f",
		order.Symbol, order.Side, order.Volume, price, p.pos[order.Symbol], p.cash)

	return models.OrderResult{
		Retcode: paperFillRetcode,
		Comment: "paper fill",
		Order:   id,
		Deal:    id,
		Price:   price,
	}, nil
}

// Position возвращает нетто-объём по символу.
func (p *PaperBroker) Position(symbol string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos[symbol]
}

// Cash — остаток свободных средств.
func (p *PaperBroker) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}
