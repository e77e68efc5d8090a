package service

import "auto_trader/internal/models"

// emaCross — пересечение быстрой и медленной EMA по ценам закрытия.
// lastSide не даёт спамить одним направлением на серии пересечений.
type emaCross struct {
	fast, slow int
	minBars    int

	lastSide models.Side
}

func newEMACross(fast, slow int) *emaCross {
	return &emaCross{
		fast:    fast,
		slow:    slow,
		minBars: slow + 2,
	}
}

func (s *emaCross) Init(history []models.Candle) error {
	s.lastSide = models.SideNone
	return nil
}

func (s *emaCross) OnCandle(candles []models.Candle) (models.Signal, bool) {
	if len(candles) < s.minBars {
		return models.Signal{}, false
	}

	values := closePrices(candles)
	fastPrev, fastCur, okF := emaLastTwo(values, s.fast)
	slowPrev, slowCur, okS := emaLastTwo(values, s.slow)
	if !okF || !okS {
		return models.Signal{}, false
	}

	crossUp := fastPrev < slowPrev && fastCur > slowCur
	crossDown := fastPrev > slowPrev && fastCur < slowCur

	if crossUp && s.lastSide != models.SideBuy {
		s.lastSide = models.SideBuy
		return models.Signal{Side: models.SideBuy, Reason: "EMA fast crossed above slow"}, true
	}
	if crossDown && s.lastSide != models.SideSell {
		s.lastSide = models.SideSell
		return models.Signal{Side: models.SideSell, Reason: "EMA fast crossed below slow"}, true
	}
	return models.Signal{}, false
}
