package service

import (
	"fmt"

	"auto_trader/internal/models"
)

// breakout — выход закрытия за экстремумы окна последних N баров.
// Входящий бар в экстремумы не входит, иначе пробой собственного
// хая не случится никогда.
type breakout struct {
	lookback int
}

func newBreakout(lookback int) *breakout {
	return &breakout{lookback: lookback}
}

func (s *breakout) Init(history []models.Candle) error { return nil }

func (s *breakout) OnCandle(candles []models.Candle) (models.Signal, bool) {
	if len(candles) < s.lookback+1 {
		return models.Signal{}, false
	}

	last := candles[len(candles)-1]
	window := candles[len(candles)-1-s.lookback : len(candles)-1]

	hi := window[0].High
	lo := window[0].Low
	for _, c := range window[1:] {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
	}

	if last.Close > hi {
		return models.Signal{
			Side:   models.SideBuy,
			Reason: fmt.Sprintf("Breakout above %.5f", hi),
		}, true
	}
	if last.Close < lo {
		return models.Signal{
			Side:   models.SideSell,
			Reason: fmt.Sprintf("Breakout below %.5f", lo),
		}, true
	}
	return models.Signal{}, false
}
