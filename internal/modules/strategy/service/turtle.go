package service

import (
	"fmt"
	"math"

	"auto_trader/internal/models"
)

// turtle — классический пробой N-барного канала (Turtle Traders).
// ATR Уайлдера идёт в reason как контекст для ручной оценки стопа.
type turtle struct {
	entryChannel int
	atrPeriod    int

	lastSide models.Side
}

func newTurtle(entryChannel, atrPeriod int) *turtle {
	return &turtle{
		entryChannel: entryChannel,
		atrPeriod:    atrPeriod,
	}
}

func (s *turtle) Init(history []models.Candle) error {
	s.lastSide = models.SideNone
	return nil
}

func (s *turtle) OnCandle(candles []models.Candle) (models.Signal, bool) {
	need := s.entryChannel
	if s.atrPeriod > need {
		need = s.atrPeriod
	}
	if len(candles) < need+2 {
		return models.Signal{}, false
	}

	last := candles[len(candles)-1]
	window := candles[len(candles)-1-s.entryChannel : len(candles)-1]

	hiEntry := window[0].High
	loEntry := window[0].Low
	for _, c := range window[1:] {
		if c.High > hiEntry {
			hiEntry = c.High
		}
		if c.Low < loEntry {
			loEntry = c.Low
		}
	}

	atr := wilderATR(candles, s.atrPeriod)

	if last.Close > hiEntry && s.lastSide != models.SideBuy {
		s.lastSide = models.SideBuy
		return models.Signal{
			Side:   models.SideBuy,
			Reason: fmt.Sprintf("breakout_up N=%d ATR=%.5f", s.entryChannel, atr),
		}, true
	}
	if last.Close < loEntry && s.lastSide != models.SideSell {
		s.lastSide = models.SideSell
		return models.Signal{
			Side:   models.SideSell,
			Reason: fmt.Sprintf("breakout_dn N=%d ATR=%.5f", s.entryChannel, atr),
		}, true
	}
	return models.Signal{}, false
}

// wilderATR — EWM истинного диапазона с alpha=1/period, seed = первый TR.
func wilderATR(candles []models.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	if period <= 1 {
		period = 1
	}
	alpha := 1.0 / float64(period)

	atr := candles[0].High - candles[0].Low
	for i := 1; i < len(candles); i++ {
		c := candles[i]
		prevClose := candles[i-1].Close
		tr := c.High - c.Low
		if v := math.Abs(c.High - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(c.Low - prevClose); v > tr {
			tr = v
		}
		atr = alpha*tr + (1-alpha)*atr
	}
	return atr
}
