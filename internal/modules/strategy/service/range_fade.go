package service

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"auto_trader/internal/models"
)

const zEpsilon = 1e-9

// rangeFade — контртренд: z-оценка закрытия против последних N закрытий.
// Перекупленность продаём, перепроданность покупаем.
type rangeFade struct {
	lookback  int
	threshold float64
	minBars   int
}

func newRangeFade(lookback int, threshold float64) *rangeFade {
	return &rangeFade{
		lookback:  lookback,
		threshold: threshold,
		minBars:   lookback + 5,
	}
}

func (s *rangeFade) Init(history []models.Candle) error { return nil }

func (s *rangeFade) OnCandle(candles []models.Candle) (models.Signal, bool) {
	if len(candles) < s.minBars {
		return models.Signal{}, false
	}

	last := candles[len(candles)-1]
	window := closePrices(candles[len(candles)-1-s.lookback : len(candles)-1])

	mean, err := stats.Mean(window)
	if err != nil {
		return models.Signal{}, false
	}
	sd, err := stats.StandardDeviationPopulation(window)
	if err != nil {
		return models.Signal{}, false
	}
	if sd < zEpsilon {
		sd = zEpsilon
	}

	z := (last.Close - mean) / sd
	if z > s.threshold {
		return models.Signal{
			Side:   models.SideSell,
			Reason: fmt.Sprintf("Z-score %.2f", z),
		}, true
	}
	if z < -s.threshold {
		return models.Signal{
			Side:   models.SideBuy,
			Reason: fmt.Sprintf("Z-score %.2f", z),
		}, true
	}
	return models.Signal{}, false
}
