package service

import "auto_trader/internal/models"

// emaLastTwo прогоняет рекуррентную EMA (e[0]=v[0], alpha=2/(n+1))
// по всему ряду и возвращает предпоследнее и последнее значения.
func emaLastTwo(values []float64, period int) (prev, cur float64, ok bool) {
	if len(values) < 2 {
		return 0, 0, false
	}
	if period <= 1 {
		period = 1
	}
	alpha := 2.0 / (float64(period) + 1)

	acc := values[0]
	prev = acc
	for i := 1; i < len(values); i++ {
		prev = acc
		acc = alpha*values[i] + (1-alpha)*acc
	}
	return prev, acc, true
}

func closePrices(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
