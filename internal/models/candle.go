package models

import (
	"math"
	"time"

	"github.com/pkg/errors"
)

// Candle — одна закрытая/формирующаяся свеча OHLCV.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// NewCandle отбрасывает мусор из фида до того, как он попадёт в буфер.
func NewCandle(ts time.Time, open, high, low, clos, volume float64) (Candle, error) {
	for _, v := range [...]float64{open, high, low, clos} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return Candle{}, errors.Errorf("candle %s has bad price %v", ts.Format(time.RFC3339), v)
		}
	}
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return Candle{}, errors.Errorf("candle %s has bad volume %v", ts.Format(time.RFC3339), volume)
	}
	if ts.IsZero() {
		return Candle{}, errors.New("candle has zero timestamp")
	}
	return Candle{
		Time:   ts,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  clos,
		Volume: volume,
	}, nil
}

// StreamEvent — одно событие живой подписки: либо бар, либо ошибка потока.
// Закрытие канала без Err — штатное завершение стрима.
type StreamEvent struct {
	Bar *Candle
	Err error
}
