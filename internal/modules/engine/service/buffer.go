package service

import "auto_trader/internal/models"

const DefaultBufferCap = 800

// CandleBuffer — скользящее окно баров одного рана, по возрастанию времени.
// Без мьютекса: буфером владеет единственная горутина активного рана.
type CandleBuffer struct {
	capacity int
	data     []models.Candle
}

func NewCandleBuffer(capacity int) *CandleBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCap
	}
	return &CandleBuffer{
		capacity: capacity,
		data:     make([]models.Candle, 0, capacity),
	}
}

// Merge вливает тик: новее хвоста — append, тот же бар — замена хвоста,
// старее — молча мимо (поздний/дублирующий тик, не ошибка).
// Существующие элементы никогда не переставляются, вытеснение только с головы.
func (b *CandleBuffer) Merge(c models.Candle) {
	n := len(b.data)
	switch {
	case n == 0 || c.Time.After(b.data[n-1].Time):
		b.data = append(b.data, c)
	case c.Time.Equal(b.data[n-1].Time):
		b.data[n-1] = c
	default:
		return
	}
	if over := len(b.data) - b.capacity; over > 0 {
		b.data = append(b.data[:0], b.data[over:]...)
	}
}

// Seed заливает историю прогрева через Merge, порядок и лимит соблюдаются.
func (b *CandleBuffer) Seed(history []models.Candle) {
	for _, c := range history {
		b.Merge(c)
	}
}

func (b *CandleBuffer) Len() int { return len(b.data) }

func (b *CandleBuffer) Last() (models.Candle, bool) {
	if len(b.data) == 0 {
		return models.Candle{}, false
	}
	return b.data[len(b.data)-1], true
}

// Candles отдаёт внутренний срез; читатели не должны его менять.
func (b *CandleBuffer) Candles() []models.Candle { return b.data }
