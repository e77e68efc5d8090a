package service

import (
	"github.com/pkg/errors"

	"auto_trader/internal/models"
)

// Strategy — контракт одной стратегии на время одного рана.
// Экземпляр создаётся заново на каждый запуск (Descriptor.New),
// всё состояние живёт внутри экземпляра.
type Strategy interface {
	// Init получает историю прогрева; ошибка исключает стратегию из рана.
	Init(history []models.Candle) error
	// OnCandle смотрит на видимое окно (последний бар — входящий)
	// и отвечает, есть ли сигнал. Окно read-only.
	OnCandle(candles []models.Candle) (models.Signal, bool)
}

// Descriptor — идентичность стратегии в каталоге.
type Descriptor struct {
	Name        string
	Label       string
	Description string
	// MinBars — минимум баров, раньше которого стратегия молчит.
	MinBars int
	New     func() Strategy
}

var catalog = []Descriptor{
	{
		Name:        "ema_cross",
		Label:       "EMA Cross",
		Description: "Signals when a fast EMA crosses above or below a slower EMA.",
		MinBars:     57,
		New:         func() Strategy { return newEMACross(21, 55) },
	},
	{
		Name:        "oco_breakout",
		Label:       "OCO Breakout",
		Description: "Breakout of the recent high/low range triggers entries.",
		MinBars:     31,
		New:         func() Strategy { return newBreakout(30) },
	},
	{
		Name:        "range_fade",
		Label:       "Range Fade",
		Description: "Fade moves that extend beyond a Z-score threshold.",
		MinBars:     55,
		New:         func() Strategy { return newRangeFade(50, 1.5) },
	},
	{
		Name:        "turtle_dennis",
		Label:       "Turtle (Dennis)",
		Description: "55-bar channel breakout with Wilder ATR context.",
		MinBars:     57,
		New:         func() Strategy { return newTurtle(55, 20) },
	},
}

// Catalog — все зарегистрированные стратегии в стабильном порядке.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Register добавляет стратегию в каталог. Имя должно быть уникальным.
func Register(d Descriptor) error {
	if d.Name == "" || d.New == nil {
		return errors.New("strategy: descriptor needs a name and a constructor")
	}
	if _, ok := Lookup(d.Name); ok {
		return errors.Errorf("strategy: %s already registered", d.Name)
	}
	catalog = append(catalog, d)
	return nil
}

func Lookup(name string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}
