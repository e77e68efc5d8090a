package helper

import (
	"fmt"
	"strings"
)

// NormTF приводит таймфрейм к канону MT5 (M1..MN1).
func NormTF(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "1M", "M1":
		return "M1"
	case "5M", "M5":
		return "M5"
	case "15M", "M15":
		return "M15"
	case "30M", "M30":
		return "M30"
	case "1H", "60M", "H1":
		return "H1"
	case "4H", "H4":
		return "H4"
	case "1D", "D1":
		return "D1"
	case "1W", "W1":
		return "W1"
	case "MN", "MN1":
		return "MN1"
	default:
		return s
	}
}

// PipSize — размер пипса для символа: JPY-котировки 0.01,
// дорогие инструменты 0.01, остальное 0.0001.
func PipSize(symbol string, price float64) float64 {
	if symbol == "" {
		if price >= 10 {
			return 0.01
		}
		return 0.0001
	}
	if strings.Contains(strings.ToUpper(symbol), "JPY") {
		return 0.01
	}
	if price >= 10 {
		return 0.01
	}
	return 0.0001
}

// PriceDigits — сколько знаков после запятой показывать для данного пипса.
func PriceDigits(pip float64) int {
	switch {
	case pip <= 0.0001:
		return 5
	case pip <= 0.001:
		return 4
	case pip <= 0.01:
		return 3
	default:
		return 2
	}
}

// FormatPrice форматирует цену с точностью, привязанной к пипсу символа.
func FormatPrice(symbol string, price float64) string {
	digits := PriceDigits(PipSize(symbol, price))
	return fmt.Sprintf("%.*f", digits, price)
}
