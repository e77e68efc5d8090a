package service

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"auto_trader/internal/models"
)

// candleDTO — свеча в том виде, в котором её отдаёт бридж.
// time приходит либо как unix-секунды, либо как ISO-строка (старые сборки).
type candleDTO struct {
	Time   json.RawMessage `json:"time"`
	Open   float64         `json:"open"`
	High   float64         `json:"high"`
	Low    float64         `json:"low"`
	Close  float64         `json:"close"`
	Volume float64         `json:"volume"`
}

func parseCandleTime(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, errors.New("empty candle time")
	}
	if s[0] != '"' {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, errors.Wrap(err, "parse candle time")
		}
		return time.Unix(sec, 0).UTC(), nil
	}
	unquoted, err := strconv.Unquote(s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "unquote candle time")
	}
	ts, err := time.Parse(time.RFC3339, unquoted)
	if err != nil {
		// старые сборки бриджа шлют время без зоны
		ts, err = time.Parse("2006-01-02T15:04:05", unquoted)
		if err != nil {
			return time.Time{}, errors.Wrap(err, "parse candle time")
		}
	}
	return ts.UTC(), nil
}

func (d candleDTO) toCandle() (models.Candle, error) {
	ts, err := parseCandleTime(d.Time)
	if err != nil {
		return models.Candle{}, err
	}
	return models.NewCandle(ts, d.Open, d.High, d.Low, d.Close, d.Volume)
}
