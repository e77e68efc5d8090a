package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

// GetCandles — история закрытых свечей по (symbol, timeframe), по возрастанию времени.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 600
	}

	u := fmt.Sprintf("%s/candles/%s?timeframe=%s&limit=%d",
		c.baseHTTP, url.PathEscape(symbol), helper.NormTF(timeframe), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "get candles: new request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "get candles")
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("get candles http %d: %s", resp.StatusCode, string(data))
	}

	var r struct {
		Symbol    string      `json:"symbol"`
		Timeframe string      `json:"timeframe"`
		Candles   []candleDTO `json:"candles"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrapf(err, "get candles decode; body=%s", truncate(data, 256))
	}

	out := make([]models.Candle, 0, len(r.Candles))
	for _, dto := range r.Candles {
		cd, err := dto.toCandle()
		if err != nil {
			// битую свечу пропускаем, остальная история пригодна
			logger.Error("[MT5] %s %s bad history candle: %v", symbol, timeframe, err)
			continue
		}
		out = append(out, cd)
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "... (" + strconv.Itoa(len(b)) + " bytes)"
}
