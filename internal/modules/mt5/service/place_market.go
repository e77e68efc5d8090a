package service

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"auto_trader/internal/models"
)

// PlaceMarket отправляет маркет-ордер через POST /orders/market.
// Бридж отвечает {ok, result:{retcode, price, order, deal, comment}};
// отказ брокера приходит как 400 c detail.message.
func (c *Client) PlaceMarket(ctx context.Context, order models.OrderRequest) (models.OrderResult, error) {
	if order.Volume <= 0 {
		return models.OrderResult{}, errors.New("place market: volume <= 0")
	}
	if order.Side != models.SideBuy && order.Side != models.SideSell {
		return models.OrderResult{}, errors.Errorf("place market: unsupported side %q", order.Side)
	}

	payload, err := sonic.Marshal(order)
	if err != nil {
		return models.OrderResult{}, errors.Wrap(err, "place market marshal")
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseHTTP+"/orders/market",
		bytes.NewReader(payload),
	)
	if err != nil {
		return models.OrderResult{}, errors.Wrap(err, "place market new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.OrderResult{}, errors.Wrap(err, "place market do")
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode/100 != 2 {
		// FastAPI заворачивает отказ в {"detail": {"message": ..., "result": ...}}
		var rej struct {
			Detail struct {
				Message string             `json:"message"`
				Result  models.OrderResult `json:"result"`
			} `json:"detail"`
		}
		if err := sonic.Unmarshal(data, &rej); err == nil && rej.Detail.Message != "" {
			return rej.Detail.Result, errors.New(rej.Detail.Message)
		}
		return models.OrderResult{}, errors.Errorf("place market http %d: %s", resp.StatusCode, truncate(data, 256))
	}

	var r struct {
		OK     bool               `json:"ok"`
		Result models.OrderResult `json:"result"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.OrderResult{}, errors.Wrapf(err, "place market decode; body=%s", truncate(data, 256))
	}
	return r.Result, nil
}
