// Package exchange implements the signed REST client for account
// snapshots, market quotes, and order placement.
package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	apiKey  string
	secret  []byte
	http    *http.Client
	log     *zap.Logger
}

func New(baseURL, apiKey, secret string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	if secret == "" {
		return nil, errors.New("api secret is required")
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  []byte(secret),
		http: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}, nil
}

// sign returns the hex HMAC-SHA256 of the request body under the private
// credential.
func (c *Client) sign(body []byte) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Signature", c.sign(body))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &APIError{Status: resp.StatusCode, Message: string(msg)}
	}
	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return err
	}
	if !envelope.Success {
		msg := envelope.Error
		if msg == "" {
			msg = "unknown api error"
		}
		return &APIError{Message: msg}
	}
	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 {
		return &APIError{Message: "no data in response"}
	}
	return json.Unmarshal(envelope.Data, out)
}

func (c *Client) GetMarketData(ctx context.Context, symbol string) (MarketData, error) {
	var ticker tickerWire
	req := map[string]any{"type": "ticker", "symbol": symbol}
	if err := c.post(ctx, "/info", req, &ticker); err != nil {
		return MarketData{}, err
	}
	ts := time.Now().UTC()
	if ticker.Timestamp > 0 {
		ts = time.UnixMilli(ticker.Timestamp).UTC()
	}
	return MarketData{
		Symbol:    symbol,
		Price:     ticker.Price,
		Volume24h: ticker.Volume24h,
		Change24h: ticker.Change24h,
		High24h:   ticker.High24h,
		Low24h:    ticker.Low24h,
		Timestamp: ts,
	}, nil
}

func (c *Client) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	var acct accountWire
	req := map[string]any{"type": "accountState", "user": c.apiKey}
	if err := c.post(ctx, "/info", req, &acct); err != nil {
		return AccountInfo{}, err
	}
	info := AccountInfo{
		Balance:          acct.Balance,
		AvailableBalance: acct.AvailableBalance,
	}
	for _, p := range acct.Positions {
		if p.Size == 0 {
			continue
		}
		side := PositionLong
		size := p.Size
		if size < 0 {
			side = PositionShort
			size = -size
		}
		info.Positions = append(info.Positions, Position{
			Symbol:        p.Symbol,
			Side:          side,
			Size:          size,
			EntryPrice:    p.EntryPrice,
			CurrentPrice:  p.CurrentPrice,
			UnrealizedPnL: p.UnrealizedPnL,
			RealizedPnL:   p.RealizedPnL,
			Margin:        p.MarginUsed,
		})
		info.TotalPnL += p.UnrealizedPnL
		info.TotalMargin += p.MarginUsed
	}
	return info, nil
}

func (c *Client) PlaceOrder(ctx context.Context, order Order) (string, error) {
	wire := orderRequestWire{
		ClientOrderID: order.ID,
		Symbol:        order.Symbol,
		Side:          string(order.Side),
		Type:          string(order.Type),
		Quantity:      order.Quantity,
	}
	if order.HasPrice {
		wire.Price = order.Price
	}
	req := map[string]any{
		"action": map[string]any{
			"type":   "order",
			"orders": []orderRequestWire{wire},
		},
	}
	var resp orderResponseWire
	if err := c.post(ctx, "/exchange", req, &resp); err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", &APIError{Message: "missing order id in response"}
	}
	c.log.Debug("order placed",
		zap.String("order_id", resp.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("quantity", order.Quantity),
	)
	return resp.OrderID, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	if orderID == "" {
		return false, fmt.Errorf("order id is required")
	}
	req := map[string]any{
		"action": map[string]any{
			"type":    "cancel",
			"cancels": []map[string]string{{"order_id": orderID}},
		},
	}
	var resp cancelResponseWire
	if err := c.post(ctx, "/exchange", req, &resp); err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}
