package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"auto_trader/internal/config"
	"auto_trader/internal/helper"
	"auto_trader/internal/models"
	"auto_trader/pkg/logger"
)

const okxBaseURL = "https://www.okx.com"

type OKXClient struct {
	mu        sync.RWMutex
	connected bool
	prices    map[string]float64

	http       *http.Client
	apiKey     string
	apiSecret  string
	passphrase string
	sandbox    bool
}

func NewOKXClient(cfg config.ExchangeConfig) *OKXClient {
	return &OKXClient{
		prices:     make(map[string]float64),
		http:       &http.Client{Timeout: 10 * time.Second},
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		passphrase: cfg.Passphrase,
		sandbox:    cfg.Sandbox,
	}
}

func (c *OKXClient) Name() string { return "okx" }

// Connect проверяет доступность REST и, при наличии ключей, авторизацию.
func (c *OKXClient) Connect(ctx context.Context) error {
	var resp struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := c.get(ctx, "/api/v5/public/time", nil, false, &resp); err != nil {
		return errors.Wrap(err, "okx unreachable")
	}

	if c.apiKey != "" {
		var acc okxResponse[okxBalanceData]
		if err := c.get(ctx, "/api/v5/account/balance", nil, true, &acc); err != nil {
			return errors.Wrap(err, "okx auth check")
		}
		if acc.Code != "0" {
			return errors.Errorf("okx auth check: code=%s msg=%s", acc.Code, acc.Msg)
		}
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	logger.Info("connected to okx (sandbox=%v)", c.sandbox)
	return nil
}

func (c *OKXClient) Disconnect() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *OKXClient) isConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// ===== market data =====

type okxResponse[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

type okxTickerData struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	BidPx     string `json:"bidPx"`
	AskPx     string `json:"askPx"`
	High24h   string `json:"high24h"`
	Low24h    string `json:"low24h"`
	Vol24h    string `json:"vol24h"`
	Timestamp string `json:"ts"`
}

func (c *OKXClient) GetTicker(ctx context.Context, symbol string) (models.Ticker, error) {
	if !c.isConnected() {
		return models.Ticker{}, ErrNotConnected
	}

	// Свежая цена из WS-кэша дешевле REST-раундтрипа, но bid/ask там нет,
	// поэтому тикер всегда ходит в REST, а кэш обновляется попутно.
	var resp okxResponse[okxTickerData]
	q := url.Values{"instId": {symbol}}
	if err := c.get(ctx, "/api/v5/market/ticker", q, false, &resp); err != nil {
		return models.Ticker{}, errors.Wrapf(err, "get ticker %s", symbol)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return models.Ticker{}, errors.Errorf("okx ticker %s: code=%s msg=%s", symbol, resp.Code, resp.Msg)
	}

	d := resp.Data[0]
	ts, _ := strconv.ParseInt(d.Timestamp, 10, 64)
	t := models.Ticker{
		Symbol:    symbol,
		Bid:       parseFloat(d.BidPx),
		Ask:       parseFloat(d.AskPx),
		Last:      parseFloat(d.Last),
		High:      parseFloat(d.High24h),
		Low:       parseFloat(d.Low24h),
		Volume:    parseFloat(d.Vol24h),
		Timestamp: time.UnixMilli(ts),
	}

	c.mu.Lock()
	c.prices[symbol] = t.Last
	c.mu.Unlock()

	return t, nil
}

// LastPrice отдаёт последнюю виденную цену (WS-кэш), 0 если цены ещё не было.
func (c *OKXClient) LastPrice(symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prices[symbol]
}

func (c *OKXClient) GetKlines(ctx context.Context, symbol, interval string, limit int) (models.PriceSeries, error) {
	if !c.isConnected() {
		return nil, ErrNotConnected
	}

	var resp okxResponse[[]string]
	q := url.Values{
		"instId": {symbol},
		"bar":    {helper.NormBar(interval)},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := c.get(ctx, "/api/v5/market/candles", q, false, &resp); err != nil {
		return nil, errors.Wrapf(err, "get klines %s", symbol)
	}
	if resp.Code != "0" {
		return nil, errors.Errorf("okx klines %s: code=%s msg=%s", symbol, resp.Code, resp.Msg)
	}

	// OKX отдаёт свечи от новых к старым, серия должна быть хронологической.
	series := make(models.PriceSeries, 0, len(resp.Data))
	for i := len(resp.Data) - 1; i >= 0; i-- {
		row := resp.Data[i]
		if len(row) < 6 {
			continue
		}
		ts, _ := strconv.ParseInt(row[0], 10, 64)
		series = append(series, models.Candle{
			Timestamp: time.UnixMilli(ts),
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		})
	}
	return series, nil
}

// ===== account =====

type okxBalanceData struct {
	Details []struct {
		Ccy       string `json:"ccy"`
		AvailBal  string `json:"availBal"`
		FrozenBal string `json:"frozenBal"`
		Eq        string `json:"eq"`
	} `json:"details"`
}

func (c *OKXClient) GetBalance(ctx context.Context, currency string) (map[string]models.Balance, error) {
	if !c.isConnected() {
		return nil, ErrNotConnected
	}

	q := url.Values{}
	if currency != "" {
		q.Set("ccy", currency)
	}
	var resp okxResponse[okxBalanceData]
	if err := c.get(ctx, "/api/v5/account/balance", q, true, &resp); err != nil {
		return nil, errors.Wrap(err, "get balance")
	}
	if resp.Code != "0" {
		return nil, errors.Errorf("okx balance: code=%s msg=%s", resp.Code, resp.Msg)
	}

	out := make(map[string]models.Balance)
	for _, data := range resp.Data {
		for _, d := range data.Details {
			free := parseFloat(d.AvailBal)
			used := parseFloat(d.FrozenBal)
			out[d.Ccy] = models.Balance{
				Currency: d.Ccy,
				Free:     free,
				Used:     used,
				Total:    free + used,
			}
		}
	}
	return out, nil
}

// ===== orders =====

type okxOrderData struct {
	OrdID     string `json:"ordId"`
	InstID    string `json:"instId"`
	Side      string `json:"side"`
	OrdType   string `json:"ordType"`
	Sz        string `json:"sz"`
	Px        string `json:"px"`
	State     string `json:"state"`
	AccFillSz string `json:"accFillSz"`
	Fee       string `json:"fee"`
	CTime     string `json:"cTime"`
	SCode     string `json:"sCode"`
	SMsg      string `json:"sMsg"`
}

func (c *OKXClient) CreateOrder(ctx context.Context, symbol string, side models.OrderSide, orderType models.OrderType, amount, price float64) (models.Order, error) {
	if !c.isConnected() {
		return models.Order{}, ErrNotConnected
	}

	body := map[string]string{
		"instId":  symbol,
		"tdMode":  "cash",
		"side":    string(side),
		"ordType": string(orderType),
		"sz":      strconv.FormatFloat(amount, 'f', -1, 64),
	}
	if orderType == models.OrderTypeLimit {
		body["px"] = strconv.FormatFloat(price, 'f', -1, 64)
	}

	var resp okxResponse[okxOrderData]
	if err := c.post(ctx, "/api/v5/trade/order", body, &resp); err != nil {
		return models.Order{}, errors.Wrapf(err, "create order %s", symbol)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return models.Order{}, errors.Errorf("okx create order %s: code=%s msg=%s", symbol, resp.Code, resp.Msg)
	}
	placed := resp.Data[0]
	if placed.SCode != "" && placed.SCode != "0" {
		return models.Order{}, errors.Errorf("okx create order %s: sCode=%s sMsg=%s", symbol, placed.SCode, placed.SMsg)
	}

	// В ответе размещения нет состояния — дочитываем ордер отдельным запросом.
	order, err := c.GetOrder(ctx, placed.OrdID, symbol)
	if err != nil {
		logger.Warn("order %s placed but state fetch failed: %v", placed.OrdID, err)
		return models.Order{
			ID:        placed.OrdID,
			Symbol:    symbol,
			Side:      side,
			Type:      orderType,
			Amount:    amount,
			Price:     price,
			Status:    models.OrderStatusPending,
			Remaining: amount,
			Timestamp: time.Now(),
		}, nil
	}
	return order, nil
}

func (c *OKXClient) CancelOrder(ctx context.Context, orderID, symbol string) error {
	if !c.isConnected() {
		return ErrNotConnected
	}

	body := map[string]string{
		"instId": symbol,
		"ordId":  orderID,
	}
	var resp okxResponse[okxOrderData]
	if err := c.post(ctx, "/api/v5/trade/cancel-order", body, &resp); err != nil {
		return errors.Wrapf(err, "cancel order %s", orderID)
	}
	if resp.Code != "0" {
		return errors.Errorf("okx cancel order %s: code=%s msg=%s", orderID, resp.Code, resp.Msg)
	}
	return nil
}

func (c *OKXClient) GetOrder(ctx context.Context, orderID, symbol string) (models.Order, error) {
	if !c.isConnected() {
		return models.Order{}, ErrNotConnected
	}

	q := url.Values{
		"instId": {symbol},
		"ordId":  {orderID},
	}
	var resp okxResponse[okxOrderData]
	if err := c.get(ctx, "/api/v5/trade/order", q, true, &resp); err != nil {
		return models.Order{}, errors.Wrapf(err, "get order %s", orderID)
	}
	if resp.Code != "0" || len(resp.Data) == 0 {
		return models.Order{}, errors.Errorf("okx get order %s: code=%s msg=%s", orderID, resp.Code, resp.Msg)
	}
	return mapOrder(resp.Data[0]), nil
}

func (c *OKXClient) GetOpenOrders(ctx context.Context, symbol string) ([]models.Order, error) {
	if !c.isConnected() {
		return nil, ErrNotConnected
	}

	q := url.Values{"instType": {"SPOT"}}
	if symbol != "" {
		q.Set("instId", symbol)
	}
	var resp okxResponse[okxOrderData]
	if err := c.get(ctx, "/api/v5/trade/orders-pending", q, true, &resp); err != nil {
		return nil, errors.Wrap(err, "get open orders")
	}
	if resp.Code != "0" {
		return nil, errors.Errorf("okx open orders: code=%s msg=%s", resp.Code, resp.Msg)
	}

	out := make([]models.Order, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, mapOrder(d))
	}
	return out, nil
}

func (c *OKXClient) GetOrderHistory(ctx context.Context, symbol string, limit int) ([]models.Order, error) {
	if !c.isConnected() {
		return nil, ErrNotConnected
	}

	q := url.Values{"instType": {"SPOT"}}
	if symbol != "" {
		q.Set("instId", symbol)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp okxResponse[okxOrderData]
	if err := c.get(ctx, "/api/v5/trade/orders-history", q, true, &resp); err != nil {
		return nil, errors.Wrap(err, "get order history")
	}
	if resp.Code != "0" {
		return nil, errors.Errorf("okx order history: code=%s msg=%s", resp.Code, resp.Msg)
	}

	out := make([]models.Order, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, mapOrder(d))
	}
	return out, nil
}

func mapOrder(d okxOrderData) models.Order {
	amount := parseFloat(d.Sz)
	filled := parseFloat(d.AccFillSz)
	ts, _ := strconv.ParseInt(d.CTime, 10, 64)

	return models.Order{
		ID:        d.OrdID,
		Symbol:    d.InstID,
		Side:      models.OrderSide(d.Side),
		Type:      models.OrderType(d.OrdType),
		Amount:    amount,
		Price:     parseFloat(d.Px),
		Status:    mapOrderState(d.State),
		Filled:    filled,
		Remaining: amount - filled,
		Timestamp: time.UnixMilli(ts),
		Fee:       parseFloat(d.Fee),
	}
}

func mapOrderState(state string) models.OrderStatus {
	switch state {
	case "live", "partially_filled":
		return models.OrderStatusOpen
	case "filled":
		return models.OrderStatusClosed
	case "canceled", "mmp_canceled":
		return models.OrderStatusCanceled
	default:
		return models.OrderStatusPending
	}
}

// ===== transport =====

func (c *OKXClient) get(ctx context.Context, path string, query url.Values, signed bool, out any) error {
	requestPath := path
	if len(query) > 0 {
		requestPath += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, okxBaseURL+requestPath, nil)
	if err != nil {
		return err
	}
	if signed {
		c.signRequest(req, http.MethodGet, requestPath, "")
	}
	return c.do(req, out)
}

func (c *OKXClient) post(ctx context.Context, path string, body map[string]string, out any) error {
	payload, err := sonic.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshal body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, okxBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.signRequest(req, http.MethodPost, path, string(payload))
	return c.do(req, out)
}

func (c *OKXClient) signRequest(req *http.Request, method, requestPath, body string) {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	msg := ts + method + requestPath + body
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(msg))

	req.Header.Set("OK-ACCESS-KEY", c.apiKey)
	req.Header.Set("OK-ACCESS-SIGN", base64.StdEncoding.EncodeToString(h.Sum(nil)))
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.passphrase)
	if c.sandbox {
		req.Header.Set("x-simulated-trading", "1")
	}
}

func (c *OKXClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	return sonic.Unmarshal(rb, out)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
