package exchange

import (
	"context"

	"github.com/pkg/errors"

	"auto_trader/internal/config"
	"auto_trader/internal/models"
)

// ErrNotConnected возвращают все вызовы до успешного Connect.
var ErrNotConnected = errors.New("exchange is not connected")

// Gateway — граница с биржей. Ядро её только потребляет.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect()

	GetTicker(ctx context.Context, symbol string) (models.Ticker, error)
	GetBalance(ctx context.Context, currency string) (map[string]models.Balance, error)
	GetKlines(ctx context.Context, symbol, interval string, limit int) (models.PriceSeries, error)

	CreateOrder(ctx context.Context, symbol string, side models.OrderSide, orderType models.OrderType, amount, price float64) (models.Order, error)
	CancelOrder(ctx context.Context, orderID, symbol string) error
	GetOrder(ctx context.Context, orderID, symbol string) (models.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]models.Order, error)
	GetOrderHistory(ctx context.Context, symbol string, limit int) ([]models.Order, error)

	Name() string
}

// NewGateway — фабрика по имени биржи из конфига.
func NewGateway(cfg config.ExchangeConfig) (Gateway, error) {
	switch cfg.Name {
	case "okx", "":
		return NewOKXClient(cfg), nil
	default:
		return nil, errors.Errorf("unsupported exchange: %s", cfg.Name)
	}
}
