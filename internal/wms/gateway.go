// Package wms описывает шлюз во внешнюю систему управления складом.
//
// Протокол конкретного поставщика не реализован: сервис работает через интерфейс Gateway,
// а по умолчанию используется StubGateway, который подтверждает все операции.
package wms

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/model"
)

// ErrRejected возвращается шлюзом, если склад отклонил запрос. Такие ошибки не повторяются.
var ErrRejected = errors.New("wms rejected request")

// ConnectionInfo описывает результат проверки соединения со складом.
type ConnectionInfo struct {
	Connected bool      `json:"connected"`
	Provider  string    `json:"provider"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checkedAt"`
}

// Shipment содержит данные заказа, передаваемые на склад.
type Shipment struct {
	WMSOrderID      string
	OrderID         uuid.UUID
	ExternalOrderID string
	Status          model.WMSStatus
	Customer        *model.WMSCustomer
}

// Gateway выполняет операции во внешней системе управления складом.
type Gateway interface {
	Connect(ctx context.Context) (ConnectionInfo, error)
	PushOrder(ctx context.Context, s Shipment) error
	UpdateInventory(ctx context.Context, items []model.InventoryItem) (int, error)
}

// StubGateway подтверждает все операции без сетевых вызовов и только логирует их.
type StubGateway struct {
	logger *zap.Logger
	now    func() time.Time
}

var _ Gateway = (*StubGateway)(nil)

// NewStubGateway создаёт шлюз-заглушку.
func NewStubGateway(logger *zap.Logger) *StubGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubGateway{logger: logger, now: time.Now}
}

// Connect всегда сообщает об успешном соединении.
func (g *StubGateway) Connect(ctx context.Context) (ConnectionInfo, error) {
	if err := ctx.Err(); err != nil {
		return ConnectionInfo{}, err
	}
	g.logger.Info("wms connect", zap.String("provider", "stub"))
	return ConnectionInfo{
		Connected: true,
		Provider:  "stub",
		Message:   "Connected to WMS",
		CheckedAt: g.now().UTC(),
	}, nil
}

// PushOrder логирует передачу заказа на склад.
func (g *StubGateway) PushOrder(ctx context.Context, s Shipment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.logger.Info("wms push order",
		zap.String("wms_order_id", s.WMSOrderID),
		zap.String("external_order_id", s.ExternalOrderID),
		zap.String("status", string(s.Status)),
	)
	return nil
}

// UpdateInventory логирует обновление остатков и возвращает число принятых позиций.
func (g *StubGateway) UpdateInventory(ctx context.Context, items []model.InventoryItem) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.logger.Info("wms update inventory", zap.Int("items", len(items)))
	return len(items), nil
}
