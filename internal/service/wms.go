package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/repository"
	"github.com/mmeshcher/ordersync/internal/wms"
)

const maxWMSLogEntries = 500

// WMSOrderData описывает данные синхронизации заказа со складом.
type WMSOrderData struct {
	Status   *model.WMSStatus
	Customer *model.WMSCustomer
	Message  string
}

// SyncWMSOrder создаёт или обновляет запись WMS заказа, передаёт заказ на склад
// и переносит итоговое состояние на заказ.
func (s *Service) SyncWMSOrder(ctx context.Context, orderID uuid.UUID, data WMSOrderData) (*model.WMSRecord, error) {
	if data.Status != nil && !data.Status.IsValid() {
		return nil, fmt.Errorf("%w: wms status %q", ErrInvalidStatus, *data.Status)
	}

	msg := data.Message
	if msg == "" {
		msg = "Order synced to WMS"
	}

	return s.applyWMS(ctx, orderID, "sync_order", msg, func(rec *model.WMSRecord) {
		if data.Status != nil {
			rec.Status = *data.Status
		}
		if data.Customer != nil {
			rec.Customer = data.Customer
		}
	})
}

// UpdateWMSCustomer заменяет данные покупателя в записи WMS заказа.
func (s *Service) UpdateWMSCustomer(ctx context.Context, orderID uuid.UUID, c model.WMSCustomer) (*model.WMSRecord, error) {
	return s.applyWMS(ctx, orderID, "update_customer", "Customer data updated", func(rec *model.WMSRecord) {
		rec.Customer = &c
	})
}

// GetWMSStatus возвращает запись WMS заказа без её создания.
func (s *Service) GetWMSStatus(ctx context.Context, orderID uuid.UUID) (*model.WMSRecord, error) {
	return s.repo.GetWMSRecord(ctx, orderID)
}

// ConnectWMS проверяет соединение со складом.
func (s *Service) ConnectWMS(ctx context.Context) (wms.ConnectionInfo, error) {
	info, err := s.gateway.Connect(ctx)
	if err != nil {
		s.logger.Error("wms connect failed", zap.Error(err))
		return wms.ConnectionInfo{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return info, nil
}

// UpdateWMSInventory передаёт остатки на склад и возвращает число принятых позиций.
func (s *Service) UpdateWMSInventory(ctx context.Context, items []model.InventoryItem) (int, error) {
	n, err := s.gateway.UpdateInventory(ctx, items)
	if err != nil {
		s.logger.Error("wms inventory update failed", zap.Int("items", len(items)), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return n, nil
}

func (s *Service) applyWMS(ctx context.Context, orderID uuid.UUID, op, msg string, apply func(*model.WMSRecord)) (*model.WMSRecord, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	rec, err := s.repo.GetWMSRecord(ctx, orderID)
	if errors.Is(err, repository.ErrWMSRecordNotFound) {
		rec = newWMSRecord(order)
	} else if err != nil {
		return nil, err
	}

	apply(rec)
	now := time.Now().UTC()
	rec.LastSync = &now

	pushErr := s.gateway.PushOrder(ctx, wms.Shipment{
		WMSOrderID:      rec.WMSOrderID,
		OrderID:         order.ID,
		ExternalOrderID: order.ExternalOrderID,
		Status:          rec.Status,
		Customer:        rec.Customer,
	})
	if pushErr != nil {
		rec.Status = model.WMSStatusError
		rec.Errors = appendCapped(rec.Errors, model.WMSErrorEntry{
			Message:   pushErr.Error(),
			Details:   map[string]any{"operation": op, "externalOrderId": order.ExternalOrderID},
			Timestamp: now,
		})
	} else {
		rec.SyncHistory = appendCapped(rec.SyncHistory, model.WMSSyncEntry{
			Status:    rec.Status,
			Message:   msg,
			Timestamp: now,
		})
	}

	if err := s.repo.SaveWMSRecord(ctx, rec); err != nil {
		s.logger.Error("save wms record failed",
			zap.String("operation", op),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	if pushErr != nil {
		s.logger.Error("wms push failed",
			zap.String("operation", op),
			zap.String("wms_order_id", rec.WMSOrderID),
			zap.Error(pushErr),
		)
		return rec, fmt.Errorf("%w: %v", ErrGateway, pushErr)
	}

	s.logger.Info("wms record synced",
		zap.String("operation", op),
		zap.String("wms_order_id", rec.WMSOrderID),
		zap.String("status", string(rec.Status)),
	)
	return rec, nil
}

func newWMSRecord(o *model.Order) *model.WMSRecord {
	rec := &model.WMSRecord{
		ID:          uuid.New(),
		OrderID:     o.ID,
		WMSOrderID:  "WMS-" + o.ID.String(),
		Status:      model.WMSStatusPending,
		SyncHistory: []model.WMSSyncEntry{},
		Errors:      []model.WMSErrorEntry{},
	}

	if c := o.Customer; c != nil {
		wc := model.WMSCustomer{}
		if c.Email != nil {
			wc.Email = *c.Email
		}
		if c.FirstName != nil {
			wc.FirstName = *c.FirstName
		}
		if c.LastName != nil {
			wc.LastName = *c.LastName
		}
		if c.Phone != nil {
			wc.Phone = *c.Phone
		}
		rec.Customer = &wc
	} else if o.Email != nil {
		rec.Customer = &model.WMSCustomer{Email: *o.Email}
	}

	return rec
}

// appendCapped добавляет запись и оставляет только последние maxWMSLogEntries.
func appendCapped[T any](entries []T, e T) []T {
	entries = append(entries, e)
	if over := len(entries) - maxWMSLogEntries; over > 0 {
		entries = append([]T(nil), entries[over:]...)
	}
	return entries
}
