package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/mapper"
	"github.com/mmeshcher/ordersync/internal/model"
)

// OrderPatch описывает частичную правку заказа. Nil-поля не меняются.
type OrderPatch struct {
	Email             *string
	Note              *string
	Tags              *[]string
	FinancialStatus   *string
	FulfillmentStatus *string
	ShippingAddress   *model.Address
	BillingAddress    *model.Address
}

// ListOrders возвращает страницу заказов и их общее число.
func (s *Service) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error) {
	return s.repo.ListOrders(ctx, f)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// CreateOrder создаёт заказ вручную.
func (s *Service) CreateOrder(ctx context.Context, d model.OrderData) (*model.Order, error) {
	d = mapper.Normalize(d)
	if err := checkStatuses(d); err != nil {
		return nil, err
	}

	o, err := s.repo.CreateOrder(ctx, d)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created", zap.String("external_order_id", o.ExternalOrderID))
	return o, nil
}

// UpdateOrder применяет частичную правку к заказу.
func (s *Service) UpdateOrder(ctx context.Context, id uuid.UUID, p OrderPatch) (*model.Order, error) {
	return s.repo.UpdateOrder(ctx, id, func(d *model.OrderData) error {
		if p.Email != nil {
			d.Email = p.Email
		}
		if p.Note != nil {
			d.Note = p.Note
		}
		if p.Tags != nil {
			d.Tags = *p.Tags
		}
		if p.FinancialStatus != nil {
			d.FinancialStatus = *p.FinancialStatus
		}
		if p.FulfillmentStatus != nil {
			d.FulfillmentStatus = *p.FulfillmentStatus
		}
		if p.ShippingAddress != nil {
			d.ShippingAddress = *p.ShippingAddress
		}
		if p.BillingAddress != nil {
			d.BillingAddress = *p.BillingAddress
		}

		*d = mapper.Normalize(*d)
		return checkPatchStatuses(*d, p)
	})
}

// DeleteOrder удаляет заказ.
func (s *Service) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.String("order_id", id.String()))
	return nil
}

// PushOrderToSource отправляет в витрину изменяемые поля заказа: email, примечание, теги и адрес доставки.
func (s *Service) PushOrderToSource(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	if s.source == nil {
		return nil, ErrSourceNotConfigured
	}

	o, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.source.UpdateOrder(ctx, o.ExternalOrderID, mapper.ToOrderUpdate(*o)); err != nil {
		s.logger.Error("push order failed",
			zap.String("operation", "push_order"),
			zap.String("external_order_id", o.ExternalOrderID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("push order %s: %w", o.ExternalOrderID, err)
	}

	return o, nil
}

// checkPatchStatuses проверяет только статусы, заданные правкой. Синхронизированный
// заказ может нести статус витрины вне известного списка, и правка других полей его не трогает.
func checkPatchStatuses(d model.OrderData, p OrderPatch) error {
	if p.FinancialStatus != nil && !model.IsFinancialStatus(d.FinancialStatus) {
		return fmt.Errorf("%w: financial_status %q", ErrInvalidStatus, d.FinancialStatus)
	}
	if p.FulfillmentStatus != nil && !model.IsFulfillmentStatus(d.FulfillmentStatus) {
		return fmt.Errorf("%w: fulfillment_status %q", ErrInvalidStatus, d.FulfillmentStatus)
	}
	return nil
}

func checkStatuses(d model.OrderData) error {
	if !model.IsFinancialStatus(d.FinancialStatus) {
		return fmt.Errorf("%w: financial_status %q", ErrInvalidStatus, d.FinancialStatus)
	}
	if !model.IsFulfillmentStatus(d.FulfillmentStatus) {
		return fmt.Errorf("%w: fulfillment_status %q", ErrInvalidStatus, d.FulfillmentStatus)
	}
	if strings.TrimSpace(d.ExternalOrderID) == "" {
		return mapper.ErrMissingExternalID
	}
	return nil
}
