package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/mapper"
	"github.com/mmeshcher/ordersync/internal/model"
)

// SyncOrders сопоставляет и сохраняет пакет заказов витрины.
// Ошибка отдельного заказа учитывается в счётчике и не прерывает пакет.
func (s *Service) SyncOrders(ctx context.Context, raws []json.RawMessage) model.SyncResult {
	var res model.SyncResult

	docs := make([]model.OrderData, 0, len(raws))
	for i, raw := range raws {
		d, err := mapRaw(raw)
		if err != nil {
			res.ErrorCount++
			s.logger.Warn("order skipped",
				zap.String("operation", "sync_orders"),
				zap.Int("index", i),
				zap.String("external_order_id", d.ExternalOrderID),
				zap.Error(err),
			)
			continue
		}
		docs = append(docs, d)
	}

	if len(docs) == 0 {
		return res
	}

	for i, err := range s.repo.UpsertOrders(ctx, docs) {
		if err != nil {
			res.ErrorCount++
			s.logger.Error("order upsert failed",
				zap.String("operation", "sync_orders"),
				zap.String("external_order_id", docs[i].ExternalOrderID),
				zap.Error(err),
			)
			continue
		}
		res.SyncedCount++
	}

	s.logger.Info("orders synced",
		zap.Int("received", len(raws)),
		zap.Int("synced", res.SyncedCount),
		zap.Int("errors", res.ErrorCount),
	)
	return res
}

// SyncFromSource загружает все заказы витрины и синхронизирует их.
// Ошибка загрузки прерывает синхронизацию до любых записей.
func (s *Service) SyncFromSource(ctx context.Context) (model.SyncResult, error) {
	if s.source == nil {
		return model.SyncResult{}, ErrSourceNotConfigured
	}

	raws, err := s.source.FetchAllOrders(ctx)
	if err != nil {
		s.logger.Error("fetch orders failed", zap.String("operation", "sync_from_source"), zap.Error(err))
		return model.SyncResult{}, fmt.Errorf("fetch orders: %w", err)
	}

	return s.SyncOrders(ctx, raws), nil
}

// mapRaw разбирает и сопоставляет один заказ. Частично разобранный документ
// возвращается вместе с ошибкой, чтобы его идентификатор попал в лог.
func mapRaw(raw json.RawMessage) (model.OrderData, error) {
	o, err := mapper.Decode(raw)
	if err != nil {
		return model.OrderData{}, err
	}

	d, err := mapper.MapOrder(o)
	if err != nil {
		if errors.Is(err, mapper.ErrMissingExternalID) {
			return model.OrderData{Name: o.Name}, err
		}
		return model.OrderData{ExternalOrderID: o.ID.String()}, err
	}
	return d, nil
}
