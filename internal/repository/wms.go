package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/ordersync/internal/model"
)

// GetWMSRecord возвращает запись WMS заказа. Отсутствие записи даёт ErrWMSRecordNotFound.
func (r *PostgresRepository) GetWMSRecord(ctx context.Context, orderID uuid.UUID) (*model.WMSRecord, error) {
	var (
		rec      model.WMSRecord
		status   string
		customer []byte
		history  []byte
		errs     []byte
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, order_id, wms_order_id, status, customer, sync_history, errors, last_sync, created_at, updated_at
		 FROM wms_records WHERE order_id = $1`,
		orderID,
	).Scan(&rec.ID, &rec.OrderID, &rec.WMSOrderID, &status, &customer, &history, &errs, &rec.LastSync, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWMSRecordNotFound
		}
		return nil, fmt.Errorf("get wms record: %w", err)
	}

	rec.Status = model.WMSStatus(status)
	if len(customer) > 0 && string(customer) != "null" {
		rec.Customer = &model.WMSCustomer{}
		if err := json.Unmarshal(customer, rec.Customer); err != nil {
			return nil, fmt.Errorf("decode wms customer: %w", err)
		}
	}
	if err := json.Unmarshal(history, &rec.SyncHistory); err != nil {
		return nil, fmt.Errorf("decode sync history: %w", err)
	}
	if err := json.Unmarshal(errs, &rec.Errors); err != nil {
		return nil, fmt.Errorf("decode wms errors: %w", err)
	}
	if rec.SyncHistory == nil {
		rec.SyncHistory = []model.WMSSyncEntry{}
	}
	if rec.Errors == nil {
		rec.Errors = []model.WMSErrorEntry{}
	}
	if rec.LastSync != nil {
		t := rec.LastSync.UTC()
		rec.LastSync = &t
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()

	return &rec, nil
}

// SaveWMSRecord сохраняет запись WMS и в той же транзакции переносит её статус
// и данные покупателя на заказ.
func (r *PostgresRepository) SaveWMSRecord(ctx context.Context, rec *model.WMSRecord) error {
	customer, err := json.Marshal(rec.Customer)
	if err != nil {
		return fmt.Errorf("encode wms customer: %w", err)
	}
	if rec.Customer == nil {
		customer = nil
	}
	if rec.SyncHistory == nil {
		rec.SyncHistory = []model.WMSSyncEntry{}
	}
	if rec.Errors == nil {
		rec.Errors = []model.WMSErrorEntry{}
	}
	history, err := json.Marshal(rec.SyncHistory)
	if err != nil {
		return fmt.Errorf("encode sync history: %w", err)
	}
	errs, err := json.Marshal(rec.Errors)
	if err != nil {
		return fmt.Errorf("encode wms errors: %w", err)
	}

	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx,
			`INSERT INTO wms_records (id, order_id, wms_order_id, status, customer, sync_history, errors, last_sync)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (order_id) DO UPDATE SET
			     status       = EXCLUDED.status,
			     customer     = EXCLUDED.customer,
			     sync_history = EXCLUDED.sync_history,
			     errors       = EXCLUDED.errors,
			     last_sync    = EXCLUDED.last_sync,
			     updated_at   = now()
			 RETURNING id, created_at, updated_at`,
			rec.ID, rec.OrderID, rec.WMSOrderID, string(rec.Status), customer, history, errs, rec.LastSync,
		).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("save wms record: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE orders
			 SET wms_status = $2, wms_order_id = $3, wms_customer = $4, wms_last_sync = $5, updated_at = now()
			 WHERE id = $1`,
			rec.OrderID, string(rec.Status), rec.WMSOrderID, customer, rec.LastSync,
		)
		if err != nil {
			return fmt.Errorf("mirror wms state: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrOrderNotFound
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
