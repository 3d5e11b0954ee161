package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/ordersync/internal/model"
)

const orderColumns = `id, doc, wms_status, wms_order_id, wms_customer, wms_last_sync, created_at, updated_at`

// Запись меняется только если документ действительно отличается, поэтому повторная
// синхронизация тех же данных не трогает updated_at.
const upsertOrderSQL = `
INSERT INTO orders (id, external_order_id, order_number, name, email, financial_status, fulfillment_status, customer_external_id, doc)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (external_order_id) DO UPDATE SET
    order_number         = EXCLUDED.order_number,
    name                 = EXCLUDED.name,
    email                = EXCLUDED.email,
    financial_status     = EXCLUDED.financial_status,
    fulfillment_status   = EXCLUDED.fulfillment_status,
    customer_external_id = EXCLUDED.customer_external_id,
    doc                  = EXCLUDED.doc,
    updated_at           = now()
WHERE orders.doc IS DISTINCT FROM EXCLUDED.doc`

const insertOrderSQL = `
INSERT INTO orders (id, external_order_id, order_number, name, email, financial_status, fulfillment_status, customer_external_id, doc)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + orderColumns

func orderArgs(id uuid.UUID, d model.OrderData) ([]any, error) {
	doc, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode order %s: %w", d.ExternalOrderID, err)
	}

	var customerID *string
	if d.Customer != nil && d.Customer.ExternalID != "" {
		customerID = &d.Customer.ExternalID
	}

	return []any{
		id,
		d.ExternalOrderID,
		d.OrderNumber,
		d.Name,
		d.Email,
		d.FinancialStatus,
		d.FulfillmentStatus,
		customerID,
		doc,
	}, nil
}

// UpsertOrders вставляет или обновляет заказы по внешнему идентификатору.
// Возвращает ошибку для каждой позиции; ошибка одной записи не прерывает остальные.
func (r *PostgresRepository) UpsertOrders(ctx context.Context, orders []model.OrderData) []error {
	errs := make([]error, len(orders))
	args := make([][]any, len(orders))
	pending := 0

	for i, d := range orders {
		a, err := orderArgs(uuid.New(), d)
		if err != nil {
			errs[i] = err
			continue
		}
		args[i] = a
		pending++
	}
	if pending == 0 {
		return errs
	}

	err := r.withRetry(ctx, func() error {
		return r.upsertBatch(ctx, args)
	})
	if err == nil {
		return errs
	}

	// Пакет откатился целиком: повторяем по одной записи, чтобы отделить некорректные.
	for i, a := range args {
		if a == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		if _, err := r.pool.Exec(ctx, upsertOrderSQL, a...); err != nil {
			errs[i] = fmt.Errorf("upsert order %s: %w", orders[i].ExternalOrderID, err)
		}
	}

	return errs
}

func (r *PostgresRepository) upsertBatch(ctx context.Context, args [][]any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, a := range args {
		if a != nil {
			batch.Queue(upsertOrderSQL, a...)
		}
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch upsert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// UpsertOrder вставляет или обновляет один заказ и возвращает сохранённую запись.
func (r *PostgresRepository) UpsertOrder(ctx context.Context, d model.OrderData) (*model.Order, error) {
	a, err := orderArgs(uuid.New(), d)
	if err != nil {
		return nil, err
	}

	if _, err := r.pool.Exec(ctx, upsertOrderSQL, a...); err != nil {
		return nil, fmt.Errorf("upsert order %s: %w", d.ExternalOrderID, err)
	}

	return r.GetOrderByExternalID(ctx, d.ExternalOrderID)
}

// CreateOrder создаёт заказ вручную. Заказ с тем же внешним идентификатором даёт ErrOrderExists.
func (r *PostgresRepository) CreateOrder(ctx context.Context, d model.OrderData) (*model.Order, error) {
	a, err := orderArgs(uuid.New(), d)
	if err != nil {
		return nil, err
	}

	o, err := scanOrder(r.pool.QueryRow(ctx, insertOrderSQL, a...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrOrderExists, d.ExternalOrderID)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// GetOrder возвращает заказ по внутреннему идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetOrderByExternalID возвращает заказ по внешнему идентификатору.
func (r *PostgresRepository) GetOrderByExternalID(ctx context.Context, externalID string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_order_id = $1`, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders возвращает страницу заказов по фильтру и общее число подходящих заказов.
func (r *PostgresRepository) ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(args))))
	}

	if f.FinancialStatus != "" {
		add("financial_status = ?", f.FinancialStatus)
	}
	if f.FulfillmentStatus != "" {
		add("fulfillment_status = ?", f.FulfillmentStatus)
	}
	if f.Email != "" {
		add("lower(email) = lower(?)", f.Email)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, max(f.Offset, 0))
	query := `SELECT ` + orderColumns + ` FROM orders` + where +
		fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := make([]model.Order, 0, limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return orders, total, nil
}

// UpdateOrder применяет fn к документу заказа под блокировкой строки и сохраняет результат.
func (r *PostgresRepository) UpdateOrder(ctx context.Context, id uuid.UUID, fn func(*model.OrderData) error) (*model.Order, error) {
	return r.updateOrder(ctx, `id = $1`, id, fn)
}

// UpdateOrderByExternalID применяет fn к документу заказа, найденного по внешнему идентификатору.
func (r *PostgresRepository) UpdateOrderByExternalID(ctx context.Context, externalID string, fn func(*model.OrderData) error) (*model.Order, error) {
	return r.updateOrder(ctx, `external_order_id = $1`, externalID, fn)
}

func (r *PostgresRepository) updateOrder(ctx context.Context, where string, key any, fn func(*model.OrderData) error) (*model.Order, error) {
	var res *model.Order

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where+` FOR UPDATE`, key))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("select order: %w", err)
		}

		data := o.OrderData
		if err := fn(&data); err != nil {
			return err
		}
		// Внешний идентификатор является ключом сверки и правкой не меняется.
		data.ExternalOrderID = o.ExternalOrderID

		a, err := orderArgs(o.ID, data)
		if err != nil {
			return err
		}

		updated, err := scanOrder(tx.QueryRow(ctx,
			`UPDATE orders SET order_number = $3, name = $4, email = $5, financial_status = $6,
			        fulfillment_status = $7, customer_external_id = $8, doc = $9,
			        updated_at = CASE WHEN doc IS DISTINCT FROM $9::jsonb THEN now() ELSE updated_at END
			 WHERE id = $1 AND external_order_id = $2
			 RETURNING `+orderColumns,
			a...,
		))
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		res = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UpdateCustomerSnapshot заменяет снимок покупателя во всех его заказах и возвращает число изменённых заказов.
func (r *PostgresRepository) UpdateCustomerSnapshot(ctx context.Context, c model.Customer) (int64, error) {
	if c.ExternalID == "" {
		return 0, nil
	}

	snapshot, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("encode customer %s: %w", c.ExternalID, err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE orders
		 SET doc = jsonb_set(doc, '{customer}', $2::jsonb), updated_at = now()
		 WHERE customer_external_id = $1 AND doc->'customer' IS DISTINCT FROM $2::jsonb`,
		c.ExternalID, snapshot,
	)
	if err != nil {
		return 0, fmt.Errorf("update customer snapshot: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOrder удаляет заказ вместе с его записью WMS.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o           model.Order
		doc         []byte
		wmsStatus   *string
		wmsCustomer []byte
	)

	if err := row.Scan(&o.ID, &doc, &wmsStatus, &o.WMS.WMSOrderID, &wmsCustomer, &o.WMS.LastSync, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(doc, &o.OrderData); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", o.ID, err)
	}
	if wmsStatus != nil {
		s := model.WMSStatus(*wmsStatus)
		o.WMS.Status = &s
	}
	if len(wmsCustomer) > 0 {
		var c model.WMSCustomer
		if err := json.Unmarshal(wmsCustomer, &c); err != nil {
			return nil, fmt.Errorf("decode wms customer %s: %w", o.ID, err)
		}
		o.WMS.Customer = &c
	}
	if o.WMS.LastSync != nil {
		t := o.WMS.LastSync.UTC()
		o.WMS.LastSync = &t
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()

	return &o, nil
}
