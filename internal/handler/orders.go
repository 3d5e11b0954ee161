package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/service"
	"github.com/mmeshcher/ordersync/internal/validation"
)

const (
	defaultPageSize = 50
	maxPageSize     = 250
)

type syncRequest struct {
	Orders []json.RawMessage `json:"orders" validate:"required"`
}

type syncResponse struct {
	Message string `json:"message"`
	model.SyncResult
}

type ordersResponse struct {
	Orders []model.Order `json:"orders"`
	Total  int           `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}

type updateOrderRequest struct {
	Email             *string        `json:"email" validate:"omitempty,email"`
	Note              *string        `json:"note" validate:"omitempty,max=5000"`
	Tags              *[]string      `json:"tags" validate:"omitempty,dive,max=255"`
	FinancialStatus   *string        `json:"financial_status" validate:"omitempty,financial_status"`
	FulfillmentStatus *string        `json:"fulfillment_status" validate:"omitempty,fulfillment_status"`
	ShippingAddress   *model.Address `json:"shipping_address"`
	BillingAddress    *model.Address `json:"billing_address"`
}

func newSyncResponse(res model.SyncResult) syncResponse {
	return syncResponse{
		Message:    fmt.Sprintf("Synced %d orders, %d failed", res.SyncedCount, res.ErrorCount),
		SyncResult: res,
	}
}

// SyncOrders принимает пакет заказов в формате витрины и сохраняет их.
func (h *Handler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "sync orders", err)
		return
	}

	res := h.service.SyncOrders(r.Context(), req.Orders)
	writeJSON(w, http.StatusOK, newSyncResponse(res))
}

// SyncFromShopify забирает все заказы из витрины и сохраняет их.
func (h *Handler) SyncFromShopify(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.SyncFromSource(r.Context())
	if err != nil {
		h.writeError(w, "sync from shopify", err)
		return
	}
	writeJSON(w, http.StatusOK, newSyncResponse(res))
}

// ListOrders возвращает страницу заказов с фильтрами по статусам и email.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := queryInt(r, "page", 1, 1<<20)
	limit := queryInt(r, "limit", defaultPageSize, maxPageSize)

	f := model.OrderFilter{
		FinancialStatus:   strings.ToLower(strings.TrimSpace(q.Get("financial_status"))),
		FulfillmentStatus: strings.ToLower(strings.TrimSpace(q.Get("fulfillment_status"))),
		Email:             strings.TrimSpace(q.Get("email")),
		Limit:             limit,
		Offset:            (page - 1) * limit,
	}

	orders, total, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		h.writeError(w, "list orders", err)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeJSON(w, http.StatusOK, ordersResponse{Orders: orders, Total: total, Page: page, Limit: limit})
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// CreateOrder создаёт заказ вручную.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req model.OrderData
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "create order", err)
		return
	}

	o, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, "create order", err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// UpdateOrder применяет частичную правку к заказу.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateOrderRequest
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "update order", err)
		return
	}

	o, err := h.service.UpdateOrder(r.Context(), id, service.OrderPatch{
		Email:             req.Email,
		Note:              req.Note,
		Tags:              req.Tags,
		FinancialStatus:   req.FinancialStatus,
		FulfillmentStatus: req.FulfillmentStatus,
		ShippingAddress:   req.ShippingAddress,
		BillingAddress:    req.BillingAddress,
	})
	if err != nil {
		h.writeError(w, "update order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// DeleteOrder удаляет заказ вместе с его записью WMS.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, "delete order", err)
		return
	}

	h.logger.Info("order deleted", zap.String("order_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// PushOrder отправляет локальные правки заказа в витрину.
func (h *Handler) PushOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.service.PushOrderToSource(r.Context(), id)
	if err != nil {
		h.writeError(w, "push order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
