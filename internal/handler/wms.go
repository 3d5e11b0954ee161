package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/service"
	"github.com/mmeshcher/ordersync/internal/validation"
)

type wmsOrderData struct {
	Status   *model.WMSStatus   `json:"status" validate:"omitempty,wms_status"`
	Customer *model.WMSCustomer `json:"customer"`
	Message  string             `json:"message" validate:"max=500"`
}

type wmsSyncRequest struct {
	OrderID   string       `json:"orderId" validate:"required,uuid"`
	OrderData wmsOrderData `json:"orderData"`
}

type wmsCustomerRequest struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"firstName" validate:"max=255"`
	LastName  string `json:"lastName" validate:"max=255"`
	Phone     string `json:"phone" validate:"max=64"`
}

type inventoryRequest struct {
	Items []model.InventoryItem `json:"items" validate:"required,min=1,dive"`
}

type wmsErrorResponse struct {
	Error  string           `json:"error"`
	Record *model.WMSRecord `json:"record,omitempty"`
}

// writeWMSResult отвечает записью WMS. При отказе склада запись с журналом ошибок
// возвращается вместе с кодом 500.
func (h *Handler) writeWMSResult(w http.ResponseWriter, op string, rec *model.WMSRecord, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if errors.Is(err, service.ErrGateway) {
		writeJSON(w, http.StatusInternalServerError, wmsErrorResponse{Error: err.Error(), Record: rec})
		return
	}
	h.writeError(w, op, err)
}

// ConnectWMS проверяет соединение со складом.
func (h *Handler) ConnectWMS(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.ConnectWMS(r.Context())
	if err != nil {
		h.writeError(w, "connect wms", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// UpdateInventory передаёт остатки товаров на склад.
func (h *Handler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "update inventory", err)
		return
	}

	n, err := h.service.UpdateWMSInventory(r.Context(), req.Items)
	if err != nil {
		h.writeError(w, "update inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

// SyncWMSOrder синхронизирует заказ со складом.
func (h *Handler) SyncWMSOrder(w http.ResponseWriter, r *http.Request) {
	var req wmsSyncRequest
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "sync wms order", err)
		return
	}
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	rec, err := h.service.SyncWMSOrder(r.Context(), id, service.WMSOrderData{
		Status:   req.OrderData.Status,
		Customer: req.OrderData.Customer,
		Message:  req.OrderData.Message,
	})
	h.writeWMSResult(w, "sync wms order", rec, err)
}

// GetWMSStatus возвращает запись WMS заказа.
func (h *Handler) GetWMSStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	rec, err := h.service.GetWMSStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, "get wms status", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// UpdateWMSCustomer заменяет данные покупателя в записи WMS заказа.
func (h *Handler) UpdateWMSCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req wmsCustomerRequest
	if err := validation.DecodeAndValidate(r, &req, h.validate); err != nil {
		h.writeError(w, "update wms customer", err)
		return
	}

	rec, err := h.service.UpdateWMSCustomer(r.Context(), id, model.WMSCustomer(req))
	h.writeWMSResult(w, "update wms customer", rec, err)
}
