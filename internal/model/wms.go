package model

import (
	"time"

	"github.com/google/uuid"
)

// WMSStatus описывает статус заказа на складе. Порядок переходов не проверяется.
type WMSStatus string

const (
	WMSStatusPending    WMSStatus = "pending"
	WMSStatusProcessing WMSStatus = "processing"
	WMSStatusPicking    WMSStatus = "picking"
	WMSStatusPacking    WMSStatus = "packing"
	WMSStatusShipped    WMSStatus = "shipped"
	WMSStatusDelivered  WMSStatus = "delivered"
	WMSStatusCancelled  WMSStatus = "cancelled"
	WMSStatusError      WMSStatus = "error"
)

// IsValid сообщает, является ли статус допустимым.
func (s WMSStatus) IsValid() bool {
	switch s {
	case WMSStatusPending, WMSStatusProcessing, WMSStatusPicking, WMSStatusPacking,
		WMSStatusShipped, WMSStatusDelivered, WMSStatusCancelled, WMSStatusError:
		return true
	default:
		return false
	}
}

// WMSCustomer содержит подмножество данных покупателя, передаваемое на склад.
type WMSCustomer struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// WMSSyncEntry описывает запись журнала синхронизации со складом.
type WMSSyncEntry struct {
	Status    WMSStatus `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WMSErrorEntry описывает запись журнала ошибок склада.
type WMSErrorEntry struct {
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// WMSRecord описывает запись отслеживания заказа на складе. Одна запись на заказ.
type WMSRecord struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"orderId"`
	WMSOrderID  string          `json:"wmsOrderId"`
	Status      WMSStatus       `json:"status"`
	Customer    *WMSCustomer    `json:"customer"`
	SyncHistory []WMSSyncEntry  `json:"syncHistory"`
	Errors      []WMSErrorEntry `json:"errors"`
	LastSync    *time.Time      `json:"lastSync"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// InventoryItem описывает остаток товара, передаваемый на склад.
type InventoryItem struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}
