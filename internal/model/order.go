package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Финансовые статусы заказа.
const (
	FinancialStatusPending           = "pending"
	FinancialStatusAuthorized        = "authorized"
	FinancialStatusPartiallyPaid     = "partially_paid"
	FinancialStatusPaid              = "paid"
	FinancialStatusPartiallyRefunded = "partially_refunded"
	FinancialStatusRefunded          = "refunded"
	FinancialStatusVoided            = "voided"
	FinancialStatusExpired           = "expired"
)

// Статусы выполнения заказа. Отсутствующий статус источника хранится как unfulfilled.
const (
	FulfillmentStatusUnfulfilled = "unfulfilled"
	FulfillmentStatusPartial     = "partial"
	FulfillmentStatusFulfilled   = "fulfilled"
	FulfillmentStatusRestocked   = "restocked"
)

// IsFinancialStatus сообщает, является ли значение известным финансовым статусом.
func IsFinancialStatus(s string) bool {
	switch s {
	case FinancialStatusPending, FinancialStatusAuthorized, FinancialStatusPartiallyPaid, FinancialStatusPaid,
		FinancialStatusPartiallyRefunded, FinancialStatusRefunded, FinancialStatusVoided, FinancialStatusExpired:
		return true
	default:
		return false
	}
}

// IsFulfillmentStatus сообщает, является ли значение известным статусом выполнения.
func IsFulfillmentStatus(s string) bool {
	switch s {
	case FulfillmentStatusUnfulfilled, FulfillmentStatusPartial, FulfillmentStatusFulfilled, FulfillmentStatusRestocked:
		return true
	default:
		return false
	}
}

// Money описывает сумму в конкретной валюте.
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
}

// MoneySet описывает сумму в валюте магазина и в валюте покупателя.
// Отсутствующие части не сериализуются, поэтому пустой набор выглядит как {}.
type MoneySet struct {
	ShopMoney        *Money `json:"shop_money,omitempty"`
	PresentmentMoney *Money `json:"presentment_money,omitempty"`
}

// Address описывает адрес доставки или оплаты. Отсутствующие поля хранятся как null.
type Address struct {
	FirstName    *string  `json:"first_name"`
	LastName     *string  `json:"last_name"`
	Name         *string  `json:"name"`
	Company      *string  `json:"company"`
	Address1     *string  `json:"address1"`
	Address2     *string  `json:"address2"`
	City         *string  `json:"city"`
	Province     *string  `json:"province"`
	ProvinceCode *string  `json:"province_code"`
	Country      *string  `json:"country"`
	CountryCode  *string  `json:"country_code"`
	Zip          *string  `json:"zip"`
	Phone        *string  `json:"phone"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// MarketingConsent описывает согласие покупателя на рассылку.
type MarketingConsent struct {
	State            string     `json:"state"`
	OptInLevel       string     `json:"opt_in_level"`
	ConsentUpdatedAt *time.Time `json:"consent_updated_at"`
}

// Customer содержит снимок данных покупателя на момент синхронизации.
type Customer struct {
	ExternalID            string            `json:"external_id"`
	Email                 *string           `json:"email"`
	FirstName             *string           `json:"first_name"`
	LastName              *string           `json:"last_name"`
	Phone                 *string           `json:"phone"`
	State                 string            `json:"state"`
	VerifiedEmail         bool              `json:"verified_email"`
	AcceptsMarketing      bool              `json:"accepts_marketing"`
	EmailMarketingConsent *MarketingConsent `json:"email_marketing_consent"`
	SMSMarketingConsent   *MarketingConsent `json:"sms_marketing_consent"`
	OrdersCount           int               `json:"orders_count"`
	TotalSpent            decimal.Decimal   `json:"total_spent"`
	Tags                  []string          `json:"tags"`
	Note                  *string           `json:"note"`
}

// TaxLine описывает налог, применённый к позиции или доставке.
type TaxLine struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	PriceSet MoneySet        `json:"price_set"`
	Rate     decimal.Decimal `json:"rate"`
}

// DiscountAllocation описывает часть скидки, распределённую на позицию.
type DiscountAllocation struct {
	Amount                   decimal.Decimal `json:"amount"`
	AmountSet                MoneySet        `json:"amount_set"`
	DiscountApplicationIndex int             `json:"discount_application_index"`
}

// LineItem описывает позицию заказа.
type LineItem struct {
	ExternalID          string               `json:"external_id"`
	ProductID           string               `json:"product_id"`
	VariantID           string               `json:"variant_id"`
	Title               string               `json:"title"`
	VariantTitle        string               `json:"variant_title"`
	Name                string               `json:"name"`
	SKU                 string               `json:"sku"`
	Vendor              string               `json:"vendor"`
	Quantity            int                  `json:"quantity"`
	Price               decimal.Decimal      `json:"price"`
	PriceSet            MoneySet             `json:"price_set"`
	TotalDiscount       decimal.Decimal      `json:"total_discount"`
	TotalDiscountSet    MoneySet             `json:"total_discount_set"`
	Grams               int                  `json:"grams"`
	RequiresShipping    bool                 `json:"requires_shipping"`
	Taxable             bool                 `json:"taxable"`
	FulfillmentStatus   *string              `json:"fulfillment_status"`
	TaxLines            []TaxLine            `json:"tax_lines"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

// ShippingLine описывает способ доставки заказа.
type ShippingLine struct {
	ExternalID          string               `json:"external_id"`
	Title               string               `json:"title"`
	Code                string               `json:"code"`
	Source              string               `json:"source"`
	Price               decimal.Decimal      `json:"price"`
	PriceSet            MoneySet             `json:"price_set"`
	DiscountedPrice     decimal.Decimal      `json:"discounted_price"`
	DiscountedPriceSet  MoneySet             `json:"discounted_price_set"`
	TaxLines            []TaxLine            `json:"tax_lines"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

// NoteAttribute описывает произвольную пару ключ/значение заказа.
type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DiscountCode описывает промокод, применённый к заказу.
type DiscountCode struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
	Type   string          `json:"type"`
}

// OrderData содержит данные заказа, полученные из витрины.
// Это документ, который целиком перезаписывается при каждой синхронизации.
type OrderData struct {
	ExternalOrderID       string          `json:"external_order_id" validate:"required"`
	OrderNumber           string          `json:"order_number"`
	Name                  string          `json:"name"`
	Email                 *string         `json:"email"`
	Phone                 *string         `json:"phone"`
	Currency              string          `json:"currency"`
	PresentmentCurrency   string          `json:"presentment_currency"`
	TotalPrice            decimal.Decimal `json:"total_price"`
	TotalPriceSet         MoneySet        `json:"total_price_set"`
	SubtotalPrice         decimal.Decimal `json:"subtotal_price"`
	SubtotalPriceSet      MoneySet        `json:"subtotal_price_set"`
	TotalTax              decimal.Decimal `json:"total_tax"`
	TotalTaxSet           MoneySet        `json:"total_tax_set"`
	TotalDiscounts        decimal.Decimal `json:"total_discounts"`
	TotalDiscountsSet     MoneySet        `json:"total_discounts_set"`
	TotalShippingPriceSet MoneySet        `json:"total_shipping_price_set"`
	FinancialStatus       string          `json:"financial_status"`
	FulfillmentStatus     string          `json:"fulfillment_status"`
	Customer              *Customer       `json:"customer"`
	ShippingAddress       Address         `json:"shipping_address"`
	BillingAddress        Address         `json:"billing_address"`
	LineItems             []LineItem      `json:"line_items"`
	ShippingLines         []ShippingLine  `json:"shipping_lines"`
	DiscountCodes         []DiscountCode  `json:"discount_codes"`
	Tags                  []string        `json:"tags"`
	Note                  *string         `json:"note"`
	NoteAttributes        []NoteAttribute `json:"note_attributes"`
	SourceName            string          `json:"source_name"`
	PaymentGatewayNames   []string        `json:"payment_gateway_names"`
	CancelReason          *string         `json:"cancel_reason"`
	ExternalCreatedAt     *time.Time      `json:"external_created_at"`
	ExternalUpdatedAt     *time.Time      `json:"external_updated_at"`
	ProcessedAt           *time.Time      `json:"processed_at"`
	ClosedAt              *time.Time      `json:"closed_at"`
	CancelledAt           *time.Time      `json:"cancelled_at"`
}

// OrderWMS содержит зеркало состояния записи WMS на заказе.
type OrderWMS struct {
	Status     *WMSStatus   `json:"status"`
	WMSOrderID *string      `json:"wms_order_id"`
	Customer   *WMSCustomer `json:"customer"`
	LastSync   *time.Time   `json:"last_sync"`
}

// Order описывает сохранённый заказ.
type Order struct {
	ID uuid.UUID `json:"id"`
	OrderData
	WMS       OrderWMS  `json:"wms"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderFilter описывает параметры выборки списка заказов.
type OrderFilter struct {
	FinancialStatus   string
	FulfillmentStatus string
	Email             string
	Limit             int
	Offset            int
}
