package shopify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FlexString принимает из JSON строку, число или логическое значение и хранит их текстовое представление.
// Объекты и массивы считаются отсутствующим значением.
type FlexString struct {
	Value string
	Valid bool
}

// UnmarshalJSON реализует json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = FlexString{}

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f.Value, f.Valid = s, true
	case '{', '[':
		return nil
	default:
		f.Value, f.Valid = string(data), true
	}
	return nil
}

// MarshalJSON реализует json.Marshaler.
func (f FlexString) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// String возвращает значение или пустую строку.
func (f FlexString) String() string {
	return f.Value
}

// Ptr возвращает указатель на непустое значение или nil.
func (f FlexString) Ptr() *string {
	if !f.Valid || f.Value == "" {
		return nil
	}
	v := f.Value
	return &v
}

// Str создаёт заполненное значение FlexString.
func Str(v string) FlexString {
	return FlexString{Value: v, Valid: true}
}

// ErrInvalidTags возвращается, если теги заданы не строкой и не списком строк.
var ErrInvalidTags = errors.New("tags must be a comma-separated string or a list of strings")

// Tags принимает теги в виде строки через запятую или списка строк.
// Нормализация значений выполняется в пакете mapper.
type Tags []string

// UnmarshalJSON реализует json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = nil

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = strings.Split(s, ",")
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTags, err)
		}
		*t = list
		return nil
	default:
		return ErrInvalidTags
	}
}

// Money описывает сумму в ответе API.
type Money struct {
	Amount       FlexString `json:"amount"`
	CurrencyCode string     `json:"currency_code"`
}

// MoneySet описывает сумму в двух валютах.
type MoneySet struct {
	ShopMoney        *Money `json:"shop_money"`
	PresentmentMoney *Money `json:"presentment_money"`
}

// Address описывает адрес в ответе API.
type Address struct {
	FirstName    FlexString `json:"first_name"`
	LastName     FlexString `json:"last_name"`
	Name         FlexString `json:"name"`
	Company      FlexString `json:"company"`
	Address1     FlexString `json:"address1"`
	Address2     FlexString `json:"address2"`
	City         FlexString `json:"city"`
	Province     FlexString `json:"province"`
	ProvinceCode FlexString `json:"province_code"`
	Country      FlexString `json:"country"`
	CountryCode  FlexString `json:"country_code"`
	Zip          FlexString `json:"zip"`
	Phone        FlexString `json:"phone"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
}

// MarketingConsent описывает согласие на рассылку.
type MarketingConsent struct {
	State            string     `json:"state"`
	OptInLevel       string     `json:"opt_in_level"`
	ConsentUpdatedAt FlexString `json:"consent_updated_at"`
}

// Customer описывает покупателя в ответе API и в вебхуках customers/*.
type Customer struct {
	ID                    FlexString        `json:"id"`
	Email                 FlexString        `json:"email"`
	FirstName             FlexString        `json:"first_name"`
	LastName              FlexString        `json:"last_name"`
	Phone                 FlexString        `json:"phone"`
	State                 string            `json:"state"`
	VerifiedEmail         bool              `json:"verified_email"`
	AcceptsMarketing      bool              `json:"accepts_marketing"`
	EmailMarketingConsent *MarketingConsent `json:"email_marketing_consent"`
	SMSMarketingConsent   *MarketingConsent `json:"sms_marketing_consent"`
	OrdersCount           int               `json:"orders_count"`
	TotalSpent            FlexString        `json:"total_spent"`
	Tags                  Tags              `json:"tags"`
	Note                  FlexString        `json:"note"`
}

// TaxLine описывает налог.
type TaxLine struct {
	Title    string     `json:"title"`
	Price    FlexString `json:"price"`
	PriceSet *MoneySet  `json:"price_set"`
	Rate     FlexString `json:"rate"`
}

// DiscountAllocation описывает распределение скидки.
type DiscountAllocation struct {
	Amount                   FlexString `json:"amount"`
	AmountSet                *MoneySet  `json:"amount_set"`
	DiscountApplicationIndex int        `json:"discount_application_index"`
}

// LineItem описывает позицию заказа.
type LineItem struct {
	ID                  FlexString           `json:"id"`
	ProductID           FlexString           `json:"product_id"`
	VariantID           FlexString           `json:"variant_id"`
	Title               string               `json:"title"`
	VariantTitle        FlexString           `json:"variant_title"`
	Name                string               `json:"name"`
	SKU                 FlexString           `json:"sku"`
	Vendor              FlexString           `json:"vendor"`
	Quantity            int                  `json:"quantity"`
	Price               FlexString           `json:"price"`
	PriceSet            *MoneySet            `json:"price_set"`
	TotalDiscount       FlexString           `json:"total_discount"`
	TotalDiscountSet    *MoneySet            `json:"total_discount_set"`
	Grams               int                  `json:"grams"`
	RequiresShipping    bool                 `json:"requires_shipping"`
	Taxable             bool                 `json:"taxable"`
	FulfillmentStatus   FlexString           `json:"fulfillment_status"`
	TaxLines            []TaxLine            `json:"tax_lines"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

// ShippingLine описывает способ доставки.
type ShippingLine struct {
	ID                  FlexString           `json:"id"`
	Title               string               `json:"title"`
	Code                FlexString           `json:"code"`
	Source              FlexString           `json:"source"`
	Price               FlexString           `json:"price"`
	PriceSet            *MoneySet            `json:"price_set"`
	DiscountedPrice     FlexString           `json:"discounted_price"`
	DiscountedPriceSet  *MoneySet            `json:"discounted_price_set"`
	TaxLines            []TaxLine            `json:"tax_lines"`
	DiscountAllocations []DiscountAllocation `json:"discount_allocations"`
}

// NoteAttribute описывает пару ключ/значение.
type NoteAttribute struct {
	Name  string     `json:"name"`
	Value FlexString `json:"value"`
}

// DiscountCode описывает промокод.
type DiscountCode struct {
	Code   string     `json:"code"`
	Amount FlexString `json:"amount"`
	Type   string     `json:"type"`
}

// Order описывает заказ в ответе API и в вебхуках orders/*.
type Order struct {
	ID                    FlexString      `json:"id"`
	OrderNumber           FlexString      `json:"order_number"`
	Name                  string          `json:"name"`
	Email                 FlexString      `json:"email"`
	Phone                 FlexString      `json:"phone"`
	Currency              string          `json:"currency"`
	PresentmentCurrency   string          `json:"presentment_currency"`
	TotalPrice            FlexString      `json:"total_price"`
	TotalPriceSet         *MoneySet       `json:"total_price_set"`
	SubtotalPrice         FlexString      `json:"subtotal_price"`
	SubtotalPriceSet      *MoneySet       `json:"subtotal_price_set"`
	TotalTax              FlexString      `json:"total_tax"`
	TotalTaxSet           *MoneySet       `json:"total_tax_set"`
	TotalDiscounts        FlexString      `json:"total_discounts"`
	TotalDiscountsSet     *MoneySet       `json:"total_discounts_set"`
	TotalShippingPriceSet *MoneySet       `json:"total_shipping_price_set"`
	FinancialStatus       FlexString      `json:"financial_status"`
	FulfillmentStatus     FlexString      `json:"fulfillment_status"`
	Customer              *Customer       `json:"customer"`
	ShippingAddress       *Address        `json:"shipping_address"`
	BillingAddress        *Address        `json:"billing_address"`
	LineItems             []LineItem      `json:"line_items"`
	ShippingLines         []ShippingLine  `json:"shipping_lines"`
	DiscountCodes         []DiscountCode  `json:"discount_codes"`
	Tags                  Tags            `json:"tags"`
	Note                  FlexString      `json:"note"`
	NoteAttributes        []NoteAttribute `json:"note_attributes"`
	SourceName            FlexString      `json:"source_name"`
	PaymentGatewayNames   []string        `json:"payment_gateway_names"`
	CancelReason          FlexString      `json:"cancel_reason"`
	CreatedAt             FlexString      `json:"created_at"`
	UpdatedAt             FlexString      `json:"updated_at"`
	ProcessedAt           FlexString      `json:"processed_at"`
	ClosedAt              FlexString      `json:"closed_at"`
	CancelledAt           FlexString      `json:"cancelled_at"`
}

// AddressUpdate описывает изменяемые поля адреса при исходящем обновлении.
type AddressUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Company   *string `json:"company,omitempty"`
	Address1  *string `json:"address1,omitempty"`
	Address2  *string `json:"address2,omitempty"`
	City      *string `json:"city,omitempty"`
	Province  *string `json:"province,omitempty"`
	Country   *string `json:"country,omitempty"`
	Zip       *string `json:"zip,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// OrderUpdate описывает частичное обновление заказа в витрине.
type OrderUpdate struct {
	ID              string         `json:"id"`
	Email           *string        `json:"email,omitempty"`
	Note            *string        `json:"note,omitempty"`
	Tags            string         `json:"tags"`
	ShippingAddress *AddressUpdate `json:"shipping_address,omitempty"`
}

type ordersPage struct {
	Orders []json.RawMessage `json:"orders"`
}
