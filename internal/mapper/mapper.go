// Package mapper преобразует заказы витрины во внутренний формат и обратно.
//
// Все функции пакета чистые: они не выполняют ввод-вывод и детерминированы,
// поэтому повторная синхронизация одного и того же заказа даёт тот же документ.
package mapper

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/shopify"
)

// ErrMissingExternalID возвращается, если у заказа нет внешнего идентификатора.
var ErrMissingExternalID = errors.New("order has no external id")

// MappingError описывает структурно некорректные входные данные.
type MappingError struct {
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("mapping error: %v", e.Err)
	}
	return fmt.Sprintf("mapping error: %s: %v", e.Field, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// Decode разбирает сырой JSON заказа в типизированное промежуточное представление.
func Decode(raw []byte) (*shopify.Order, error) {
	var o shopify.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, &MappingError{Field: fieldOf(err), Err: err}
	}
	return &o, nil
}

// DecodeCustomer разбирает сырой JSON покупателя.
func DecodeCustomer(raw []byte) (*shopify.Customer, error) {
	var c shopify.Customer
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, &MappingError{Field: fieldOf(err), Err: err}
	}
	return &c, nil
}

func fieldOf(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Field
	}
	if errors.Is(err, shopify.ErrInvalidTags) {
		return "tags"
	}
	return ""
}

// MapOrder преобразует заказ витрины в документ заказа.
func MapOrder(o *shopify.Order) (model.OrderData, error) {
	if o == nil {
		return model.OrderData{}, &MappingError{Err: errors.New("order is null")}
	}

	externalID := strings.TrimSpace(o.ID.String())
	if externalID == "" {
		return model.OrderData{}, ErrMissingExternalID
	}

	orderNumber := strings.TrimSpace(o.OrderNumber.String())
	if orderNumber == "" {
		orderNumber = strings.TrimPrefix(strings.TrimSpace(o.Name), "#")
	}

	data := model.OrderData{
		ExternalOrderID:       externalID,
		OrderNumber:           orderNumber,
		Name:                  o.Name,
		Email:                 o.Email.Ptr(),
		Phone:                 o.Phone.Ptr(),
		Currency:              o.Currency,
		PresentmentCurrency:   o.PresentmentCurrency,
		TotalPrice:            ParseMoney(o.TotalPrice),
		TotalPriceSet:         MapMoneySet(o.TotalPriceSet),
		SubtotalPrice:         ParseMoney(o.SubtotalPrice),
		SubtotalPriceSet:      MapMoneySet(o.SubtotalPriceSet),
		TotalTax:              ParseMoney(o.TotalTax),
		TotalTaxSet:           MapMoneySet(o.TotalTaxSet),
		TotalDiscounts:        ParseMoney(o.TotalDiscounts),
		TotalDiscountsSet:     MapMoneySet(o.TotalDiscountsSet),
		TotalShippingPriceSet: MapMoneySet(o.TotalShippingPriceSet),
		FinancialStatus:       financialStatus(o.FinancialStatus),
		FulfillmentStatus:     fulfillmentStatus(o.FulfillmentStatus),
		Customer:              MapCustomer(o.Customer),
		ShippingAddress:       MapAddress(o.ShippingAddress),
		BillingAddress:        MapAddress(o.BillingAddress),
		LineItems:             make([]model.LineItem, 0, len(o.LineItems)),
		ShippingLines:         make([]model.ShippingLine, 0, len(o.ShippingLines)),
		DiscountCodes:         make([]model.DiscountCode, 0, len(o.DiscountCodes)),
		Tags:                  NormalizeTags(o.Tags),
		Note:                  o.Note.Ptr(),
		NoteAttributes:        make([]model.NoteAttribute, 0, len(o.NoteAttributes)),
		SourceName:            o.SourceName.String(),
		PaymentGatewayNames:   nonNilStrings(o.PaymentGatewayNames),
		CancelReason:          o.CancelReason.Ptr(),
		ExternalCreatedAt:     ParseTime(o.CreatedAt),
		ExternalUpdatedAt:     ParseTime(o.UpdatedAt),
		ProcessedAt:           ParseTime(o.ProcessedAt),
		ClosedAt:              ParseTime(o.ClosedAt),
		CancelledAt:           ParseTime(o.CancelledAt),
	}

	for _, li := range o.LineItems {
		data.LineItems = append(data.LineItems, MapLineItem(li))
	}
	for _, sl := range o.ShippingLines {
		data.ShippingLines = append(data.ShippingLines, MapShippingLine(sl))
	}
	for _, dc := range o.DiscountCodes {
		data.DiscountCodes = append(data.DiscountCodes, model.DiscountCode{
			Code:   dc.Code,
			Amount: ParseMoney(dc.Amount),
			Type:   dc.Type,
		})
	}
	for _, na := range o.NoteAttributes {
		data.NoteAttributes = append(data.NoteAttributes, model.NoteAttribute{
			Name:  na.Name,
			Value: na.Value.String(),
		})
	}

	return data, nil
}

// MapCustomer преобразует покупателя витрины в снимок покупателя. Отсутствующий покупатель даёт nil.
func MapCustomer(c *shopify.Customer) *model.Customer {
	if c == nil {
		return nil
	}

	return &model.Customer{
		ExternalID:            c.ID.String(),
		Email:                 c.Email.Ptr(),
		FirstName:             c.FirstName.Ptr(),
		LastName:              c.LastName.Ptr(),
		Phone:                 c.Phone.Ptr(),
		State:                 c.State,
		VerifiedEmail:         c.VerifiedEmail,
		AcceptsMarketing:      c.AcceptsMarketing,
		EmailMarketingConsent: mapConsent(c.EmailMarketingConsent),
		SMSMarketingConsent:   mapConsent(c.SMSMarketingConsent),
		OrdersCount:           c.OrdersCount,
		TotalSpent:            ParseMoney(c.TotalSpent),
		Tags:                  NormalizeTags(c.Tags),
		Note:                  c.Note.Ptr(),
	}
}

func mapConsent(c *shopify.MarketingConsent) *model.MarketingConsent {
	if c == nil {
		return nil
	}
	return &model.MarketingConsent{
		State:            c.State,
		OptInLevel:       c.OptInLevel,
		ConsentUpdatedAt: ParseTime(c.ConsentUpdatedAt),
	}
}

// MapAddress переносит адрес поле за полем; отсутствующие поля и адрес целиком дают null-значения.
func MapAddress(a *shopify.Address) model.Address {
	if a == nil {
		return model.Address{}
	}

	return model.Address{
		FirstName:    a.FirstName.Ptr(),
		LastName:     a.LastName.Ptr(),
		Name:         a.Name.Ptr(),
		Company:      a.Company.Ptr(),
		Address1:     a.Address1.Ptr(),
		Address2:     a.Address2.Ptr(),
		City:         a.City.Ptr(),
		Province:     a.Province.Ptr(),
		ProvinceCode: a.ProvinceCode.Ptr(),
		Country:      a.Country.Ptr(),
		CountryCode:  a.CountryCode.Ptr(),
		Zip:          a.Zip.Ptr(),
		Phone:        a.Phone.Ptr(),
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
	}
}

// MapLineItem преобразует позицию заказа.
func MapLineItem(li shopify.LineItem) model.LineItem {
	item := model.LineItem{
		ExternalID:          li.ID.String(),
		ProductID:           li.ProductID.String(),
		VariantID:           li.VariantID.String(),
		Title:               li.Title,
		VariantTitle:        li.VariantTitle.String(),
		Name:                li.Name,
		SKU:                 li.SKU.String(),
		Vendor:              li.Vendor.String(),
		Quantity:            li.Quantity,
		Price:               ParseMoney(li.Price),
		PriceSet:            MapMoneySet(li.PriceSet),
		TotalDiscount:       ParseMoney(li.TotalDiscount),
		TotalDiscountSet:    MapMoneySet(li.TotalDiscountSet),
		Grams:               li.Grams,
		RequiresShipping:    li.RequiresShipping,
		Taxable:             li.Taxable,
		FulfillmentStatus:   li.FulfillmentStatus.Ptr(),
		TaxLines:            mapTaxLines(li.TaxLines),
		DiscountAllocations: mapDiscountAllocations(li.DiscountAllocations),
	}
	if item.Quantity < 0 {
		item.Quantity = 0
	}
	return item
}

// MapShippingLine преобразует способ доставки.
func MapShippingLine(sl shopify.ShippingLine) model.ShippingLine {
	return model.ShippingLine{
		ExternalID:          sl.ID.String(),
		Title:               sl.Title,
		Code:                sl.Code.String(),
		Source:              sl.Source.String(),
		Price:               ParseMoney(sl.Price),
		PriceSet:            MapMoneySet(sl.PriceSet),
		DiscountedPrice:     ParseMoney(sl.DiscountedPrice),
		DiscountedPriceSet:  MapMoneySet(sl.DiscountedPriceSet),
		TaxLines:            mapTaxLines(sl.TaxLines),
		DiscountAllocations: mapDiscountAllocations(sl.DiscountAllocations),
	}
}

func mapTaxLines(lines []shopify.TaxLine) []model.TaxLine {
	res := make([]model.TaxLine, 0, len(lines))
	for _, tl := range lines {
		res = append(res, model.TaxLine{
			Title:    tl.Title,
			Price:    ParseMoney(tl.Price),
			PriceSet: MapMoneySet(tl.PriceSet),
			Rate:     ParseMoney(tl.Rate),
		})
	}
	return res
}

func mapDiscountAllocations(allocs []shopify.DiscountAllocation) []model.DiscountAllocation {
	res := make([]model.DiscountAllocation, 0, len(allocs))
	for _, da := range allocs {
		res = append(res, model.DiscountAllocation{
			Amount:                   ParseMoney(da.Amount),
			AmountSet:                MapMoneySet(da.AmountSet),
			DiscountApplicationIndex: da.DiscountApplicationIndex,
		})
	}
	return res
}

// MapMoneySet сохраняет структуру набора сумм. Отсутствующий набор даёт пустой объект, а не null.
func MapMoneySet(ms *shopify.MoneySet) model.MoneySet {
	if ms == nil {
		return model.MoneySet{}
	}
	return model.MoneySet{
		ShopMoney:        mapMoney(ms.ShopMoney),
		PresentmentMoney: mapMoney(ms.PresentmentMoney),
	}
}

func mapMoney(m *shopify.Money) *model.Money {
	if m == nil {
		return nil
	}
	return &model.Money{
		Amount:       ParseMoney(m.Amount),
		CurrencyCode: m.CurrencyCode,
	}
}

// Границы суммы: значения с большим порядком или слишком длинной мантиссой
// при сериализации разворачиваются в строку произвольной длины.
const (
	maxMoneyExponent = 18
	maxMoneyDigits   = 30
)

// ParseMoney разбирает сумму как десятичное число.
// Пустое, нечисловое, отрицательное или выходящее за границы значение даёт 0.
func ParseMoney(v shopify.FlexString) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.Value))
	if err != nil {
		return decimal.Zero
	}
	return ClampMoney(d)
}

// ClampMoney применяет к уже разобранной сумме те же правила, что и ParseMoney.
func ClampMoney(d decimal.Decimal) decimal.Decimal {
	exp := d.Exponent()
	if exp > maxMoneyExponent || exp < -maxMoneyExponent || d.NumDigits() > maxMoneyDigits {
		return decimal.Zero
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseTime разбирает метку времени в формате RFC 3339. Некорректное значение даёт nil.
func ParseTime(v shopify.FlexString) *time.Time {
	if !v.Valid || v.Value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(v.Value))
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// NormalizeTags приводит теги к каноническому виду: обрезанные пробелы, без пустых значений и повторов,
// в порядке первого появления. Результат никогда не равен nil.
func NormalizeTags(tags []string) []string {
	res := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, raw := range tags {
		for _, tag := range strings.Split(raw, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			res = append(res, tag)
		}
	}
	return res
}

func financialStatus(v shopify.FlexString) string {
	s := strings.ToLower(strings.TrimSpace(v.String()))
	if s == "" {
		return model.FinancialStatusPending
	}
	return s
}

func fulfillmentStatus(v shopify.FlexString) string {
	s := strings.ToLower(strings.TrimSpace(v.String()))
	if s == "" || s == "null" {
		return model.FulfillmentStatusUnfulfilled
	}
	return s
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
