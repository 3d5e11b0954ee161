package mapper

import (
	"strings"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/shopify"
)

// Normalize приводит документ, пришедший не из витрины (ручное создание или правка),
// к тем же правилам, что и результат MapOrder.
func Normalize(d model.OrderData) model.OrderData {
	d.ExternalOrderID = strings.TrimSpace(d.ExternalOrderID)
	d.OrderNumber = strings.TrimSpace(d.OrderNumber)
	if d.OrderNumber == "" {
		d.OrderNumber = strings.TrimPrefix(strings.TrimSpace(d.Name), "#")
	}

	d.FinancialStatus = strings.ToLower(strings.TrimSpace(d.FinancialStatus))
	if d.FinancialStatus == "" {
		d.FinancialStatus = model.FinancialStatusPending
	}
	d.FulfillmentStatus = strings.ToLower(strings.TrimSpace(d.FulfillmentStatus))
	if d.FulfillmentStatus == "" {
		d.FulfillmentStatus = model.FulfillmentStatusUnfulfilled
	}

	d.Tags = NormalizeTags(d.Tags)
	if d.Customer != nil {
		c := *d.Customer
		c.Tags = NormalizeTags(c.Tags)
		c.TotalSpent = ClampMoney(c.TotalSpent)
		d.Customer = &c
	}

	d.TotalPrice = ClampMoney(d.TotalPrice)
	d.SubtotalPrice = ClampMoney(d.SubtotalPrice)
	d.TotalTax = ClampMoney(d.TotalTax)
	d.TotalDiscounts = ClampMoney(d.TotalDiscounts)
	d.TotalPriceSet = clampMoneySet(d.TotalPriceSet)
	d.SubtotalPriceSet = clampMoneySet(d.SubtotalPriceSet)
	d.TotalTaxSet = clampMoneySet(d.TotalTaxSet)
	d.TotalDiscountsSet = clampMoneySet(d.TotalDiscountsSet)
	d.TotalShippingPriceSet = clampMoneySet(d.TotalShippingPriceSet)

	items := make([]model.LineItem, len(d.LineItems))
	for i, li := range d.LineItems {
		li.Price = ClampMoney(li.Price)
		li.TotalDiscount = ClampMoney(li.TotalDiscount)
		li.PriceSet = clampMoneySet(li.PriceSet)
		li.TotalDiscountSet = clampMoneySet(li.TotalDiscountSet)
		li.TaxLines = normalizeTaxLines(li.TaxLines)
		li.DiscountAllocations = normalizeAllocations(li.DiscountAllocations)
		items[i] = li
	}
	d.LineItems = items

	shipping := make([]model.ShippingLine, len(d.ShippingLines))
	for i, sl := range d.ShippingLines {
		sl.Price = ClampMoney(sl.Price)
		sl.DiscountedPrice = ClampMoney(sl.DiscountedPrice)
		sl.PriceSet = clampMoneySet(sl.PriceSet)
		sl.DiscountedPriceSet = clampMoneySet(sl.DiscountedPriceSet)
		sl.TaxLines = normalizeTaxLines(sl.TaxLines)
		sl.DiscountAllocations = normalizeAllocations(sl.DiscountAllocations)
		shipping[i] = sl
	}
	d.ShippingLines = shipping

	codes := make([]model.DiscountCode, len(d.DiscountCodes))
	for i, dc := range d.DiscountCodes {
		dc.Amount = ClampMoney(dc.Amount)
		codes[i] = dc
	}
	d.DiscountCodes = codes
	if d.NoteAttributes == nil {
		d.NoteAttributes = []model.NoteAttribute{}
	}
	if d.PaymentGatewayNames == nil {
		d.PaymentGatewayNames = []string{}
	}

	return d
}

// clampMoneySet возвращает копию набора сумм с обнулёнными недопустимыми значениями.
func clampMoneySet(ms model.MoneySet) model.MoneySet {
	return model.MoneySet{
		ShopMoney:        clampMoneyPtr(ms.ShopMoney),
		PresentmentMoney: clampMoneyPtr(ms.PresentmentMoney),
	}
}

func clampMoneyPtr(m *model.Money) *model.Money {
	if m == nil {
		return nil
	}
	out := *m
	out.Amount = ClampMoney(out.Amount)
	return &out
}

func normalizeTaxLines(lines []model.TaxLine) []model.TaxLine {
	out := make([]model.TaxLine, len(lines))
	for i, tl := range lines {
		tl.Price = ClampMoney(tl.Price)
		tl.Rate = ClampMoney(tl.Rate)
		tl.PriceSet = clampMoneySet(tl.PriceSet)
		out[i] = tl
	}
	return out
}

func normalizeAllocations(allocs []model.DiscountAllocation) []model.DiscountAllocation {
	out := make([]model.DiscountAllocation, len(allocs))
	for i, a := range allocs {
		a.Amount = ClampMoney(a.Amount)
		a.AmountSet = clampMoneySet(a.AmountSet)
		out[i] = a
	}
	return out
}

// ToOrderUpdate формирует исходящее частичное обновление заказа для витрины.
// Витрина принимает теги строкой через запятую.
func ToOrderUpdate(o model.Order) shopify.OrderUpdate {
	upd := shopify.OrderUpdate{
		ID:    o.ExternalOrderID,
		Email: o.Email,
		Note:  o.Note,
		Tags:  strings.Join(NormalizeTags(o.Tags), ", "),
	}

	a := o.ShippingAddress
	if a.Address1 != nil || a.City != nil || a.Zip != nil || a.Country != nil {
		upd.ShippingAddress = &shopify.AddressUpdate{
			FirstName: a.FirstName,
			LastName:  a.LastName,
			Company:   a.Company,
			Address1:  a.Address1,
			Address2:  a.Address2,
			City:      a.City,
			Province:  a.Province,
			Country:   a.Country,
			Zip:       a.Zip,
			Phone:     a.Phone,
		}
	}

	return upd
}
