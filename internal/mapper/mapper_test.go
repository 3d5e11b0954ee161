package mapper

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/shopify"
)

const sampleOrder = `{
	"id": 450789469,
	"order_number": 1001,
	"name": "#1001",
	"email": "bob@example.com",
	"currency": "USD",
	"presentment_currency": "EUR",
	"total_price": "598.94",
	"total_price_set": {
		"shop_money": {"amount": "598.94", "currency_code": "USD"},
		"presentment_money": {"amount": "551.00", "currency_code": "EUR"}
	},
	"subtotal_price": "597.00",
	"total_tax": "11.94",
	"total_discounts": "10.00",
	"financial_status": "paid",
	"fulfillment_status": null,
	"tags": "vip, wholesale,  ,vip",
	"note": null,
	"note_attributes": [{"name": "gift", "value": true}],
	"created_at": "2024-03-01T10:00:00-05:00",
	"customer": {
		"id": 207119551,
		"email": "bob@example.com",
		"first_name": "Bob",
		"last_name": "Norman",
		"accepts_marketing": true,
		"tags": ["loyal"],
		"total_spent": "199.65"
	},
	"shipping_address": {
		"first_name": "Bob",
		"address1": "Chestnut Street 92",
		"city": "Louisville",
		"zip": "40202",
		"latitude": 45.41634
	},
	"line_items": [{
		"id": 466157049,
		"variant_id": 39072856,
		"product_id": 632910392,
		"title": "IPod Nano - 8gb",
		"sku": "IPOD2008GREEN",
		"quantity": 1,
		"price": "199.00",
		"tax_lines": [{"title": "State Tax", "price": "3.98", "rate": 0.06}],
		"discount_allocations": [{"amount": "3.34", "discount_application_index": 0}]
	}],
	"shipping_lines": [{"id": 369256396, "title": "Free Shipping", "price": "0.00"}]
}`

func mustDecode(t *testing.T, raw string) *shopify.Order {
	t.Helper()
	o, err := Decode([]byte(raw))
	require.NoError(t, err)
	return o
}

func TestMapOrder_Full(t *testing.T) {
	data, err := MapOrder(mustDecode(t, sampleOrder))
	require.NoError(t, err)

	assert.Equal(t, "450789469", data.ExternalOrderID)
	assert.Equal(t, "1001", data.OrderNumber)
	assert.Equal(t, "#1001", data.Name)
	assert.True(t, decimal.RequireFromString("598.94").Equal(data.TotalPrice))
	assert.True(t, decimal.RequireFromString("11.94").Equal(data.TotalTax))
	assert.Equal(t, model.FinancialStatusPaid, data.FinancialStatus)
	assert.Equal(t, model.FulfillmentStatusUnfulfilled, data.FulfillmentStatus)
	assert.Equal(t, []string{"vip", "wholesale"}, data.Tags)
	assert.Nil(t, data.Note)

	require.NotNil(t, data.TotalPriceSet.PresentmentMoney)
	assert.Equal(t, "EUR", data.TotalPriceSet.PresentmentMoney.CurrencyCode)
	assert.True(t, decimal.RequireFromString("551").Equal(data.TotalPriceSet.PresentmentMoney.Amount))

	require.NotNil(t, data.Customer)
	assert.Equal(t, "207119551", data.Customer.ExternalID)
	assert.Equal(t, []string{"loyal"}, data.Customer.Tags)
	assert.True(t, data.Customer.AcceptsMarketing)

	require.NotNil(t, data.ShippingAddress.City)
	assert.Equal(t, "Louisville", *data.ShippingAddress.City)
	assert.Nil(t, data.ShippingAddress.Company)

	require.Len(t, data.LineItems, 1)
	assert.Equal(t, "IPOD2008GREEN", data.LineItems[0].SKU)
	assert.Equal(t, "39072856", data.LineItems[0].VariantID)
	require.Len(t, data.LineItems[0].TaxLines, 1)
	assert.True(t, decimal.RequireFromString("0.06").Equal(data.LineItems[0].TaxLines[0].Rate))
	require.Len(t, data.LineItems[0].DiscountAllocations, 1)

	require.Len(t, data.ShippingLines, 1)
	assert.Equal(t, "Free Shipping", data.ShippingLines[0].Title)
	assert.Empty(t, data.ShippingLines[0].TaxLines)
	assert.NotNil(t, data.ShippingLines[0].TaxLines)

	require.Len(t, data.NoteAttributes, 1)
	assert.Equal(t, "true", data.NoteAttributes[0].Value)

	require.NotNil(t, data.ExternalCreatedAt)
	assert.Equal(t, 15, data.ExternalCreatedAt.Hour())
}

func TestMapOrder_OrderNumberFallsBackToName(t *testing.T) {
	data, err := MapOrder(mustDecode(t, `{"id": 1, "name": "#1042"}`))
	require.NoError(t, err)
	assert.Equal(t, "1042", data.OrderNumber)
}

func TestMapOrder_MissingExternalID(t *testing.T) {
	_, err := MapOrder(mustDecode(t, `{"name": "#1"}`))
	assert.ErrorIs(t, err, ErrMissingExternalID)
}

func TestMapOrder_MoneyDefaultsToZero(t *testing.T) {
	data, err := MapOrder(mustDecode(t, `{"id": 1, "total_price": "not-a-number", "total_tax": "-3.00"}`))
	require.NoError(t, err)

	assert.True(t, data.TotalPrice.IsZero())
	assert.True(t, data.TotalTax.IsZero())
	assert.True(t, data.SubtotalPrice.IsZero())
}

func TestMapOrder_EmptyDefaults(t *testing.T) {
	data, err := MapOrder(mustDecode(t, `{"id": "gid-1"}`))
	require.NoError(t, err)

	out, err := json.Marshal(data)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.JSONEq(t, `{}`, string(doc["total_price_set"]))
	assert.JSONEq(t, `[]`, string(doc["line_items"]))
	assert.JSONEq(t, `[]`, string(doc["shipping_lines"]))
	assert.JSONEq(t, `[]`, string(doc["tags"]))
	assert.JSONEq(t, `null`, string(doc["customer"]))

	var addr map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(doc["shipping_address"], &addr))
	assert.JSONEq(t, `null`, string(addr["address1"]))
	assert.JSONEq(t, `null`, string(addr["city"]))
}

func TestDecode_InvalidTags(t *testing.T) {
	_, err := Decode([]byte(`{"id": 1, "tags": {"a": 1}}`))

	var mErr *MappingError
	require.True(t, errors.As(err, &mErr))
	assert.ErrorIs(t, err, shopify.ErrInvalidTags)
}

func TestDecode_MalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"id": `))

	var mErr *MappingError
	assert.True(t, errors.As(err, &mErr))
}

func TestNormalizeTags_StringAndListAgree(t *testing.T) {
	fromString, err := MapOrder(mustDecode(t, `{"id": 1, "tags": "a, b,c"}`))
	require.NoError(t, err)
	fromList, err := MapOrder(mustDecode(t, `{"id": 1, "tags": ["a","b","c"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, fromString.Tags)
	assert.Equal(t, fromString.Tags, fromList.Tags)
}

func TestMapOrder_Deterministic(t *testing.T) {
	a, err := MapOrder(mustDecode(t, sampleOrder))
	require.NoError(t, err)
	b, err := MapOrder(mustDecode(t, sampleOrder))
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name string
		in   shopify.FlexString
		want string
	}{
		{name: "string", in: shopify.Str("12.34"), want: "12.34"},
		{name: "number", in: shopify.Str("7"), want: "7"},
		{name: "missing", in: shopify.FlexString{}, want: "0"},
		{name: "garbage", in: shopify.Str("abc"), want: "0"},
		{name: "negative", in: shopify.Str("-1"), want: "0"},
		{name: "padded", in: shopify.Str(" 5.5 "), want: "5.5"},
		{name: "huge exponent", in: shopify.Str("1e2000000000"), want: "0"},
		{name: "tiny exponent", in: shopify.Str("1e-2000000000"), want: "0"},
		{name: "too many digits", in: shopify.Str("1234567890123456789012345678901"), want: "0"},
		{name: "large but bounded", in: shopify.Str("1e18"), want: "1000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMoney(tt.in).String())
		})
	}
}

func TestNormalize_FillsDefaults(t *testing.T) {
	d := Normalize(model.OrderData{ExternalOrderID: " 42 ", Name: "#42", Tags: []string{"x , y", "x"}})

	assert.Equal(t, "42", d.ExternalOrderID)
	assert.Equal(t, "42", d.OrderNumber)
	assert.Equal(t, []string{"x", "y"}, d.Tags)
	assert.Equal(t, model.FinancialStatusPending, d.FinancialStatus)
	assert.Equal(t, model.FulfillmentStatusUnfulfilled, d.FulfillmentStatus)
	assert.NotNil(t, d.LineItems)
	assert.NotNil(t, d.NoteAttributes)
	assert.NotNil(t, d.ShippingLines)
	assert.NotNil(t, d.DiscountCodes)
}

func TestNormalize_ClampsMoney(t *testing.T) {
	neg := decimal.NewFromInt(-5)
	huge := decimal.New(1, 400)
	in := model.OrderData{
		ExternalOrderID: "1",
		TotalPrice:      neg,
		SubtotalPrice:   huge,
		TotalTax:        decimal.RequireFromString("2.50"),
		TotalPriceSet:   model.MoneySet{ShopMoney: &model.Money{Amount: neg, CurrencyCode: "USD"}},
		Customer:        &model.Customer{TotalSpent: neg},
		LineItems: []model.LineItem{{
			Price:               neg,
			TaxLines:            []model.TaxLine{{Price: neg, Rate: neg}},
			DiscountAllocations: []model.DiscountAllocation{{Amount: huge}},
		}},
		ShippingLines: []model.ShippingLine{{Price: neg, DiscountedPrice: neg}},
		DiscountCodes: []model.DiscountCode{{Code: "SAVE", Amount: neg}},
	}

	d := Normalize(in)

	assert.True(t, d.TotalPrice.IsZero())
	assert.True(t, d.SubtotalPrice.IsZero())
	assert.Equal(t, "2.5", d.TotalTax.String())
	assert.True(t, d.TotalPriceSet.ShopMoney.Amount.IsZero())
	assert.Equal(t, "USD", d.TotalPriceSet.ShopMoney.CurrencyCode)
	assert.True(t, d.Customer.TotalSpent.IsZero())
	assert.True(t, d.LineItems[0].Price.IsZero())
	assert.True(t, d.LineItems[0].TaxLines[0].Price.IsZero())
	assert.True(t, d.LineItems[0].TaxLines[0].Rate.IsZero())
	assert.True(t, d.LineItems[0].DiscountAllocations[0].Amount.IsZero())
	assert.True(t, d.ShippingLines[0].Price.IsZero())
	assert.True(t, d.ShippingLines[0].DiscountedPrice.IsZero())
	assert.True(t, d.DiscountCodes[0].Amount.IsZero())

	// исходный документ не меняется
	assert.True(t, in.TotalPriceSet.ShopMoney.Amount.Equal(neg))
	assert.True(t, in.LineItems[0].Price.Equal(neg))
	assert.True(t, in.Customer.TotalSpent.Equal(neg))
}

func TestToOrderUpdate(t *testing.T) {
	note := "leave at door"
	city := "Louisville"
	o := model.Order{OrderData: model.OrderData{
		ExternalOrderID: "450789469",
		Note:            &note,
		Tags:            []string{"a", "b"},
		ShippingAddress: model.Address{City: &city},
	}}

	upd := ToOrderUpdate(o)

	assert.Equal(t, "450789469", upd.ID)
	assert.Equal(t, "a, b", upd.Tags)
	require.NotNil(t, upd.Note)
	assert.Equal(t, note, *upd.Note)
	require.NotNil(t, upd.ShippingAddress)
	assert.Equal(t, &city, upd.ShippingAddress.City)
}
