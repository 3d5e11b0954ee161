package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/ordersync/internal/mapper"
	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/shopify"
)

const webhookOrder = `{
	"id": 820982911946154508,
	"name": "#9999",
	"email": "jon@example.com",
	"total_price": "403.00",
	"currency": "USD",
	"financial_status": "paid",
	"customer": {"id": 115310627314723954, "email": "jon@example.com", "first_name": "John"}
}`

func TestHandleWebhook_OrderCreate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	res, err := svc.HandleWebhook(context.Background(), shopify.TopicOrdersCreate, []byte(webhookOrder))
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, "820982911946154508", res.ExternalOrderID)

	assert.Equal(t, 1, repo.orderCount())
	require.Len(t, repo.notifications, 1)

	n := repo.notifications[0]
	assert.Equal(t, shopify.TopicOrdersCreate, n.Type)
	assert.Equal(t, "New order", n.Title)
	assert.Equal(t, "820982911946154508", n.ExternalOrderID)
	assert.Equal(t, "403.00", n.Data["totalPrice"])
	assert.Contains(t, n.Message, "#9999")
}

func TestHandleWebhook_RedeliveryIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, shopify.TopicOrdersCreate, []byte(webhookOrder))
	require.NoError(t, err)
	_, err = svc.HandleWebhook(ctx, shopify.TopicOrdersUpdated, []byte(webhookOrder))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.orderCount())
}

func TestHandleWebhook_CancelIsNarrow(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, shopify.TopicOrdersCreate, []byte(webhookOrder))
	require.NoError(t, err)

	cancel := `{
		"id": 820982911946154508,
		"name": "#9999",
		"email": "changed@example.com",
		"total_price": "1.00",
		"cancelled_at": "2024-05-01T12:00:00Z",
		"cancel_reason": "customer"
	}`
	res, err := svc.HandleWebhook(ctx, shopify.TopicOrdersCancelled, []byte(cancel))
	require.NoError(t, err)
	assert.True(t, res.Handled)

	o, err := repo.GetOrderByExternalID(ctx, "820982911946154508")
	require.NoError(t, err)
	require.NotNil(t, o.CancelledAt)
	assert.Equal(t, "2024-05-01T12:00:00Z", o.CancelledAt.Format("2006-01-02T15:04:05Z07:00"))
	require.NotNil(t, o.CancelReason)
	assert.Equal(t, "customer", *o.CancelReason)
	assert.Equal(t, model.FinancialStatusVoided, o.FinancialStatus)

	require.NotNil(t, o.Email)
	assert.Equal(t, "jon@example.com", *o.Email)
	assert.Equal(t, "403", o.TotalPrice.String())

	require.Len(t, repo.notifications, 2)
	assert.Equal(t, "Order cancelled", repo.notifications[1].Title)
}

func TestHandleWebhook_CancelUnknownOrderFallsBackToUpsert(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	cancel := `{"id": 5, "name": "#5", "financial_status": "refunded", "cancelled_at": "2024-05-01T12:00:00Z"}`
	_, err := svc.HandleWebhook(ctx, shopify.TopicOrdersCancelled, []byte(cancel))
	require.NoError(t, err)

	o, err := repo.GetOrderByExternalID(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, model.FinancialStatusRefunded, o.FinancialStatus)
	assert.NotNil(t, o.CancelledAt)
}

func TestHandleWebhook_CustomerUpdate(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, shopify.TopicOrdersCreate, []byte(webhookOrder))
	require.NoError(t, err)

	res, err := svc.HandleWebhook(ctx, shopify.TopicCustomersUpdate,
		[]byte(`{"id": 115310627314723954, "email": "jon@example.com", "first_name": "Jonathan", "tags": "vip"}`))
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Equal(t, int64(1), res.Updated)

	o, err := repo.GetOrderByExternalID(ctx, "820982911946154508")
	require.NoError(t, err)
	require.NotNil(t, o.Customer)
	assert.Equal(t, "Jonathan", *o.Customer.FirstName)
	assert.Equal(t, []string{"vip"}, o.Customer.Tags)

	require.Len(t, repo.notifications, 2)
	assert.Equal(t, "Customer updated: Jonathan", repo.notifications[1].Message)
}

func TestHandleWebhook_UnknownTopicIgnored(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)

	res, err := svc.HandleWebhook(context.Background(), "products/create", []byte(`{"id": 1}`))
	require.NoError(t, err)
	assert.False(t, res.Handled)
	assert.Equal(t, 0, repo.orderCount())
	assert.Empty(t, repo.notifications)
}

func TestHandleWebhook_InvalidPayload(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, shopify.TopicOrdersCreate, []byte(`{"name": "#1"}`))
	assert.ErrorIs(t, err, mapper.ErrMissingExternalID)

	_, err = svc.HandleWebhook(ctx, shopify.TopicOrdersCreate, []byte(`{"id": 1, "tags": 5}`))
	var mErr *mapper.MappingError
	assert.ErrorAs(t, err, &mErr)

	assert.Equal(t, 0, repo.orderCount())
	assert.Empty(t, repo.notifications)
}
