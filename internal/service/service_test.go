package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/repository"
)

func newTestService(repo Repository, source OrderSource) *Service {
	svc := NewService(repo, source, nil, nil)
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func TestRegisterUser_FirstUserIsAdmin(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()

	first, err := svc.RegisterUser(ctx, "root", "password")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, first.Role)
	assert.NotEqual(t, []byte("password"), first.PasswordHash)

	second, err := svc.RegisterUser(ctx, "bob", "password")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, second.Role)
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "root", "password")
	require.NoError(t, err)

	_, err = svc.RegisterUser(ctx, "root", "other")
	assert.ErrorIs(t, err, repository.ErrUserExists)
}

func TestAuthenticateUser(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)
	ctx := context.Background()

	registered, err := svc.RegisterUser(ctx, "root", "correct")
	require.NoError(t, err)

	u, err := svc.AuthenticateUser(ctx, "root", "correct")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = svc.AuthenticateUser(ctx, "root", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AuthenticateUser(ctx, "nobody", "correct")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateOrder(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, model.OrderData{ExternalOrderID: "m-1", Name: "#77", Tags: []string{"a, b", "a"}})
	require.NoError(t, err)
	assert.Equal(t, "77", o.OrderNumber)
	assert.Equal(t, []string{"a", "b"}, o.Tags)
	assert.Equal(t, model.FinancialStatusPending, o.FinancialStatus)

	_, err = svc.CreateOrder(ctx, model.OrderData{ExternalOrderID: "m-1"})
	assert.ErrorIs(t, err, repository.ErrOrderExists)

	_, err = svc.CreateOrder(ctx, model.OrderData{ExternalOrderID: "m-2", FinancialStatus: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	o, err = svc.CreateOrder(ctx, model.OrderData{
		ExternalOrderID: "m-3",
		TotalPrice:      decimal.NewFromInt(-10),
		LineItems:       []model.LineItem{{Title: "Hat", Quantity: 1, Price: decimal.NewFromInt(-3)}},
	})
	require.NoError(t, err)
	assert.True(t, o.TotalPrice.IsZero())
	assert.True(t, o.LineItems[0].Price.IsZero())
}

func TestUpdateOrder_AppliesPatch(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, model.OrderData{ExternalOrderID: "m-1"})
	require.NoError(t, err)

	note := "call first"
	paid := model.FinancialStatusPaid
	tags := []string{" x ", "y,x"}
	updated, err := svc.UpdateOrder(ctx, o.ID, OrderPatch{Note: &note, FinancialStatus: &paid, Tags: &tags})
	require.NoError(t, err)
	require.NotNil(t, updated.Note)
	assert.Equal(t, "call first", *updated.Note)
	assert.Equal(t, model.FinancialStatusPaid, updated.FinancialStatus)
	assert.Equal(t, []string{"x", "y"}, updated.Tags)

	bad := "shipped"
	_, err = svc.UpdateOrder(ctx, o.ID, OrderPatch{FulfillmentStatus: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	stored, err := svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FulfillmentStatusUnfulfilled, stored.FulfillmentStatus)
}

func TestUpdateOrder_KeepsUnlistedSourceStatus(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	res := svc.SyncOrders(ctx, raws(
		`{"id": 1, "name": "#1", "financial_status": "expired"}`,
		`{"id": 2, "name": "#2", "financial_status": "chargeback", "fulfillment_status": "on_hold"}`,
	))
	require.Equal(t, 2, res.SyncedCount)

	for _, ext := range []string{"1", "2"} {
		o, err := repo.GetOrderByExternalID(ctx, ext)
		require.NoError(t, err)

		note := "gift wrap"
		updated, err := svc.UpdateOrder(ctx, o.ID, OrderPatch{Note: &note})
		require.NoError(t, err, ext)
		require.NotNil(t, updated.Note)
		assert.Equal(t, "gift wrap", *updated.Note)
		assert.Equal(t, o.FinancialStatus, updated.FinancialStatus)
		assert.Equal(t, o.FulfillmentStatus, updated.FulfillmentStatus)
	}

	o, err := repo.GetOrderByExternalID(ctx, "2")
	require.NoError(t, err)
	bad := "chargeback"
	_, err = svc.UpdateOrder(ctx, o.ID, OrderPatch{FinancialStatus: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestDeleteOrder_NotFound(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	o, err := svc.CreateOrder(context.Background(), model.OrderData{ExternalOrderID: "m-1"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(context.Background(), o.ID))
	assert.True(t, errors.Is(svc.DeleteOrder(context.Background(), o.ID), repository.ErrOrderNotFound))
}

func TestNotifications(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	require.NoError(t, repo.CreateNotification(ctx, &model.Notification{Type: "orders/create", Title: "New order"}))

	list, err := svc.ListNotifications(ctx, true, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.MarkNotificationRead(ctx, list[0].ID))

	list, err = svc.ListNotifications(ctx, true, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
