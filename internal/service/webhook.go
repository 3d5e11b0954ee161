package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/mapper"
	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/repository"
	"github.com/mmeshcher/ordersync/internal/shopify"
)

// WebhookResult описывает итог обработки вебхука.
type WebhookResult struct {
	Topic           string `json:"topic"`
	Handled         bool   `json:"handled"`
	ExternalOrderID string `json:"externalOrderId,omitempty"`
	Updated         int64  `json:"updated,omitempty"`
}

var orderUpsertTopics = map[string]struct{}{
	shopify.TopicOrdersCreate:             {},
	shopify.TopicOrdersUpdated:            {},
	shopify.TopicOrdersPaid:               {},
	shopify.TopicOrdersFulfilled:          {},
	shopify.TopicOrdersPartiallyFulfilled: {},
	shopify.TopicOrdersEdited:             {},
}

// HandleWebhook обрабатывает уже проверенный вебхук. Неизвестные топики принимаются и игнорируются.
func (s *Service) HandleWebhook(ctx context.Context, topic string, body []byte) (WebhookResult, error) {
	topic = strings.ToLower(strings.TrimSpace(topic))
	res := WebhookResult{Topic: topic}

	switch {
	case isOrderUpsertTopic(topic):
		o, err := s.webhookUpsert(ctx, body)
		if err != nil {
			return res, s.webhookError(topic, err)
		}
		res.Handled, res.ExternalOrderID = true, o.ExternalOrderID
		s.notify(ctx, orderNotification(topic, o))

	case topic == shopify.TopicOrdersCancelled:
		o, err := s.webhookCancel(ctx, body)
		if err != nil {
			return res, s.webhookError(topic, err)
		}
		res.Handled, res.ExternalOrderID = true, o.ExternalOrderID
		s.notify(ctx, orderNotification(topic, o))

	case topic == shopify.TopicCustomersCreate || topic == shopify.TopicCustomersUpdate:
		c, n, err := s.webhookCustomer(ctx, body)
		if err != nil {
			return res, s.webhookError(topic, err)
		}
		res.Handled, res.Updated = true, n
		s.notify(ctx, customerNotification(topic, c, n))

	default:
		s.logger.Debug("webhook topic ignored", zap.String("topic", topic))
		return res, nil
	}

	s.logger.Info("webhook handled",
		zap.String("topic", topic),
		zap.String("external_order_id", res.ExternalOrderID),
	)
	return res, nil
}

func isOrderUpsertTopic(topic string) bool {
	_, ok := orderUpsertTopics[topic]
	return ok
}

func (s *Service) webhookError(topic string, err error) error {
	s.logger.Error("webhook failed", zap.String("topic", topic), zap.Error(err))
	return err
}

func (s *Service) webhookUpsert(ctx context.Context, body []byte) (*model.Order, error) {
	d, err := mapRaw(body)
	if err != nil {
		return nil, err
	}
	return s.repo.UpsertOrder(ctx, d)
}

// webhookCancel меняет только отметку отмены, причину и финансовый статус.
// Ещё не известный заказ сохраняется целиком.
func (s *Service) webhookCancel(ctx context.Context, body []byte) (*model.Order, error) {
	raw, err := mapper.Decode(body)
	if err != nil {
		return nil, err
	}
	full, err := mapper.MapOrder(raw)
	if err != nil {
		return nil, err
	}

	cancelledAt := mapper.ParseTime(raw.CancelledAt)
	if cancelledAt == nil {
		now := time.Now().UTC()
		cancelledAt = &now
	}
	status := strings.ToLower(strings.TrimSpace(raw.FinancialStatus.String()))
	if status == "" {
		status = model.FinancialStatusVoided
	}

	o, err := s.repo.UpdateOrderByExternalID(ctx, full.ExternalOrderID, func(d *model.OrderData) error {
		d.CancelledAt = cancelledAt
		d.CancelReason = raw.CancelReason.Ptr()
		d.FinancialStatus = status
		return nil
	})
	if errors.Is(err, repository.ErrOrderNotFound) {
		full.CancelledAt = cancelledAt
		full.FinancialStatus = status
		return s.repo.UpsertOrder(ctx, full)
	}
	return o, err
}

func (s *Service) webhookCustomer(ctx context.Context, body []byte) (*model.Customer, int64, error) {
	raw, err := mapper.DecodeCustomer(body)
	if err != nil {
		return nil, 0, err
	}
	c := mapper.MapCustomer(raw)
	if c == nil || c.ExternalID == "" {
		return nil, 0, fmt.Errorf("customer: %w", mapper.ErrMissingExternalID)
	}

	n, err := s.repo.UpdateCustomerSnapshot(ctx, *c)
	if err != nil {
		return nil, 0, err
	}
	return c, n, nil
}

func (s *Service) notify(ctx context.Context, n *model.Notification) {
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		s.logger.Error("create notification failed",
			zap.String("type", n.Type),
			zap.String("external_order_id", n.ExternalOrderID),
			zap.Error(err),
		)
	}
}

var orderTitles = map[string]string{
	shopify.TopicOrdersCreate:             "New order",
	shopify.TopicOrdersUpdated:            "Order updated",
	shopify.TopicOrdersPaid:               "Order paid",
	shopify.TopicOrdersFulfilled:          "Order fulfilled",
	shopify.TopicOrdersPartiallyFulfilled: "Order partially fulfilled",
	shopify.TopicOrdersEdited:             "Order edited",
	shopify.TopicOrdersCancelled:          "Order cancelled",
}

func orderNotification(topic string, o *model.Order) *model.Notification {
	label := o.Name
	if label == "" {
		label = "#" + o.OrderNumber
	}

	var msg string
	switch topic {
	case shopify.TopicOrdersCreate:
		msg = fmt.Sprintf("Order %s was placed for %s %s", label, o.TotalPrice.StringFixed(2), o.Currency)
	case shopify.TopicOrdersCancelled:
		msg = fmt.Sprintf("Order %s was cancelled", label)
	default:
		msg = fmt.Sprintf("Order %s: %s / %s", label, o.FinancialStatus, o.FulfillmentStatus)
	}

	data := map[string]any{
		"orderId":           o.ID.String(),
		"orderNumber":       o.OrderNumber,
		"totalPrice":        o.TotalPrice.StringFixed(2),
		"currency":          o.Currency,
		"financialStatus":   o.FinancialStatus,
		"fulfillmentStatus": o.FulfillmentStatus,
	}
	if o.Email != nil {
		data["email"] = *o.Email
	}
	if o.CancelReason != nil {
		data["cancelReason"] = *o.CancelReason
	}

	return &model.Notification{
		Type:            topic,
		Title:           orderTitles[topic],
		Message:         msg,
		Data:            data,
		ExternalOrderID: o.ExternalOrderID,
	}
}

func customerNotification(topic string, c *model.Customer, updatedOrders int64) *model.Notification {
	title := "Customer updated"
	if topic == shopify.TopicCustomersCreate {
		title = "New customer"
	}

	var name []string
	if c.FirstName != nil {
		name = append(name, *c.FirstName)
	}
	if c.LastName != nil {
		name = append(name, *c.LastName)
	}
	display := strings.Join(name, " ")
	if display == "" && c.Email != nil {
		display = *c.Email
	}
	if display == "" {
		display = c.ExternalID
	}

	data := map[string]any{
		"customerId":    c.ExternalID,
		"ordersCount":   c.OrdersCount,
		"updatedOrders": updatedOrders,
	}
	if c.Email != nil {
		data["email"] = *c.Email
	}

	return &model.Notification{
		Type:    topic,
		Title:   title,
		Message: fmt.Sprintf("%s: %s", title, display),
		Data:    data,
	}
}
