package wms

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/model"
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultBaseDelay   = 200 * time.Millisecond
	maxDelay           = 5 * time.Second
)

// RetryingGateway повторяет неудачные вызовы шлюза с экспоненциальной задержкой
// и ограничивает каждую операцию по времени.
type RetryingGateway struct {
	next       Gateway
	maxRetries uint64
	baseDelay  time.Duration
	timeout    time.Duration
	logger     *zap.Logger
}

var _ Gateway = (*RetryingGateway)(nil)

// RetryOption настраивает RetryingGateway.
type RetryOption func(*RetryingGateway)

// WithBaseDelay задаёт начальную задержку между попытками.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(g *RetryingGateway) { g.baseDelay = d }
}

// WithTimeout задаёт общий лимит времени на операцию вместе с повторами.
func WithTimeout(d time.Duration) RetryOption {
	return func(g *RetryingGateway) { g.timeout = d }
}

// NewRetryingGateway оборачивает шлюз повторами.
func NewRetryingGateway(next Gateway, maxRetries int, logger *zap.Logger, opts ...RetryOption) *RetryingGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	g := &RetryingGateway{
		next:       next,
		maxRetries: uint64(maxRetries),
		baseDelay:  defaultBaseDelay,
		timeout:    defaultCallTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Connect проверяет соединение со складом.
func (g *RetryingGateway) Connect(ctx context.Context) (ConnectionInfo, error) {
	var info ConnectionInfo
	err := g.do(ctx, "connect", func(ctx context.Context) error {
		var err error
		info, err = g.next.Connect(ctx)
		return err
	})
	return info, err
}

// PushOrder передаёт заказ на склад.
func (g *RetryingGateway) PushOrder(ctx context.Context, s Shipment) error {
	return g.do(ctx, "push_order", func(ctx context.Context) error {
		return g.next.PushOrder(ctx, s)
	})
}

// UpdateInventory передаёт остатки на склад.
func (g *RetryingGateway) UpdateInventory(ctx context.Context, items []model.InventoryItem) (int, error) {
	var n int
	err := g.do(ctx, "update_inventory", func(ctx context.Context) error {
		var err error
		n, err = g.next.UpdateInventory(ctx, items)
		return err
	})
	return n, err
}

func (g *RetryingGateway) do(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	backoff := retry.NewExponential(g.baseDelay)
	backoff = retry.WithCappedDuration(maxDelay, backoff)
	backoff = retry.WithMaxRetries(g.maxRetries, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrRejected) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		g.logger.Warn("wms call failed",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return retry.RetryableError(err)
	})
}
