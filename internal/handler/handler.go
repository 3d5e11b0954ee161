// Package handler содержит HTTP-обработчики API сервиса синхронизации заказов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/auth"
	"github.com/mmeshcher/ordersync/internal/mapper"
	"github.com/mmeshcher/ordersync/internal/middleware"
	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/repository"
	"github.com/mmeshcher/ordersync/internal/service"
	"github.com/mmeshcher/ordersync/internal/validation"
	"github.com/mmeshcher/ordersync/internal/wms"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RegisterUser(ctx context.Context, username, password string) (*model.User, error)
	AuthenticateUser(ctx context.Context, username, password string) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)

	SyncOrders(ctx context.Context, raws []json.RawMessage) model.SyncResult
	SyncFromSource(ctx context.Context) (model.SyncResult, error)

	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	CreateOrder(ctx context.Context, d model.OrderData) (*model.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, p service.OrderPatch) (*model.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
	PushOrderToSource(ctx context.Context, id uuid.UUID) (*model.Order, error)

	HandleWebhook(ctx context.Context, topic string, body []byte) (service.WebhookResult, error)

	SyncWMSOrder(ctx context.Context, orderID uuid.UUID, data service.WMSOrderData) (*model.WMSRecord, error)
	UpdateWMSCustomer(ctx context.Context, orderID uuid.UUID, c model.WMSCustomer) (*model.WMSRecord, error)
	GetWMSStatus(ctx context.Context, orderID uuid.UUID) (*model.WMSRecord, error)
	ConnectWMS(ctx context.Context) (wms.ConnectionInfo, error)
	UpdateWMSInventory(ctx context.Context, items []model.InventoryItem) (int, error)

	ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer выпускает и отзывает bearer-токены.
type TokenIssuer interface {
	Issue(u model.User) (auth.Token, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// Options содержит настройки маршрутизатора.
type Options struct {
	WebhookSecret string
	CORSOrigins   []string
}

// Handler реализует HTTP-обработчики API сервиса синхронизации заказов.
type Handler struct {
	service        Service
	tokens         TokenIssuer
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validate       *validatorv10.Validate
	opts           Options
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, tokens TokenIssuer, logger *zap.Logger, auth *middleware.AuthMiddleware, opts Options) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        s,
		tokens:         tokens,
		logger:         logger,
		authMiddleware: auth,
		validate:       validation.New(),
		opts:           opts,
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError переводит ошибку сервиса в HTTP-ответ. Неожиданные ошибки логируются.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var fields validation.FieldErrors
	var mErr *mapper.MappingError

	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failed", Fields: fields})
	case errors.Is(err, validation.ErrInvalidBody):
		writeMessage(w, http.StatusBadRequest, "invalid request body")
	case errors.As(err, &mErr), errors.Is(err, mapper.ErrMissingExternalID), errors.Is(err, service.ErrInvalidStatus):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrWMSRecordNotFound),
		errors.Is(err, repository.ErrNotificationNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrUserExists), errors.Is(err, repository.ErrOrderExists):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSourceNotConfigured):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(op+" error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// queryInt читает целочисленный параметр запроса и ограничивает его диапазоном [1, max].
func queryInt(r *http.Request, name string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// Health сообщает о готовности сервиса, проверяя соединение с базой данных.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
