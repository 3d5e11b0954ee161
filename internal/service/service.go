// Package service реализует бизнес-логику сервиса синхронизации заказов.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/ordersync/internal/model"
	"github.com/mmeshcher/ordersync/internal/repository"
	"github.com/mmeshcher/ordersync/internal/shopify"
	"github.com/mmeshcher/ordersync/internal/wms"
)

var (
	// ErrInvalidCredentials возвращается при неверном имени пользователя или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidStatus возвращается для неизвестного финансового статуса или статуса выполнения.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrSourceNotConfigured возвращается, если клиент витрины не настроен.
	ErrSourceNotConfigured = errors.New("order source is not configured")
	// ErrGateway возвращается, если склад не принял операцию.
	ErrGateway = errors.New("wms gateway failure")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Ping(ctx context.Context) error
	Close() error

	CreateUser(ctx context.Context, username string, passwordHash []byte) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	UpsertOrders(ctx context.Context, orders []model.OrderData) []error
	UpsertOrder(ctx context.Context, d model.OrderData) (*model.Order, error)
	CreateOrder(ctx context.Context, d model.OrderData) (*model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetOrderByExternalID(ctx context.Context, externalID string) (*model.Order, error)
	ListOrders(ctx context.Context, f model.OrderFilter) ([]model.Order, int, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, fn func(*model.OrderData) error) (*model.Order, error)
	UpdateOrderByExternalID(ctx context.Context, externalID string, fn func(*model.OrderData) error) (*model.Order, error)
	UpdateCustomerSnapshot(ctx context.Context, c model.Customer) (int64, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	GetWMSRecord(ctx context.Context, orderID uuid.UUID) (*model.WMSRecord, error)
	SaveWMSRecord(ctx context.Context, rec *model.WMSRecord) error

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
}

// OrderSource описывает клиент витрины, из которой синхронизируются заказы.
type OrderSource interface {
	FetchAllOrders(ctx context.Context) ([]json.RawMessage, error)
	UpdateOrder(ctx context.Context, externalID string, upd shopify.OrderUpdate) error
}

// Service содержит бизнес-логику сервиса синхронизации заказов.
type Service struct {
	repo       Repository
	source     OrderSource
	gateway    wms.Gateway
	logger     *zap.Logger
	bcryptCost int
}

// NewService создаёт сервис. source может быть nil, если витрина не настроена.
func NewService(repo Repository, source OrderSource, gateway wms.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gateway == nil {
		gateway = wms.NewStubGateway(logger)
	}

	return &Service{
		repo:       repo,
		source:     source,
		gateway:    gateway,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, username, password string) (*model.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.CreateUser(ctx, username, hashed)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, repository.ErrUserExists
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return u, nil
}

// AuthenticateUser проверяет имя пользователя и пароль и возвращает пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}
