// Package model содержит доменные сущности сервиса синхронизации заказов.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role описывает роль пользователя панели управления.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IsValid сообщает, является ли роль допустимой.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User представляет зарегистрированного пользователя панели управления.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SyncResult содержит агрегированный итог пакетной синхронизации заказов.
type SyncResult struct {
	SyncedCount int `json:"syncedCount"`
	ErrorCount  int `json:"errors"`
}

// Notification описывает внутреннее уведомление, созданное по событию вебхука.
type Notification struct {
	ID              uuid.UUID      `json:"id"`
	Type            string         `json:"type"`
	Title           string         `json:"title"`
	Message         string         `json:"message"`
	Data            map[string]any `json:"data"`
	ExternalOrderID string         `json:"externalOrderId,omitempty"`
	Read            bool           `json:"read"`
	CreatedAt       time.Time      `json:"createdAt"`
}
