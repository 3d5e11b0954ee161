package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Заголовки запросов вебхуков.
const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
)

// Топики вебхуков, которые обрабатывает сервис.
const (
	TopicOrdersCreate             = "orders/create"
	TopicOrdersUpdated            = "orders/updated"
	TopicOrdersPaid               = "orders/paid"
	TopicOrdersFulfilled          = "orders/fulfilled"
	TopicOrdersPartiallyFulfilled = "orders/partially_fulfilled"
	TopicOrdersEdited             = "orders/edited"
	TopicOrdersCancelled          = "orders/cancelled"
	TopicCustomersCreate          = "customers/create"
	TopicCustomersUpdate          = "customers/update"
)

// SignWebhook вычисляет подпись HMAC-SHA256 тела запроса в кодировке base64.
func SignWebhook(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook сравнивает подпись из заголовка с подписью тела за постоянное время.
// Пустой секрет или пустая подпись всегда дают отказ.
func VerifyWebhook(body []byte, secret, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := SignWebhook(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
