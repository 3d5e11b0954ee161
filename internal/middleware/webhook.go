package middleware

import (
	"bytes"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/ordersync/internal/shopify"
)

const maxWebhookBody = 1 << 20

// WebhookSignature проверяет HMAC-подпись вебхука по сырому телу запроса до любого разбора JSON.
// При пустом секрете отклоняются все запросы.
func WebhookSignature(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
			_ = r.Body.Close()
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			if len(body) > maxWebhookBody {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}

			if !shopify.VerifyWebhook(body, secret, r.Header.Get(shopify.HeaderHmac)) {
				logger.Warn("webhook signature rejected",
					zap.String("topic", r.Header.Get(shopify.HeaderTopic)),
					zap.String("shop", r.Header.Get(shopify.HeaderShopDomain)),
					zap.String("webhook_id", r.Header.Get(shopify.HeaderWebhookID)),
				)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			next.ServeHTTP(w, r)
		})
	}
}
