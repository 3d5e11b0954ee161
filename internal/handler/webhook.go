package handler

import (
	"io"
	"net/http"

	"github.com/mmeshcher/ordersync/internal/shopify"
)

// Webhook обрабатывает вебхук витрины. Подпись к этому моменту уже проверена.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	topic := r.Header.Get(shopify.HeaderTopic)
	if topic == "" {
		writeMessage(w, http.StatusBadRequest, "missing "+shopify.HeaderTopic+" header")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.service.HandleWebhook(r.Context(), topic, body)
	if err != nil {
		h.writeError(w, "webhook "+topic, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
