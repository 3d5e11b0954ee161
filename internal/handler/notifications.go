package handler

import (
	"net/http"
	"strconv"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// ListNotifications возвращает последние уведомления, при unread=true только непрочитанные.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	limit := queryInt(r, "limit", defaultNotificationLimit, maxNotificationLimit)

	list, err := h.service.ListNotifications(r.Context(), unread, limit)
	if err != nil {
		h.writeError(w, "list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.service.MarkNotificationRead(r.Context(), id); err != nil {
		h.writeError(w, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
