package http

import (
	"net/http"

	"github.com/openhours/timebank/internal/application"
)

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "timebank_history")
	if !ok {
		return
	}

	query := application.HistoryQuery{
		Page:  parseIntDefault(r.URL.Query().Get("page"), 1),
		Limit: parseIntDefault(r.URL.Query().Get("limit"), 20),
	}
	items, err := h.service.History(r.Context(), claims.UserID, query)
	if err != nil {
		writeMappedError(r.Context(), w, "timebank_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"history": items})
}
