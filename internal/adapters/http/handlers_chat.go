package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) chatHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "chat_history")
	if !ok {
		return
	}
	otherID, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid user_id")
		return
	}

	res, err := h.service.Conversation(r.Context(), claims.UserID, otherID)
	if err != nil {
		writeMappedError(r.Context(), w, "chat_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// websocket hands the authenticated request to the relay hub. The hub owns
// the connection from here; this handler never writes to w afterwards.
func (h *Handler) websocket(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "websocket")
	if !ok {
		return
	}
	h.hub.HandleConnection(w, r, claims)
}
