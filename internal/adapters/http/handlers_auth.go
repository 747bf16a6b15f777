package http

import (
	"net/http"
	"strings"

	"github.com/openhours/timebank/internal/application"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "register", err)
		return
	}

	res, err := h.service.Register(r.Context(), req, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeMappedError(r.Context(), w, "register", err)
		return
	}

	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req application.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "login", err)
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "login", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "profile")
	if !ok {
		return
	}
	res, err := h.service.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "profile", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "delete_account")
	if !ok {
		return
	}
	if err := h.service.DeleteAccount(r.Context(), claims.UserID); err != nil {
		writeMappedError(r.Context(), w, "delete_account", err)
		return
	}
	writeMessage(w, http.StatusOK, "Account deleted successfully")
}
