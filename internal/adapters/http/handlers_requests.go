package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handler) requestService(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "request_service")
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "service_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid service_id")
		return
	}

	res, err := h.service.RequestOffering(r.Context(), claims.UserID, serviceID)
	if err != nil {
		writeMappedError(r.Context(), w, "request_service", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listOutgoingRequests(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "list_outgoing_requests")
	if !ok {
		return
	}
	items, err := h.service.ListOutgoingRequests(r.Context(), claims.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_outgoing_requests", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"requests": items})
}

func (h *Handler) cancelRequest(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "cancel_request")
	if !ok {
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "request_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request_id")
		return
	}

	if err := h.service.CancelRequest(r.Context(), claims.UserID, requestID); err != nil {
		writeMappedError(r.Context(), w, "cancel_request", err)
		return
	}
	writeMessage(w, http.StatusOK, "Request cancelled")
}

func (h *Handler) listServiceRequests(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "list_service_requests")
	if !ok {
		return
	}
	serviceID, err := uuid.Parse(chi.URLParam(r, "service_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid service_id")
		return
	}

	items, err := h.service.ListOfferingRequests(r.Context(), claims.UserID, serviceID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_service_requests", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"requests": items})
}

func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "decide_request")
	if !ok {
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "request_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request_id")
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "decide_request", err)
		return
	}

	res, err := h.service.DecideRequest(r.Context(), claims.UserID, requestID, req.Status)
	if err != nil {
		writeMappedError(r.Context(), w, "decide_request", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}
