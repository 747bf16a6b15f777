package http

import (
	"net/http"

	"github.com/openhours/timebank/internal/application"
)

func (h *Handler) createService(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "create_service")
	if !ok {
		return
	}
	var req application.CreateOfferingRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_service", err)
		return
	}

	res, err := h.service.CreateOffering(r.Context(), claims.UserID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_service", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listOtherServices(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "list_other_services")
	if !ok {
		return
	}
	items, err := h.service.ListOtherOfferings(r.Context(), claims.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_other_services", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"services": items})
}

func (h *Handler) listMyServices(w http.ResponseWriter, r *http.Request) {
	claims, ok := mustClaims(w, r, "list_my_services")
	if !ok {
		return
	}
	items, err := h.service.ListMyOfferings(r.Context(), claims.UserID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_my_services", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"services": items})
}
