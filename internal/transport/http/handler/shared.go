package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/share-gate-api/internal/application/share"
	"github.com/share-gate-api/internal/domain"
	"github.com/share-gate-api/internal/transport/http/middleware"
)

// SharedHandler serves the protected shared-resource view. Requests reach it
// only through the grant middleware.
type SharedHandler struct {
	svc share.Service
}

func NewSharedHandler(svc share.Service) *SharedHandler {
	return &SharedHandler{svc: svc}
}

func (h *SharedHandler) View(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GrantFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	shareType := domain.ShareType(chi.URLParam(r, "type"))
	// Gate pages disambiguate themselves with an "-otp" id suffix; strip it to
	// recover the canonical resource id.
	shareID := strings.TrimSuffix(chi.URLParam(r, "id"), "-otp")

	if !shareType.Valid() || shareID == "" {
		writeError(w, http.StatusBadRequest, "invalid share reference")
		return
	}
	// The grant is scoped to exactly one tuple; a token for another resource
	// is as good as no token.
	if claims.ShareType != shareType || claims.ShareID != shareID {
		writeError(w, http.StatusForbidden, "grant does not cover this resource")
		return
	}

	res, err := h.svc.Resolve(r.Context(), shareType, shareID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "shared resource not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not load shared resource")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
