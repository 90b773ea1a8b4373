package handler

import (
	"citizenone/models"
	"citizenone/service"
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// ComplaintTracker resolves the public tracking view of a complaint
type ComplaintTracker interface {
	TrackComplaint(ctx context.Context, number string) (*models.PublicComplaint, error)
}

var _ ComplaintTracker = (*service.ComplaintService)(nil)

// PublicHandler serves read-only public case data. No auth; no citizen data or actor ids.
type PublicHandler struct {
	tracker ComplaintTracker
}

// NewPublicHandler creates a public handler
func NewPublicHandler(tracker ComplaintTracker) *PublicHandler {
	return &PublicHandler{tracker: tracker}
}

// TrackComplaint handles GET /api/v1/public/complaints/{complaint_number}
func (h *PublicHandler) TrackComplaint(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(mux.Vars(r)["complaint_number"])
	if number == "" {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "complaint_number required")
		return
	}
	view, err := h.tracker.TrackComplaint(r.Context(), number)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}
