package handler

import (
	"bufio"
	"citizenone/models"
	"citizenone/repository"
	"citizenone/service"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
)

// ComplaintAPI is the complaint service surface the handler uses
type ComplaintAPI interface {
	CreateComplaint(ctx context.Context, p models.Principal, req *models.CreateComplaintRequest) (*models.ComplaintView, error)
	GetComplaint(ctx context.Context, p models.Principal, id int64) (*models.ComplaintView, error)
	ListComplaints(ctx context.Context, p models.Principal, q repository.ComplaintQuery) (*models.ComplaintPage, error)
	GetStats(ctx context.Context, p models.Principal) (*models.ComplaintStats, error)
	AddAttachment(ctx context.Context, p models.Principal, complaintID int64, fileName, mimeType string, r io.Reader) (*models.Attachment, error)
	RemoveAttachment(ctx context.Context, p models.Principal, complaintID, attachmentID int64) error
}

// ComplaintUpdater applies lifecycle updates
type ComplaintUpdater interface {
	Update(ctx context.Context, p models.Principal, complaintID int64, req *models.UpdateComplaintRequest) (*models.ComplaintView, error)
}

var (
	_ ComplaintAPI     = (*service.ComplaintService)(nil)
	_ ComplaintUpdater = (*service.LifecycleManager)(nil)
)

// ComplaintHandler handles HTTP requests for complaints
type ComplaintHandler struct {
	service        ComplaintAPI
	lifecycle      ComplaintUpdater
	maxUploadBytes int64
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(svc ComplaintAPI, lifecycle ComplaintUpdater, maxUploadBytes int64) *ComplaintHandler {
	return &ComplaintHandler{service: svc, lifecycle: lifecycle, maxUploadBytes: maxUploadBytes}
}

// CreateComplaint handles POST /api/v1/complaints
func (h *ComplaintHandler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.CreateComplaintRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	view, err := h.service.CreateComplaint(r.Context(), p, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, view)
}

// ListComplaints handles GET /api/v1/complaints?status=...&sort=-created_at&page=1&limit=10
func (h *ComplaintHandler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	q, err := repository.ParseComplaintQuery(r.URL.Query())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	page, err := h.service.ListComplaints(r.Context(), p, q)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

// GetComplaint handles GET /api/v1/complaints/{id}
func (h *ComplaintHandler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	view, err := h.service.GetComplaint(r.Context(), p, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// GetStatusTimeline handles GET /api/v1/complaints/{id}/timeline
func (h *ComplaintHandler) GetStatusTimeline(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	view, err := h.service.GetComplaint(r.Context(), p, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"complaint_number": view.ComplaintNumber,
		"timeline":         view.Timeline,
	})
}

// UpdateComplaint handles PATCH /api/v1/complaints/{id}
func (h *ComplaintHandler) UpdateComplaint(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	var req models.UpdateComplaintRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	view, err := h.lifecycle.Update(r.Context(), p, id, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// GetStats handles GET /api/v1/complaints/stats
func (h *ComplaintHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	stats, err := h.service.GetStats(r.Context(), p)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// UploadAttachment handles POST /api/v1/complaints/{id}/attachments (multipart field "file")
func (h *ComplaintHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	// Leave room for multipart framing; the store enforces the exact limit.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Payload too large", "Upload exceeds size limit")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Validation error", "Expected a multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation error", "file is required")
		return
	}
	defer file.Close()

	// The type is always sniffed from the content; the declared part header is
	// client-controlled and only logged when it disagrees.
	body := bufio.NewReaderSize(file, 512)
	sniff, _ := body.Peek(512)
	mimeType := http.DetectContentType(sniff)
	if declared := header.Header.Get("Content-Type"); declared != "" && declared != "application/octet-stream" && declared != mimeType {
		log.Printf("[complaint] Upload %q declared as %s but sniffed as %s", header.Filename, declared, mimeType)
	}
	if !service.AllowedAttachmentTypes[mimeType] {
		respondWithError(w, http.StatusBadRequest, "Validation error", fmt.Sprintf("file type %s is not allowed", mimeType))
		return
	}

	att, err := h.service.AddAttachment(r.Context(), p, id, header.Filename, mimeType, body)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, att)
}

// DeleteAttachment handles DELETE /api/v1/complaints/{id}/attachments/{attachment_id}
func (h *ComplaintHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	attachmentID, err := pathID(r, "attachment_id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if err := h.service.RemoveAttachment(r.Context(), p, id, attachmentID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("attachment %d removed", attachmentID),
	})
}
