package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"support-service/internal/models"
	"support-service/internal/observability"
	"support-service/internal/repositories"
	"support-service/internal/storage"
	"support-service/internal/telemetry"
	"support-service/internal/ws"
)

// RequestHandler manages support-request endpoints.
type RequestHandler struct {
	requestRepo repositories.RequestRepository
	store       storage.ObjectStorage
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewRequestHandler builds a RequestHandler.
func NewRequestHandler(requestRepo repositories.RequestRepository, store storage.ObjectStorage, hub *ws.Hub, audit *telemetry.AuditEmitter) *RequestHandler {
	return &RequestHandler{
		requestRepo: requestRepo,
		store:       store,
		hub:         hub,
		audit:       audit,
	}
}

// ListRequests returns the requests visible to the authenticated user:
// dealers see their own, admins see everything. The archived filter
// defaults to the active (non-archived) view.
func (h *RequestHandler) ListRequests(c *gin.Context) {
	filter := repositories.RequestFilter{
		Archived: c.Query("archived") == "true",
		Status:   c.Query("status"),
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	if !isAdmin(c) {
		filter.UserID = c.GetString("userID")
	}

	requests, err := h.requestRepo.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// CreateRequest opens a new support request with status "new".
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description" binding:"required"`
		Priority    string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(req.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	userID := c.GetString("userID")
	created, err := h.requestRepo.Create(c.Request.Context(), userID, req.Title, req.Description, req.Priority)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "request created", requestIDFromContext(c), userIDFromContext(c))
	h.hub.BroadcastRequestUpdated(created)
	c.JSON(http.StatusCreated, created)
}

// GetRequest fetches a single request.
func (h *RequestHandler) GetRequest(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, req)
}

// UpdateRequest rewrites the owner-editable fields.
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	var in struct {
		Title       string `json:"title" binding:"required"`
		Description string `json:"description" binding:"required"`
		Priority    string `json:"priority" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidPriority(in.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	updated, err := h.requestRepo.UpdateDetails(c.Request.Context(), req.ID, in.Title, in.Description, in.Priority)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update request"})
		return
	}

	h.hub.BroadcastRequestUpdated(updated)
	c.JSON(http.StatusOK, updated)
}

// UpdateStatus writes a status value and optional admin assignment.
// Admin only. Any status may follow any other; only out-of-enum values
// are rejected.
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	if !isAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}

	var in struct {
		Status          string  `json:"status" binding:"required"`
		AssignedAdminID *string `json:"assigned_admin_id"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidStatus(in.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	updated, err := h.requestRepo.UpdateStatus(c.Request.Context(), c.Param("request_id"), in.Status, in.AssignedAdminID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to update status"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "request status changed", requestIDFromContext(c), userIDFromContext(c))
	h.hub.BroadcastRequestUpdated(updated)
	c.JSON(http.StatusOK, updated)
}

// Archive sets or clears the soft-hide flag from any status. Restoring
// reverses list membership exactly; no other field is touched.
func (h *RequestHandler) Archive(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	var in struct {
		Archived *bool `json:"archived" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.requestRepo.SetArchived(c.Request.Context(), req.ID, *in.Archived); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update archive flag"})
		return
	}

	updated, err := h.requestRepo.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request"})
		return
	}

	h.hub.BroadcastRequestUpdated(updated)
	c.JSON(http.StatusOK, updated)
}

// DeleteRequest removes the request and sweeps its stored attachments.
// The sweep is best-effort: a failed object deletion is logged and the
// row deletion proceeds regardless.
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	if len(req.MediaURLs) > 0 {
		h.store.Remove(c.Request.Context(), storage.RequestMedia, req.MediaURLs.URLs())
	}

	if err := h.requestRepo.Delete(c.Request.Context(), req.ID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to delete request"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "request deleted", requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// UploadAttachment stores one file and appends its descriptor to the
// request's attachment list, preserving upload order.
func (h *RequestHandler) UploadAttachment(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > h.store.Limit(storage.RequestMedia) {
		observability.IncUpload("request", "rejected")
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds size limit"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	attachment, err := h.store.Upload(c.Request.Context(), storage.RequestMedia, req.ID,
		header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		observability.IncUpload("request", "error")
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": "failed to upload file"})
		return
	}
	observability.IncUpload("request", "ok")

	updated, err := h.requestRepo.SetMediaURLs(c.Request.Context(), req.ID, append(req.MediaURLs, attachment))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save attachment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachment": attachment, "request": updated})
}

// DeleteAttachment drops one attachment reference and removes the
// stored object best-effort.
func (h *RequestHandler) DeleteAttachment(c *gin.Context) {
	req, ok := h.loadRequest(c)
	if !ok {
		return
	}

	var in struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kept := make(models.AttachmentList, 0, len(req.MediaURLs))
	found := false
	for _, att := range req.MediaURLs {
		if att.URL == in.URL && !found {
			found = true
			continue
		}
		kept = append(kept, att)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
		return
	}

	h.store.Remove(c.Request.Context(), storage.RequestMedia, []string{in.URL})

	updated, err := h.requestRepo.SetMediaURLs(c.Request.Context(), req.ID, kept)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save attachments"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

// loadRequest fetches the request from the path param and enforces
// visibility: the owner or any admin.
func (h *RequestHandler) loadRequest(c *gin.Context) (models.Request, bool) {
	req, err := h.requestRepo.GetByID(c.Request.Context(), c.Param("request_id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrRequestNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "request not found"})
		return models.Request{}, false
	}
	if !isAdmin(c) && req.UserID != c.GetString("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return models.Request{}, false
	}
	return req, true
}
