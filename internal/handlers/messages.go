package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"support-service/internal/models"
	"support-service/internal/observability"
	"support-service/internal/repositories"
	"support-service/internal/storage"
	"support-service/internal/telemetry"
	"support-service/internal/ws"
)

// Placeholder content rendered when a message carries attachments but
// no text. Voice notes get their own label.
const (
	voicePlaceholder      = "Голосове повідомлення"
	attachmentPlaceholder = "Вкладення"
)

// MessageHandler manages the per-request chat endpoints, the inbox
// summary list and unread counters.
type MessageHandler struct {
	requestRepo repositories.RequestRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	store       storage.ObjectStorage
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(requestRepo repositories.RequestRepository, messageRepo repositories.MessageRepository,
	userRepo repositories.UserRepository, store storage.ObjectStorage, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		requestRepo: requestRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		store:       store,
		hub:         hub,
		audit:       audit,
	}
}

// ListMessages returns the request's chat history ascending by time.
func (m *MessageHandler) ListMessages(c *gin.Context) {
	req, ok := m.loadRequest(c)
	if !ok {
		return
	}

	msgs, err := m.messageRepo.ListByRequest(c.Request.Context(), req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a chat message. A message needs text or at least
// one attachment; attachment-only messages get placeholder content so
// inbox previews stay readable.
func (m *MessageHandler) PostMessage(c *gin.Context) {
	req, ok := m.loadRequest(c)
	if !ok {
		return
	}

	var in struct {
		Content     string                `json:"content"`
		Attachments models.AttachmentList `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Content == "" && len(in.Attachments) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message needs content or attachments"})
		return
	}
	for _, att := range in.Attachments {
		if !models.ValidAttachmentType(att.Type) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment type"})
			return
		}
	}
	if in.Content == "" {
		in.Content = placeholderFor(in.Attachments)
	}

	sender, err := m.userRepo.GetByID(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve sender"})
		return
	}

	msg, err := m.messageRepo.Create(c.Request.Context(), req.ID, sender, in.Content, in.Attachments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save message"})
		return
	}

	// Bump the request so the inbox orders by latest activity.
	if err := m.requestRepo.Touch(c.Request.Context(), req.ID); err != nil {
		log.Printf("failed to touch request %s: %v", req.ID, err)
	}

	m.hub.BroadcastMessage(req, msg)
	m.markReadForViewers(c, req.ID, msg)

	m.audit.Emit(c.Request.Context(), "INFO", "message posted", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, msg)
}

// MarkRead flips one message to read on behalf of the viewer. Senders
// cannot mark their own messages; repeated calls are no-ops.
func (m *MessageHandler) MarkRead(c *gin.Context) {
	messageID := c.Param("message_id")

	msg, err := m.messageRepo.GetByID(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}

	viewerID := c.GetString("userID")
	if msg.UserID == viewerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot mark own message"})
		return
	}

	req, err := m.requestRepo.GetByID(c.Request.Context(), msg.RequestID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request"})
		return
	}
	if !isAdmin(c) && req.UserID != viewerID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return
	}

	if err := m.messageRepo.MarkRead(c.Request.Context(), messageID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark read"})
		return
	}

	c.Status(http.StatusNoContent)
}

// UnreadCount returns the viewer-scoped unread total. A request_id
// query narrows it to one conversation.
func (m *MessageHandler) UnreadCount(c *gin.Context) {
	viewerID := c.GetString("userID")

	if requestID := c.Query("request_id"); requestID != "" {
		count, err := m.messageRepo.CountUnread(c.Request.Context(), requestID, viewerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread_count": count})
		return
	}

	count, err := m.messageRepo.CountUnreadTotal(c.Request.Context(), viewerID, isAdmin(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// ListChats returns the inbox: one summary per request that has
// messages, newest conversation first.
func (m *MessageHandler) ListChats(c *gin.Context) {
	summaries, err := m.messageRepo.ListChatSummaries(c.Request.Context(), c.GetString("userID"), isAdmin(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": summaries})
}

// UploadChatAttachment stores a chat file and returns its descriptor.
// The descriptor is attached to a message by a subsequent PostMessage
// call; nothing is written to the request row.
func (m *MessageHandler) UploadChatAttachment(c *gin.Context) {
	req, ok := m.loadRequest(c)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > m.store.Limit(storage.ChatMedia) {
		observability.IncUpload("chat", "rejected")
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file exceeds size limit"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	attachment, err := m.store.Upload(c.Request.Context(), storage.ChatMedia, req.ID,
		header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		observability.IncUpload("chat", "error")
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrFileTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": "failed to upload file"})
		return
	}
	observability.IncUpload("chat", "ok")

	c.JSON(http.StatusOK, gin.H{"attachment": attachment})
}

// markReadForViewers marks a freshly delivered message read when
// someone other than the sender has the chat open. Fire-and-forget: a
// failed write only logs.
func (m *MessageHandler) markReadForViewers(c *gin.Context, requestID string, msg models.Message) {
	for _, viewer := range m.hub.RequestViewers(requestID) {
		if viewer.UserID == msg.UserID {
			continue
		}
		if err := m.messageRepo.MarkRead(c.Request.Context(), msg.ID); err != nil {
			log.Printf("failed to mark message %s read: %v", msg.ID, err)
		}
		return
	}
}

// placeholderFor picks display text for an attachment-only message.
func placeholderFor(attachments models.AttachmentList) string {
	for _, att := range attachments {
		if att.Type != models.AttachmentAudio {
			return attachmentPlaceholder
		}
	}
	return voicePlaceholder
}

func (m *MessageHandler) loadRequest(c *gin.Context) (models.Request, bool) {
	req, err := m.requestRepo.GetByID(c.Request.Context(), c.Param("request_id"))
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
