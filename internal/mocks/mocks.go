package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"support-service/internal/models"
	"support-service/internal/repositories"
	"support-service/internal/storage"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, id string) (models.User, error) {
	args := m.Called(ctx, id)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByTelegramID(ctx context.Context, telegramID string) (models.User, error) {
	args := m.Called(ctx, telegramID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) Create(ctx context.Context, telegramID, name string, photoURL *string) (models.User, error) {
	args := m.Called(ctx, telegramID, name, photoURL)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) SetOnboarding(ctx context.Context, id, city, dealerCenter string) error {
	args := m.Called(ctx, id, city, dealerCenter)
	return args.Error(0)
}

func (m *UserRepositoryMock) ListDealerCenters(ctx context.Context, city string) ([]models.DealerCenterRow, error) {
	args := m.Called(ctx, city)
	var centers []models.DealerCenterRow
	if val := args.Get(0); val != nil {
		centers = val.([]models.DealerCenterRow)
	}
	return centers, args.Error(1)
}

type RequestRepositoryMock struct {
	mock.Mock
}

func (m *RequestRepositoryMock) Create(ctx context.Context, userID, title, description, priority string) (models.Request, error) {
	args := m.Called(ctx, userID, title, description, priority)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) GetByID(ctx context.Context, id string) (models.Request, error) {
	args := m.Called(ctx, id)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) List(ctx context.Context, filter repositories.RequestFilter) ([]models.Request, error) {
	args := m.Called(ctx, filter)
	var requests []models.Request
	if val := args.Get(0); val != nil {
		requests = val.([]models.Request)
	}
	return requests, args.Error(1)
}

func (m *RequestRepositoryMock) UpdateDetails(ctx context.Context, id, title, description, priority string) (models.Request, error) {
	args := m.Called(ctx, id, title, description, priority)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) UpdateStatus(ctx context.Context, id, status string, assignedAdminID *string) (models.Request, error) {
	args := m.Called(ctx, id, status, assignedAdminID)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) SetArchived(ctx context.Context, id string, archived bool) error {
	args := m.Called(ctx, id, archived)
	return args.Error(0)
}

func (m *RequestRepositoryMock) SetMediaURLs(ctx context.Context, id string, media models.AttachmentList) (models.Request, error) {
	args := m.Called(ctx, id, media)
	var req models.Request
	if val := args.Get(0); val != nil {
		req = val.(models.Request)
	}
	return req, args.Error(1)
}

func (m *RequestRepositoryMock) Touch(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RequestRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, requestID string, sender models.User, content string, attachments models.AttachmentList) (models.Message, error) {
	args := m.Called(ctx, requestID, sender, content, attachments)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListByRequest(ctx context.Context, requestID string) ([]models.Message, error) {
	args := m.Called(ctx, requestID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetByID(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) CountUnread(ctx context.Context, requestID, viewerID string) (int, error) {
	args := m.Called(ctx, requestID, viewerID)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) CountUnreadTotal(ctx context.Context, viewerID string, adminScope bool) (int, error) {
	args := m.Called(ctx, viewerID, adminScope)
	return args.Int(0), args.Error(1)
}

func (m *MessageRepositoryMock) ListChatSummaries(ctx context.Context, viewerID string, adminScope bool) ([]models.ChatSummary, error) {
	args := m.Called(ctx, viewerID, adminScope)
	var summaries []models.ChatSummary
	if val := args.Get(0); val != nil {
		summaries = val.([]models.ChatSummary)
	}
	return summaries, args.Error(1)
}

type ObjectStorageMock struct {
	mock.Mock
}

func (m *ObjectStorageMock) Upload(ctx context.Context, class storage.Class, ownerID, filename, contentType string, body io.Reader, size int64) (models.Attachment, error) {
	args := m.Called(ctx, class, ownerID, filename, contentType, body, size)
	var att models.Attachment
	if val := args.Get(0); val != nil {
		att = val.(models.Attachment)
	}
	return att, args.Error(1)
}

func (m *ObjectStorageMock) Remove(ctx context.Context, class storage.Class, urls []string) {
	m.Called(ctx, class, urls)
}

func (m *ObjectStorageMock) Limit(class storage.Class) int64 {
	args := m.Called(class)
	return args.Get(0).(int64)
}

var (
	_ repositories.UserRepository    = (*UserRepositoryMock)(nil)
	_ repositories.RequestRepository = (*RequestRepositoryMock)(nil)
	_ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
	_ storage.ObjectStorage          = (*ObjectStorageMock)(nil)
)
