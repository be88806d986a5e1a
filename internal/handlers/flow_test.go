package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"support-service/internal/mocks"
	"support-service/internal/models"
	"support-service/internal/repositories"
	"support-service/internal/ws"
)

// Walks the dealer/admin happy path through the HTTP surface: the
// dealer opens a request, the admin finds it and replies, and the
// dealer's unread counter reflects the reply until it is marked read.
func TestSupportRequestFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)

	requestRepo := new(mocks.RequestRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	hub := ws.NewHub()

	requestHandler := NewRequestHandler(requestRepo, new(mocks.ObjectStorageMock), hub, nil)
	messageHandler := NewMessageHandler(requestRepo, messageRepo, userRepo, new(mocks.ObjectStorageMock), hub, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", c.GetHeader("X-Test-User"))
		c.Set("role", c.GetHeader("X-Test-Role"))
		c.Next()
	})
	router.POST("/requests", requestHandler.CreateRequest)
	router.GET("/requests", requestHandler.ListRequests)
	router.POST("/requests/:request_id/messages", messageHandler.PostMessage)
	router.PUT("/messages/:message_id/read", messageHandler.MarkRead)
	router.GET("/unread-count", messageHandler.UnreadCount)

	do := func(method, path, user, role string, body []byte) *httptest.ResponseRecorder {
		var reader *bytes.Reader
		if body == nil {
			reader = bytes.NewReader(nil)
		} else {
			reader = bytes.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("X-Test-User", user)
		req.Header.Set("X-Test-Role", role)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	created := models.Request{ID: "r1", UserID: "dealer-1", Title: "no spare parts", Status: models.StatusNew, Priority: models.PriorityHigh}
	requestRepo.On("Create", mock.Anything, "dealer-1", "no spare parts", "waiting three weeks", models.PriorityHigh).
		Return(created, nil).Once()

	rec := do(http.MethodPost, "/requests", "dealer-1", models.RoleDealer,
		[]byte(`{"title":"no spare parts","description":"waiting three weeks","priority":"high"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Admin sees the new request in the unfiltered list.
	requestRepo.On("List", mock.Anything, repositories.RequestFilter{}).
		Return([]models.Request{created}, nil).Once()
	rec = do(http.MethodGet, "/requests", "admin-1", models.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Requests []models.Request `json:"requests"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listResp))
	require.Len(t, listResp.Requests, 1)
	require.Equal(t, "r1", listResp.Requests[0].ID)

	// Admin replies.
	admin := models.User{ID: "admin-1", Name: "Olha", Role: models.RoleAdmin}
	reply := models.Message{ID: "m1", RequestID: "r1", UserID: "admin-1", Content: "parts shipped"}
	requestRepo.On("GetByID", mock.Anything, "r1").Return(created, nil)
	userRepo.On("GetByID", mock.Anything, "admin-1").Return(admin, nil).Once()
	messageRepo.On("Create", mock.Anything, "r1", admin, "parts shipped", models.AttachmentList(nil)).
		Return(reply, nil).Once()
	requestRepo.On("Touch", mock.Anything, "r1").Return(nil).Once()

	rec = do(http.MethodPost, "/requests/r1/messages", "admin-1", models.RoleAdmin,
		[]byte(`{"content":"parts shipped"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	// Dealer's unread counter now shows the reply.
	messageRepo.On("CountUnreadTotal", mock.Anything, "dealer-1", false).Return(1, nil).Once()
	rec = do(http.MethodGet, "/unread-count", "dealer-1", models.RoleDealer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var countResp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&countResp))
	require.Equal(t, 1, countResp["unread_count"])

	// Dealer reads the reply; the counter returns to zero.
	messageRepo.On("GetByID", mock.Anything, "m1").Return(reply, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, "m1").Return(nil).Once()
	rec = do(http.MethodPut, "/messages/m1/read", "dealer-1", models.RoleDealer, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	messageRepo.On("CountUnreadTotal", mock.Anything, "dealer-1", false).Return(0, nil).Once()
	rec = do(http.MethodGet, "/unread-count", "dealer-1", models.RoleDealer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	countResp = nil
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&countResp))
	require.Equal(t, 0, countResp["unread_count"])

	requestRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}
