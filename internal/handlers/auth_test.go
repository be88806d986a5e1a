package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"support-service/internal/auth"
	"support-service/internal/mocks"
	"support-service/internal/models"
	"support-service/internal/repositories"
)

const testBotToken = "12345:test-bot-token"

func signedInitData(t *testing.T, userJSON string) string {
	t.Helper()
	values := url.Values{}
	values.Set("user", userJSON)
	values.Set("auth_date", "1700000000")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(testBotToken))
	mac := hmac.New(sha256.New, secretMac.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))

	return values.Encode()
}

func setupAuthRouter(handler *AuthHandler, userID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/telegram", handler.Login)
	authed := r.Group("/", func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	})
	authed.GET("/me", handler.Me)
	authed.PUT("/me/onboarding", handler.Onboarding)
	authed.GET("/dealer-centers", handler.DealerCenters)
	return r
}

func TestLoginCreatesUserOnFirstVisit(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	issuer := auth.NewTokenIssuer("test-secret")
	handler := NewAuthHandler(userRepo, issuer, testBotToken)
	router := setupAuthRouter(handler, "", "")

	userRepo.On("GetByTelegramID", mock.Anything, "777").
		Return(models.User{}, repositories.ErrUserNotFound).Once()
	userRepo.On("Create", mock.Anything, "777", "Taras Shevchenko", (*string)(nil)).
		Return(models.User{ID: "u1", TelegramID: "777", Name: "Taras Shevchenko", Role: models.RoleDealer}, nil).Once()

	initData := signedInitData(t, `{"id":777,"first_name":"Taras","last_name":"Shevchenko"}`)
	payload, _ := json.Marshal(gin.H{"init_data": initData})
	req := httptest.NewRequest(http.MethodPost, "/auth/telegram", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "u1", resp.User.ID)

	claims, err := issuer.Validate(resp.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, models.RoleDealer, claims.Role)

	userRepo.AssertExpectations(t)
}

func TestLoginExistingUserNotRecreated(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewTokenIssuer("test-secret"), testBotToken)
	router := setupAuthRouter(handler, "", "")

	userRepo.On("GetByTelegramID", mock.Anything, "777").
		Return(models.User{ID: "u1", TelegramID: "777", Role: models.RoleAdmin}, nil).Once()

	initData := signedInitData(t, `{"id":777,"first_name":"Taras"}`)
	payload, _ := json.Marshal(gin.H{"init_data": initData})
	req := httptest.NewRequest(http.MethodPost, "/auth/telegram", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	userRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginTamperedHashRejected(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewTokenIssuer("test-secret"), testBotToken)
	router := setupAuthRouter(handler, "", "")

	initData := signedInitData(t, `{"id":777,"first_name":"Taras"}`)
	tampered := strings.Replace(initData, "auth_date=1700000000", "auth_date=1700000001", 1)

	payload, _ := json.Marshal(gin.H{"init_data": tampered})
	req := httptest.NewRequest(http.MethodPost, "/auth/telegram", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertNotCalled(t, "GetByTelegramID", mock.Anything, mock.Anything)
}

func TestOnboardingStoresChoice(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewTokenIssuer("test-secret"), testBotToken)
	router := setupAuthRouter(handler, "u1", models.RoleDealer)

	userRepo.On("SetOnboarding", mock.Anything, "u1", "Київ", "Автоцентр на Столичному").Return(nil).Once()

	payload, _ := json.Marshal(gin.H{"city": "Київ", "dealer_center": "Автоцентр на Столичному"})
	req := httptest.NewRequest(http.MethodPut, "/me/onboarding", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestDealerCentersRequiresCity(t *testing.T) {
	handler := NewAuthHandler(new(mocks.UserRepositoryMock), auth.NewTokenIssuer("test-secret"), testBotToken)
	router := setupAuthRouter(handler, "u1", models.RoleDealer)

	req := httptest.NewRequest(http.MethodGet, "/dealer-centers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
