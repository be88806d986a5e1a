package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"support-service/internal/auth"
	"support-service/internal/repositories"
)

// AuthHandler resolves Telegram Mini App identities into local users
// and issues session tokens.
type AuthHandler struct {
	userRepo repositories.UserRepository
	issuer   *auth.TokenIssuer
	botToken string
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(userRepo repositories.UserRepository, issuer *auth.TokenIssuer, botToken string) *AuthHandler {
	return &AuthHandler{userRepo: userRepo, issuer: issuer, botToken: botToken}
}

// Login verifies Mini App initData, gets or creates the user row and
// returns a session token. Users are created with the dealer role on
// first login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		InitData string `json:"init_data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tgUser, err := auth.VerifyInitData(req.InitData, h.botToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
		return
	}

	telegramID := formatTelegramID(tgUser.ID)
	user, err := h.userRepo.GetByTelegramID(c.Request.Context(), telegramID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		var photo *string
		if tgUser.PhotoURL != "" {
			photo = &tgUser.PhotoURL
		}
		user, err = h.userRepo.Create(c.Request.Context(), telegramID, tgUser.DisplayName(), photo)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve user"})
		return
	}

	token, err := h.issuer.Issue(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Onboarding stores the city and dealer-center choice.
func (h *AuthHandler) Onboarding(c *gin.Context) {
	var req struct {
		City         string `json:"city" binding:"required"`
		DealerCenter string `json:"dealer_center" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if err := h.userRepo.SetOnboarding(c.Request.Context(), userID, req.City, req.DealerCenter); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "failed to save onboarding"})
		return
	}

	c.Status(http.StatusNoContent)
}

// DealerCenters lists dealer centers for a city.
func (h *AuthHandler) DealerCenters(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city is required"})
		return
	}

	centers, err := h.userRepo.ListDealerCenters(c.Request.Context(), city)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dealer centers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dealer_centers": centers})
}
