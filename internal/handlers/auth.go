package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/requestdata"
	"github.com/compasshq/compass-backend/internal/services"
)

type AuthHandler struct {
	log  *logger.Logger
	auth services.AuthService
}

func NewAuthHandler(log *logger.Logger, auth services.AuthService) *AuthHandler {
	return &AuthHandler{log: log.With("handler", "AuthHandler"), auth: auth}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	access, refresh, err := h.auth.RegisterUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(h.auth.GetAccessTTL().Seconds()),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("invalid request body: %w", err)))
		return
	}
	access, refresh, err := h.auth.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(h.auth.GetAccessTTL().Seconds()),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a fresh token pair. It takes
// the refresh token in the body so an expired access token never
// blocks the exchange.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		RespondError(c, h.log, apierr.BadRequest("invalid_body", fmt.Errorf("refresh_token is required")))
		return
	}
	ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{
		RefreshToken: req.RefreshToken,
	})
	access, refresh, err := h.auth.RefreshUser(ctx)
	if err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(h.auth.GetAccessTTL().Seconds()),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.LogoutUser(c.Request.Context()); err != nil {
		RespondError(c, h.log, err)
		return
	}
	RespondOK(c, gin.H{"logged_out": true})
}
