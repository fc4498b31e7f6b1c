package handler

import (
	"net/http"

	"calldesk/internal/logger"
	"calldesk/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type LoginRequest struct {
	AgentNumber string `json:"agent_number" binding:"required,numeric"`
	Password    string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "agent number and password required, agent number must contain numbers only"})
		return
	}
	a, access, refresh, err := h.svc.Login(req.AgentNumber, req.Password)
	if err != nil {
		switch err {
		case service.ErrInvalidCreds:
			c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		case service.ErrAgentInactive:
			c.JSON(http.StatusForbidden, gin.H{"message": err.Error()})
		default:
			logger.L.WithError(err).Error("login failed")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "login failed"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"token":         access,
		"refresh_token": refresh,
		"user": gin.H{
			"id":           a.ID,
			"agent_number": a.AgentNumber,
			"name":         a.Name,
			"email":        a.Email,
			"role":         a.Role(),
		},
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	access, refresh, err := h.svc.RefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": access, "refresh_token": refresh})
}

// Logout exists so clients have an explicit end-of-session call; session
// state lives client-side, so there is nothing to invalidate server-side.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
