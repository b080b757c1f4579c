package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/api/middleware"
	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(as *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: as, logger: logger.Named("auth_handler")}
}

// POST /auth/register creates an operator account. Admins come from config.
func (h *AuthHandler) Register(c *gin.Context) {
	var dto domain.RegisterUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dto.Username = strings.TrimSpace(dto.Username)

	user, err := h.authService.Register(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err, "could not register user")
		return
	}
	h.logger.Info("operator registered", zap.String("username", user.Username), zap.Int("user_id", user.ID))
	c.JSON(http.StatusCreated, user)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dto.Username = strings.TrimSpace(dto.Username)

	authResponse, err := h.authService.Login(c.Request.Context(), dto)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.logger.Warn("failed login", zap.String("username", dto.Username), zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err, "login failed")
		return
	}
	c.JSON(http.StatusOK, authResponse)
}

// GET /api/v1/me returns the caller as seen by the auth middleware, so the
// dashboard can decide which spot and reservation actions to offer.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := strconv.Atoi(c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token subject is not a user id"})
		return
	}
	role := c.GetString(middleware.UserRoleKey)
	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"username": c.GetString(middleware.UsernameKey),
		"role":     role,
		"is_admin": role == domain.RoleAdmin,
	})
}
