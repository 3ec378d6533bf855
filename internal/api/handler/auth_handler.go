package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rjldg/PH-MotorPlate-OCR/internal/domain"
	"github.com/rjldg/PH-MotorPlate-OCR/internal/service"
)

// AccountService is implemented by service.AuthService.
type AccountService interface {
	Register(ctx context.Context, dto domain.RegisterUserDTO) (*domain.User, error)
	Login(ctx context.Context, dto domain.LoginUserDTO) (*domain.AuthResponseDTO, error)
}

type AuthHandler struct {
	authService AccountService
}

func NewAuthHandler(as AccountService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// POST /auth/register
// Self-registration always yields an operator account.
func (h *AuthHandler) Register(c *gin.Context) {
	var dto domain.RegisterUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dto.Role = domain.RoleOperator
	h.createUser(c, dto)
}

// POST /api/v1/users (admin)
func (h *AuthHandler) CreateUser(c *gin.Context) {
	var dto domain.RegisterUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.createUser(c, dto)
}

func (h *AuthHandler) createUser(c *gin.Context, dto domain.RegisterUserDTO) {
	user, err := h.authService.Register(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrUserAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not register user", "details": err.Error()})
		return
	}
	user.Password = ""
	c.JSON(http.StatusCreated, user)
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var dto domain.LoginUserDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, authResponse)
}
