package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/facecheck/internal/domain/errors"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/server/http/dto"
	"github.com/polkiloo/facecheck/internal/server/http/middleware"
)

// AuthHandler processes registration, login and profile reads.
type AuthHandler struct {
	facade AuthFacade
}

// NewAuthHandler creates AuthHandler instance.
func NewAuthHandler(facade AuthFacade) *AuthHandler {
	return &AuthHandler{facade: facade}
}

// Register handles POST /users.
func (h *AuthHandler) Register(c *gin.Context) {
	var form dto.RegisterForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return
	}

	in := model.Registration{
		Login:    form.Login,
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		UserType: form.UserType,
	}
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		document, err := readUpload(c, "document")
		switch {
		case err == nil:
			in.Document = document
		case errors.Is(err, errMissingFile):
		default:
			bindError(c, err)
			return
		}
	}

	user, err := h.facade.Register(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{UserID: user.ID.String()})
}

// Login handles POST /sessions.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.facade.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			abortWithError(c, http.StatusUnauthorized, err)
			return
		}
		writeError(c, err)
		return
	}

	middleware.SetAuthCookie(c, session.Token)
	c.JSON(http.StatusOK, dto.SessionResponse{
		Token:      session.Token,
		UserID:     session.User.ID.String(),
		Name:       session.User.Name,
		IsVerified: session.User.IsVerified,
	})
}

// Profile handles GET /users/:id.
func (h *AuthHandler) Profile(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	h.renderUser(c, id)
}

// Me handles GET /users/me for the authenticated caller.
func (h *AuthHandler) Me(c *gin.Context) {
	h.renderUser(c, CurrentUserID(c))
}

func (h *AuthHandler) renderUser(c *gin.Context, id uuid.UUID) {
	user, err := h.facade.Profile(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}
