package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/server/http/dto"
)

// VerificationHandler manages identity verification endpoints.
type VerificationHandler struct {
	facade VerificationFacade
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(facade VerificationFacade) *VerificationHandler {
	return &VerificationHandler{facade: facade}
}

// Verify handles POST /users/:id/verification. A mismatch is reported with status 200.
func (h *VerificationHandler) Verify(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}

	// a missing selfie is rejected by the use case after the user and document checks
	selfie, err := readUpload(c, "selfie")
	switch {
	case errors.Is(err, errMissingFile):
		selfie = &model.Upload{}
	case err != nil:
		bindError(c, err)
		return
	}

	result, err := h.facade.VerifyIdentity(c.Request.Context(), id, *selfie)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewVerificationResponse(result))
}

// Reset handles PUT /users/:id/verification/reset.
func (h *VerificationHandler) Reset(c *gin.Context) {
	id, ok := pathUserID(c)
	if !ok {
		return
	}
	if err := h.facade.RequestRevalidation(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{OK: true})
}
