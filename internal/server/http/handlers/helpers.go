package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	domainErrors "github.com/polkiloo/facecheck/internal/domain/errors"
	"github.com/polkiloo/facecheck/internal/domain/model"
	"github.com/polkiloo/facecheck/internal/server/http/dto"
	"github.com/polkiloo/facecheck/internal/server/http/middleware"
)

// errMissingFile is returned by readUpload when the form part is absent.
var errMissingFile = errors.New("file is required")

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) uuid.UUID {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return uuid.Nil
	}
	id, _ := val.(uuid.UUID)
	return id
}

// statusFor maps domain failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, domainErrors.ErrDuplicateLogin),
		errors.Is(err, domainErrors.ErrNoDocumentOnFile),
		errors.Is(err, domainErrors.ErrFaceNotDetected),
		errors.Is(err, domainErrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status derived from its kind.
// Internal details of unexpected failures are not exposed.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	abortWithError(c, status, err)
}

func abortWithError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	msg := err.Error()
	kind := domainErrors.Kind(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg, Code: kind})
}

// bindError converts binding failures into InvalidInput responses, naming fields as they appear in the payload.
func bindError(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		abortWithError(c, http.StatusRequestEntityTooLarge,
			domainErrors.Wrap(domainErrors.ErrInvalidInput, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)))
		return
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		err = errors.New(strings.Join(problems, "; "))
	}
	abortWithError(c, http.StatusBadRequest, domainErrors.Wrap(domainErrors.ErrInvalidInput, err))
}

// pathUserID parses the :id route parameter.
func pathUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest,
			domainErrors.Wrap(domainErrors.ErrInvalidInput, fmt.Errorf("malformed user id %q", c.Param("id"))))
		return uuid.Nil, false
	}
	return id, true
}

// readUpload loads a multipart file part into memory.
func readUpload(c *gin.Context, field string) (*model.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("%s: %w", field, errMissingFile)
		}
		return nil, err
	}
	return readFileHeader(header)
}

func readFileHeader(header *multipart.FileHeader) (*model.Upload, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &model.Upload{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}
