// Package embedding talks to the remote face embedding service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/polkiloo/facecheck/internal/pkg/face"
)

// ErrUnreadableImage indicates the service could not decode the submitted image.
var ErrUnreadableImage = errors.New("image could not be decoded")

// TooManyRequestsError represents rate limiting signal from the embedding service.
type TooManyRequestsError struct {
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

// HTTPClient implements face.Provider over the embedding service HTTP API.
type HTTPClient struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

type detectedFace struct {
	Descriptor []float64 `json:"descriptor"`
	Score      float64   `json:"score"`
}

// response mirrors JSON payload from the embedding service.
type response struct {
	Faces []detectedFace `json:"faces"`
}

// NewHTTPClient creates embedding client with default timeout.
func NewHTTPClient(baseURL string, logger *slog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse embedding url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("embedding url must be absolute")
	}
	return &HTTPClient{
		baseURL: parsed,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Embed uploads image and returns the descriptor of the most confident face.
func (c *HTTPClient) Embed(ctx context.Context, image []byte) (face.Embedding, error) {
	if len(image) == 0 {
		return nil, ErrUnreadableImage
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/api/embeddings")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", http.DetectContentType(image))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var data response
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		return pickFace(data.Faces)
	case http.StatusNoContent:
		return nil, face.ErrNoFace
	case http.StatusUnprocessableEntity, http.StatusUnsupportedMediaType:
		return nil, ErrUnreadableImage
	case http.StatusTooManyRequests:
		return nil, TooManyRequestsError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("embedding request failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return nil, fmt.Errorf("embedding service error: %s", resp.Status)
	}
}

func pickFace(faces []detectedFace) (face.Embedding, error) {
	if len(faces) == 0 {
		return nil, face.ErrNoFace
	}
	best := faces[0]
	for _, f := range faces[1:] {
		if f.Score > best.Score {
			best = f
		}
	}
	if len(best.Descriptor) == 0 {
		return nil, fmt.Errorf("embedding service returned an empty descriptor")
	}
	return face.Embedding(best.Descriptor), nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
