package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/longtext-summarizer/internal/domain/summarizer"
	"github.com/yanqian/longtext-summarizer/internal/infra/config"
	"github.com/yanqian/longtext-summarizer/internal/infra/source"
	apperrors "github.com/yanqian/longtext-summarizer/pkg/errors"
)

const apiKeyHeader = "X-API-Key"

// Handler wires the HTTP transport to the summarizer service.
type Handler struct {
	summarizerSvc  summarizer.Service
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, summarySvc summarizer.Service, logger *slog.Logger) *Handler {
	return &Handler{
		summarizerSvc:  summarySvc,
		maxUploadBytes: cfg.HTTP.MaxUploadBytes,
		logger:         logger.With("component", "http.handler"),
	}
}

type summarizeRequest struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Summarize handles the JSON summarization endpoint.
func (h *Handler) Summarize(c *gin.Context) {
	var body summarizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, errMessage(err), err))
		return
	}
	h.summarize(c, summarizer.Request{
		Text:       body.Text,
		Provider:   body.Provider,
		Model:      body.Model,
		Credential: credentialFrom(c),
	})
}

// SummarizeUpload summarizes a plain text file sent as multipart field "file".
func (h *Handler) SummarizeUpload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		// multipart framing needs a little headroom above the file itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+64<<10)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, codeUploadTooLarge, "uploaded file is too large", err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "multipart field \"file\" is required", err))
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, codeUploadTooLarge, "uploaded file is too large", nil))
		return
	}
	file, err := header.Open()
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, codeInvalidRequest, "uploaded file cannot be read", err))
		return
	}
	defer file.Close()

	text, err := source.ReadText(file, h.maxUploadBytes)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	h.summarize(c, summarizer.Request{
		Text:       text,
		Provider:   c.PostForm("provider"),
		Model:      c.PostForm("model"),
		Credential: credentialFrom(c),
	})
}

func (h *Handler) summarize(c *gin.Context, req summarizer.Request) {
	resp, err := h.summarizerSvc.Summarize(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, domainError(err))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// credentialFrom reads the caller's provider key. It is passed through, never stored.
func credentialFrom(c *gin.Context) summarizer.Credential {
	if key := strings.TrimSpace(c.GetHeader(apiKeyHeader)); key != "" {
		return summarizer.Credential(key)
	}
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return summarizer.Credential(strings.TrimSpace(auth[7:]))
	}
	return ""
}

func domainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	switch {
	case apperrors.IsCode(err, summarizer.CodeValidation):
		return NewHTTPError(http.StatusBadRequest, summarizer.CodeValidation, errMessage(err), err)
	case apperrors.IsCode(err, summarizer.CodeAuthentication):
		return NewHTTPError(http.StatusUnauthorized, summarizer.CodeAuthentication, errMessage(err), err)
	case apperrors.IsCode(err, summarizer.CodeInputTooLarge):
		return NewHTTPError(http.StatusUnprocessableEntity, summarizer.CodeInputTooLarge, errMessage(err), err)
	// a deadline reached mid-call surfaces wrapped as backend_unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return NewHTTPError(http.StatusGatewayTimeout, codeTimeout, "summarization timed out", err)
	case apperrors.IsCode(err, summarizer.CodeEmptyResponse):
		return NewHTTPError(http.StatusBadGateway, summarizer.CodeEmptyResponse, errMessage(err), err)
	case apperrors.IsCode(err, summarizer.CodeBackendRejected):
		return NewHTTPError(http.StatusBadGateway, summarizer.CodeBackendRejected, errMessage(err), err)
	case apperrors.IsCode(err, summarizer.CodeBackendUnavailable):
		return NewHTTPError(http.StatusServiceUnavailable, summarizer.CodeBackendUnavailable, errMessage(err), err)
	}
	if code == "" {
		code = codeInternal
	}
	return NewHTTPError(http.StatusInternalServerError, code, "something went wrong", err)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
