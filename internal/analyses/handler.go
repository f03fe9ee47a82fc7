package analyses

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobjeeves/internal/llm"
	"jobjeeves/internal/shared/server/respond"
)

const defaultMaxUploadBytes = 10 << 20

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.GET("/analyses/:id", h.getAnalysis)
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, fileErr := c.FormFile("file")
	var maxErr *http.MaxBytesError
	if errors.As(fileErr, &maxErr) {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("Upload exceeds %d bytes.", h.MaxUploadBytes), nil)
		return
	}
	jobDescription := c.PostForm("job_description")
	if strings.TrimSpace(jobDescription) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", MsgJobDescriptionReq, nil)
		return
	}
	if fileErr != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", MsgFileRequired, nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", MsgFileRequired, nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", MsgFileRequired, nil)
		return
	}

	resp, err := h.Svc.Analyze(c.Request.Context(), Submission{
		MediaType:      fileHeader.Header.Get("Content-Type"),
		Data:           data,
		JobDescription: jobDescription,
		FileName:       fileHeader.Filename,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Set("analysisId", resp.AnalysisID.String())
	respond.OK(c, resp)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", MsgInvalidAnalysisID, nil)
		return
	}
	c.Set("analysisId", id.String())

	analysis, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, analysis)
}

// writeError maps pipeline errors onto status codes and error bodies.
func writeError(c *gin.Context, err error) {
	var inErr *InputError
	var provErr *llm.ProviderError
	errors.As(err, &provErr)

	switch {
	case errors.As(err, &inErr):
		respond.Error(c, http.StatusBadRequest, "validation_error", inErr.Message, nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", MsgNotFound, nil)
	case errors.Is(err, llm.ErrConfiguration):
		respond.Error(c, http.StatusBadRequest, "configuration_error", err.Error(), nil)
	case errors.Is(err, llm.ErrProviderAuth):
		respond.Error(c, http.StatusUnauthorized, "llm_auth_failed", "LLM authentication failed: "+providerDetail(provErr, err), nil)
	case errors.Is(err, llm.ErrProviderRateLimit):
		respond.Error(c, http.StatusTooManyRequests, "llm_rate_limited", "LLM rate limit / quota exceeded: "+providerDetail(provErr, err), nil)
	case errors.Is(err, llm.ErrProviderTimeout):
		respond.Error(c, http.StatusGatewayTimeout, "llm_timeout", "LLM request timed out: "+providerDetail(provErr, err), nil)
	case errors.Is(err, llm.ErrProviderConnection):
		respond.Error(c, http.StatusBadGateway, "llm_connection_failed", "LLM connection failed: "+providerDetail(provErr, err), nil)
	case errors.Is(err, llm.ErrProviderUpstream):
		status := 0
		if provErr != nil {
			status = provErr.StatusCode
		}
		respond.Error(c, http.StatusBadGateway, "llm_upstream_error",
			fmt.Sprintf("LLM upstream error (%d): %s", status, providerDetail(provErr, err)), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "LLM analysis failed: "+err.Error(), nil)
	}
}

func providerDetail(provErr *llm.ProviderError, err error) string {
	if provErr == nil {
		return err.Error()
	}
	if provErr.Message != "" {
		return provErr.Message
	}
	if provErr.Err != nil {
		return provErr.Err.Error()
	}
	return provErr.Kind.Error()
}
