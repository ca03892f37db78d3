// Package api exposes the program lookup over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/garyellow/program-lookup/internal/ctxutil"
	domerrors "github.com/garyellow/program-lookup/internal/errors"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/metrics"
	"github.com/garyellow/program-lookup/internal/program"
	"github.com/garyellow/program-lookup/internal/sentry"
	"github.com/gin-gonic/gin"
)

// Route templates, also used as metric labels.
const (
	RouteProgram     = "/api/programs/:id"
	RoutePrograms    = "/api/programs"
	defaultErrorText = "An error occurred."
)

// Client-facing messages
const (
	MsgIDRequired = "Program ID is required."
	MsgNotFound   = "Program not found."
	MsgLoadFailed = "Could not load program data."
	MsgNoRoute    = "Not found."
)

// ProgramFinder resolves identifiers. Implemented by *program.Service.
type ProgramFinder interface {
	FindProgram(ctx context.Context, identifier string) (*program.NormalizedProgram, error)
}

// Handler serves the program lookup endpoints.
type Handler struct {
	finder  ProgramFinder
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewHandler creates a Handler. metrics may be nil.
func NewHandler(finder ProgramFinder, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		finder:  finder,
		logger:  log.WithModule("api"),
		metrics: m,
	}
}

// ErrorResponse is the JSON body of every non-2xx lookup response.
type ErrorResponse struct {
	Message string `json:"message"`
}

// Register mounts the lookup routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET(RouteProgram, h.GetProgram)
	r.HEAD(RouteProgram, h.GetProgram)
	r.GET(RoutePrograms, h.missingID)
}

// GetProgram handles GET /api/programs/:id.
func (h *Handler) GetProgram(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	id := c.Param("id")
	ctx := ctxutil.WithIdentifier(c.Request.Context(), id)

	p, err := h.finder.FindProgram(ctx, id)
	if err != nil {
		h.writeError(c, ctx, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// NoRoute answers unmatched paths with the same {message} body as lookups.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{Message: MsgNoRoute})
}

func (h *Handler) missingID(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	h.writeError(c, c.Request.Context(), domerrors.NewValidationError("id", MsgIDRequired))
}

func (h *Handler) writeError(c *gin.Context, ctx context.Context, err error) {
	status, message, errType := classify(err)
	route := c.FullPath()

	if h.metrics != nil {
		h.metrics.RecordHTTPError(errType, route)
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("route", route).ErrorContext(ctx, "Program lookup failed")
		sentry.CaptureRequestError(c, err)
	}

	c.JSON(status, ErrorResponse{Message: message})
}

// classify maps a lookup error to status code, client message and metric label.
func classify(err error) (int, string, string) {
	var vErr *domerrors.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Message, "invalid_input"
	case domerrors.IsNotFound(err):
		return http.StatusNotFound, MsgNotFound, "not_found"
	case domerrors.IsLoadError(err):
		return http.StatusInternalServerError, userMessage(err, MsgLoadFailed), "dataset_unavailable"
	default:
		return http.StatusInternalServerError, userMessage(err, defaultErrorText), "internal"
	}
}

// userMessage prefers the message attached by Wrapper.Wrap. A bare
// LoadError falls back so file paths are not echoed to clients.
func userMessage(err error, fallback string) string {
	if msg, ok := domerrors.UserMessage(err); ok {
		return msg
	}
	if domerrors.IsLoadError(err) {
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
