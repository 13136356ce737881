// Package handler is the thin HTTP layer over the contact service. It
// delegates to the service without embedding resolution logic so transport
// concerns remain isolated.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"contactlink/internal/contact/models"
	"contactlink/internal/platform/metrics"
	"contactlink/internal/platform/middleware"
	dErrors "contactlink/pkg/domain-errors"
	"contactlink/pkg/platform/httputil"
	"contactlink/pkg/requestcontext"
)

// Service defines the interface for contact resolution operations.
type Service interface {
	Identify(ctx context.Context, req models.IdentifyRequest) (*models.IdentifyResponse, error)
	Ping(ctx context.Context) error
}

// Handler handles the identify and liveness endpoints.
type Handler struct {
	logger  *slog.Logger
	contact Service
	metrics *metrics.Metrics
}

// New creates a contact Handler.
func New(contact Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		contact: contact,
		metrics: metrics,
	}
}

// Register registers the contact routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	contactRouter := chi.NewRouter()
	contactRouter.Use(middleware.Recovery(h.logger))
	contactRouter.Use(middleware.RequestID)
	contactRouter.Use(middleware.Logger(h.logger))
	contactRouter.Use(middleware.Timeout(30 * time.Second))
	contactRouter.Use(middleware.ContentTypeJSON)
	contactRouter.Use(middleware.Latency(h.metrics))
	contactRouter.Post("/identify", h.handleIdentify)
	contactRouter.Get("/healthz", h.handleHealthz)

	r.Mount("/", contactRouter)
}

func (h *Handler) handleIdentify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req models.IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid identify request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	res, err := h.contact.Identify(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			h.logger.WarnContext(ctx, "identify request rejected",
				"request_id", requestID,
				"error", err.Error(),
			)
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "identify failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := h.contact.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "store liveness probe failed", "error", err.Error())
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
