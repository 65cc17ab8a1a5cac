package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "linka/internal/errors"
	mw "linka/internal/middleware"
	api "linka/pkg/contracts/api/v1"
)

// DashboardHandler handles dashboard HTTP requests
type DashboardHandler struct {
	service      DashboardServiceInterface
	validation   *mw.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validation:   mw.NewValidationMiddleware(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.validation.ContentType("application/json"), h.validation.ValidateRequest).Post("/", h.Save)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)

	return r
}

// Save handles POST /api/dashboards
func (h *DashboardHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req api.SaveDashboardRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	d, err := h.service.Save(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	render.Status(r, status)
	render.JSON(w, r, api.DashboardSavedResponse{
		DashboardID: d.ID,
		Name:        d.Name,
		Message:     "Dashboard saved successfully",
	})
}

// List handles GET /api/dashboards
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, api.DashboardListResponse{Dashboards: list, Count: len(list)})
}

// Get handles GET /api/dashboards/{id}
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

// Delete handles DELETE /api/dashboards/{id}
func (h *DashboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
