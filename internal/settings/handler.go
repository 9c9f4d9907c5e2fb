// AngelaMos | 2026
// handler.go

package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/settings", h.List)
	r.Put("/settings/{key}", h.Update)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]SettingResponse, 0, len(rows))
	for i := range rows {
		out = append(out, ToSettingResponse(&rows[i]))
	}

	core.OK(w, out)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	adminID := middleware.GetUserID(r.Context())

	updated, err := h.service.Update(r.Context(), key, req.Value, adminID)
	if err != nil {
		switch {
		case core.IsAppError(err):
			core.JSONError(w, err)
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "setting")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, UpdateSettingResponse{
		Message: "setting updated",
		Setting: ToSettingResponse(updated),
	})
}
