// AngelaMos | 2026
// handler.go

package geo

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/location", h.Location)
}

func (h *Handler) Location(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.service.Locate(r.Context(), middleware.ClientIP(r)))
}
