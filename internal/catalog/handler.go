// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
	maxMemory int64
	maxFile   int64
}

func NewHandler(service *Service, maxMemory, maxFile int64) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		maxMemory: maxMemory,
		maxFile:   maxFile,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ebooks", h.ListPublished)
	r.Get("/ebooks/{ebookID}", h.GetPublished)
}

func (h *Handler) RegisterAuthorRoutes(r chi.Router) {
	r.Get("/author/ebooks", h.ListMine)
	r.Post("/author/ebooks", h.Create)
	r.Post("/author/ebooks/{ebookID}/submit", h.Submit)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/ebooks", h.ListForAdmin)
	r.Put("/ebooks/{ebookID}/review", h.Review)
}

func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r)
	params.Status = StatusPublished

	ebooks, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]PublicEbook, 0, len(ebooks))
	for i := range ebooks {
		out = append(out, ToPublicEbook(&ebooks[i]))
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) GetPublished(w http.ResponseWriter, r *http.Request) {
	ebook, err := h.service.GetPublished(r.Context(), chi.URLParam(r, "ebookID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPublicEbook(ebook))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r)
	params.AuthorID = middleware.GetUserID(r.Context())

	h.writeList(w, r, params)
}

func (h *Handler) ListForAdmin(w http.ResponseWriter, r *http.Request) {
	params := pageParams(r)
	if status := Status(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			core.BadRequest(w, "unknown ebook status")
			return
		}
		params.Status = status
	}

	h.writeList(w, r, params)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, params ListParams) {
	ebooks, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]EbookResponse, 0, len(ebooks))
	for i := range ebooks {
		out = append(out, ToEbookResponse(&ebooks[i]))
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := core.ParseUpload(w, r, h.maxFile, h.maxMemory); err != nil {
		core.JSONError(w, err)
		return
	}

	req := CreateEbookRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		BasePrice:   r.FormValue("base_price"),
		Currency:    r.FormValue("currency"),
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	price, err := decimal.NewFromString(req.BasePrice)
	if err != nil {
		core.BadRequest(w, "base_price must be a decimal number")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	ebook, err := h.service.CreateDraft(r.Context(), Draft{
		AuthorID:    middleware.GetUserID(r.Context()),
		Title:       req.Title,
		Description: req.Description,
		BasePrice:   price,
		Currency:    req.Currency,
		Filename:    header.Filename,
		File:        file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, ToEbookResponse(ebook))
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ebook, err := h.service.Submit(
		r.Context(),
		chi.URLParam(r, "ebookID"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToEbookResponse(ebook))
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	ebook, err := h.service.Review(
		r.Context(),
		chi.URLParam(r, "ebookID"),
		middleware.GetUserID(r.Context()),
		Status(req.Status),
		req.Notes,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToEbookResponse(ebook))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "ebook")
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "not the author of this ebook")
	case errors.Is(err, core.ErrInvalidTransition):
		core.JSONError(w, core.InvalidTransitionError(core.TransitionMessage(err)))
	default:
		core.InternalServerError(w, err)
	}
}

func pageParams(r *http.Request) ListParams {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))           //nolint:errcheck // zero falls back to default
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size")) //nolint:errcheck // zero falls back to default

	params := ListParams{Page: page, PageSize: pageSize}
	params.Normalize()
	return params
}
