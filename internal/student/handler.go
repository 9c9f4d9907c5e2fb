// AngelaMos | 2026
// handler.go

package student

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
)

// SweepRunner runs one conversion sweep and reports how many records it
// converted.
type SweepRunner interface {
	SweepNow(ctx context.Context) (int, error)
}

type Handler struct {
	service   *Service
	sweeper   SweepRunner
	validator *validator.Validate
	maxMemory int64
}

func NewHandler(service *Service, sweeper SweepRunner, maxMemory int64) *Handler {
	return &Handler{
		service:   service,
		sweeper:   sweeper,
		validator: validator.New(validator.WithRequiredStructEnabled()),
		maxMemory: maxMemory,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.With(guards...).Post("/register/student", h.Register)
}

// RegisterAdminRoutes expects to be mounted under an admin-only group.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/students", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/run-conversion", h.RunConversion)
		r.Get("/{studentID}", h.Get)
		r.Put("/{studentID}/verify", h.Verify)
		r.Post("/{studentID}/extend", h.Extend)
		r.Post("/{studentID}/graduate", h.Graduate)
		r.Post("/{studentID}/convert", h.Convert)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	maxFile, err := h.service.MaxDocumentBytes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := core.ParseUpload(w, r, maxFile, h.maxMemory); err != nil {
		core.JSONError(w, err)
		return
	}

	req := RegisterRequest{
		Email:         r.FormValue("email"),
		Name:          r.FormValue("name"),
		Password:      r.FormValue("password"),
		University:    r.FormValue("university"),
		StudentNumber: r.FormValue("student_number"),
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		core.BadRequest(w, "document is required")
		return
	}
	defer file.Close()

	st, err := h.service.Submit(r.Context(), Registration{
		Email:         req.Email,
		Name:          req.Name,
		Password:      req.Password,
		University:    req.University,
		StudentNumber: req.StudentNumber,
		DocumentSize:  header.Size,
		Document:      file,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, RegisterResponse{StudentID: st.ID, Status: st.VerificationStatus})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))           //nolint:errcheck // zero falls back to default
	pageSize, _ := strconv.Atoi(q.Get("page_size")) //nolint:errcheck // zero falls back to default

	params := ListParams{Page: page, PageSize: pageSize}
	if status := Status(q.Get("status")); status != "" {
		if !status.Valid() {
			core.BadRequest(w, "unknown verification status")
			return
		}
		params.Status = status
	}
	if raw := q.Get("converted"); raw != "" {
		converted, err := strconv.ParseBool(raw)
		if err != nil {
			core.BadRequest(w, "converted must be true or false")
			return
		}
		params.Converted = &converted
	}
	params.Normalize()

	students, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]StudentResponse, 0, len(students))
	for i := range students {
		out = append(out, ToStudentResponse(&students[i]))
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToStudentResponse(st))
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	st, err := h.service.Review(
		r.Context(),
		chi.URLParam(r, "studentID"),
		Status(req.Status),
		middleware.GetUserID(r.Context()),
		req.AdminNotes,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ActionResponse{
		Message: "student verification " + string(st.VerificationStatus),
		Student: ToStudentResponse(st),
	})
}

func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Extend(
		r.Context(),
		chi.URLParam(r, "studentID"),
		middleware.GetUserID(r.Context()),
	)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ActionResponse{
		Message: "student verification extended",
		Student: ToStudentResponse(st),
	})
}

func (h *Handler) Graduate(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.MarkGraduated(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ActionResponse{
		Message: "student marked as graduated",
		Student: ToStudentResponse(st),
	})
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Convert(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ActionResponse{
		Message: "student converted to regular account",
		Student: ToStudentResponse(st),
	})
}

func (h *Handler) RunConversion(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		core.JSONError(w, core.ConfigurationError())
		return
	}

	converted, err := h.sweeper.SweepNow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, SweepResponse{ConvertedCount: converted})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "student")
	case errors.Is(err, core.ErrDuplicateKey):
		core.JSONError(w, core.DuplicateError("email"))
	case errors.Is(err, core.ErrInvalidTransition):
		core.JSONError(w, core.InvalidTransitionError(core.TransitionMessage(err)))
	case errors.Is(err, core.ErrConfiguration):
		slog.Error("configuration error", "error", err)
		core.JSONError(w, core.ConfigurationError())
	default:
		core.InternalServerError(w, err)
	}
}
