// AngelaMos | 2026
// handler.go

package purchase

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
	"github.com/carterperez-dev/studentshelf/internal/payment"
)

const maxNotificationBytes = 64 << 10

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

// RegisterRoutes mounts the buyer routes. guards wrap the routes that take
// an email and a credential.
func (h *Handler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.With(guards...).Post("/ebooks/{ebookID}/purchase", h.Create)
	r.With(guards...).Get("/ebooks/{ebookID}/download", h.Download)
	r.Post("/payments/midtrans/notification", h.Notification)
}

func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/purchases", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{purchaseID}", h.Get)
		r.Post("/{purchaseID}/confirm", h.Confirm)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	created, err := h.service.Create(r.Context(), chi.URLParam(r, "ebookID"), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, CreatePurchaseResponse{
		PurchaseID: created.Purchase.ID,
		OrderID:    created.Purchase.OrderID,
		Pricing:    created.Quote,
		Payment: PaymentInfo{
			Status:      created.Purchase.Status,
			Token:       created.Checkout.Token,
			RedirectURL: created.Checkout.RedirectURL,
		},
		DownloadInfo: created.Download,
	})
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	delivery, err := h.service.Download(
		r.Context(),
		chi.URLParam(r, "ebookID"),
		q.Get("email"),
		q.Get("secret"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	defer delivery.Body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": delivery.Filename,
	}))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, delivery.Body); err != nil {
		slog.Warn("ebook stream interrupted",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
	}
}

func (h *Handler) Notification(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := json.NewDecoder(io.LimitReader(r.Body, maxNotificationBytes)).Decode(&n); err != nil {
		core.BadRequest(w, "invalid notification body")
		return
	}

	outcome, err := h.service.HandleNotification(r.Context(), n)
	if errors.Is(err, payment.ErrInvalidSignature) {
		core.Unauthorized(w, "invalid notification signature")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, NotificationResponse{Status: string(outcome)})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))           //nolint:errcheck // zero falls back to default
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size")) //nolint:errcheck // zero falls back to default

	params := ListParams{
		EbookID:  r.URL.Query().Get("ebook_id"),
		Page:     page,
		PageSize: pageSize,
	}
	if status := Status(r.URL.Query().Get("status")); status != "" {
		if !status.Valid() {
			core.BadRequest(w, "unknown purchase status")
			return
		}
		params.Status = status
	}
	params.Normalize()

	purchases, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	out := make([]PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		out = append(out, ToPurchaseResponse(&purchases[i]))
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "purchaseID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPurchaseResponse(p))
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			core.BadRequest(w, "invalid request body")
			return
		}
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	txn := req.TransactionID
	if txn == "" {
		txn = "manual:" + middleware.GetUserID(r.Context())
	}

	p, err := h.service.Confirm(r.Context(), chi.URLParam(r, "purchaseID"), txn)
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, ToPurchaseResponse(p))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsAppError(err):
		core.JSONError(w, err)
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "purchase")
	case errors.Is(err, core.ErrInvalidTransition):
		core.JSONError(w, core.InvalidTransitionError(core.TransitionMessage(err)))
	case errors.Is(err, core.ErrConfiguration):
		slog.Error("configuration error", "error", err)
		core.JSONError(w, core.ConfigurationError())
	case errors.Is(err, core.ErrValidation):
		core.JSONError(w, core.ValidationError(err.Error()))
	default:
		core.InternalServerError(w, err)
	}
}
