// AngelaMos | 2026
// service.go

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/studentshelf/internal/blob"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/notify"
)

var ebookMIMEs = []string{"application/pdf", "application/epub+zip"}

// AuthorDirectory resolves where to send an author's notifications.
type AuthorDirectory interface {
	EmailOf(ctx context.Context, userID string) (string, error)
}

type Service struct {
	repo     Repository
	blobs    blob.Store
	folder   string
	notifier notify.Notifier
	authors  AuthorDirectory
	logger   *slog.Logger
}

type ServiceConfig struct {
	Repo     Repository
	Blobs    blob.Store
	Folder   string
	Notifier notify.Notifier
	Authors  AuthorDirectory
	Logger   *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     cfg.Repo,
		blobs:    cfg.Blobs,
		folder:   cfg.Folder,
		notifier: cfg.Notifier,
		authors:  cfg.Authors,
		logger:   logger,
	}
}

type Draft struct {
	AuthorID    string
	Title       string
	Description string
	BasePrice   decimal.Decimal
	Currency    string
	Filename    string
	File        io.Reader
}

func (s *Service) CreateDraft(ctx context.Context, d Draft) (*Ebook, error) {
	if !d.BasePrice.IsPositive() {
		return nil, core.ValidationError("base price must be greater than zero")
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(d.File, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read ebook file: %w", err)
	}
	head = head[:n]

	if !mimetype.EqualsAny(mimetype.Detect(head).String(), ebookMIMEs...) {
		return nil, core.ValidationError("ebook file must be a PDF or EPUB")
	}

	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	id := uuid.New().String()

	ref, err := s.blobs.Put(ctx, s.folder, id, io.MultiReader(bytes.NewReader(head), d.File))
	if err != nil {
		return nil, fmt.Errorf("store ebook file: %w", err)
	}

	ebook := &Ebook{
		ID:          id,
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		AuthorID:    d.AuthorID,
		BasePrice:   d.BasePrice.Round(2),
		Currency:    currency,
		Status:      StatusDraft,
		FileRef:     ref,
	}

	if err := s.repo.Create(ctx, ebook); err != nil {
		return nil, err
	}

	return ebook, nil
}

func (s *Service) Submit(ctx context.Context, id, authorID string) (*Ebook, error) {
	ebook, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	if ebook.AuthorID != authorID {
		return nil, fmt.Errorf("submit ebook: %w", core.ErrForbidden)
	}

	return s.transition(ctx, "submit ebook", ebook, StatusSubmitted, nil)
}

func (s *Service) Review(
	ctx context.Context,
	id, adminID string,
	decision Status,
	notes string,
) (*Ebook, error) {
	ctx, span := core.StartSpan(ctx, "catalog", "catalog.Review",
		attribute.String("ebook.id", id),
		attribute.String("decision", string(decision)),
	)
	var err error
	defer func() { core.EndSpan(span, err) }()

	if decision != StatusPublished && decision != StatusRejected {
		err = core.ValidationError("decision must be published or rejected")
		return nil, err
	}

	var ebook *Ebook
	ebook, err = s.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	ebook, err = s.transition(ctx, "review ebook", ebook, decision, &Review{
		AdminID: adminID,
		Notes:   strings.TrimSpace(notes),
	})
	if err != nil {
		return nil, err
	}

	event := notify.EbookPublished
	subject := fmt.Sprintf("%q is now on sale", ebook.Title)
	if decision == StatusRejected {
		event = notify.EbookRejected
		subject = fmt.Sprintf("%q was not accepted", ebook.Title)
	}
	s.notifyAuthor(ctx, ebook, event, subject, notes)

	return ebook, nil
}

func (s *Service) transition(
	ctx context.Context,
	op string,
	ebook *Ebook,
	to Status,
	review *Review,
) (*Ebook, error) {
	if !ebook.Status.CanTransitionTo(to) {
		return nil, core.TransitionError(op, string(ebook.Status), requiredSource(to))
	}

	changed, err := s.repo.Transition(ctx, ebook.ID, ebook.Status, to, review)
	if err != nil {
		return nil, err
	}

	fresh, err := s.repo.GetByID(ctx, ebook.ID)
	if err != nil {
		return nil, err
	}

	if !changed {
		return nil, core.TransitionError(op, string(fresh.Status), requiredSource(to))
	}

	return fresh, nil
}

func requiredSource(to Status) string {
	for from, targets := range transitions {
		for _, t := range targets {
			if t == to {
				return string(from)
			}
		}
	}
	return "none"
}

// Get returns any ebook regardless of status.
func (s *Service) Get(ctx context.Context, id string) (*Ebook, error) {
	return s.byID(ctx, id)
}

func (s *Service) byID(ctx context.Context, id string) (*Ebook, error) {
	if !core.ValidID(id) {
		return nil, fmt.Errorf("get ebook: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

// GetPublished hides unpublished ebooks behind a plain not-found.
func (s *Service) GetPublished(ctx context.Context, id string) (*Ebook, error) {
	ebook, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ebook.IsPublished() {
		return nil, fmt.Errorf("get ebook: %w", core.ErrNotFound)
	}
	return ebook, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Ebook, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) notifyAuthor(
	ctx context.Context,
	ebook *Ebook,
	event notify.EventType,
	subject, notes string,
) {
	if s.authors == nil {
		return
	}

	email, err := s.authors.EmailOf(ctx, ebook.AuthorID)
	if err != nil {
		s.logger.Warn("author lookup failed, skipping notification",
			"ebook_id", ebook.ID,
			"error", err,
		)
		return
	}

	data := map[string]string{"ebook_id": ebook.ID, "title": ebook.Title}
	if notes != "" {
		data["notes"] = notes
	}

	notify.Send(ctx, s.notifier, s.logger, notify.Event{
		Type:      event,
		Recipient: email,
		Subject:   subject,
		Data:      data,
	})
}
