// AngelaMos | 2026
// service.go

package student

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/studentshelf/internal/blob"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/metrics"
	"github.com/carterperez-dev/studentshelf/internal/notify"
	"github.com/carterperez-dev/studentshelf/internal/user"
)

// AccountDirectory answers whether an email already has a regular account.
type AccountDirectory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// TxRunner runs fn with student and user repositories bound to one
// transaction.
type TxRunner func(ctx context.Context, fn func(students Repository, users user.Repository) error) error

func SQLTxRunner(db *sqlx.DB) TxRunner {
	return func(ctx context.Context, fn func(Repository, user.Repository) error) error {
		return core.InTx(ctx, db, func(tx *sqlx.Tx) error {
			return fn(NewRepository(tx), user.NewRepository(tx))
		})
	}
}

type Service struct {
	repo      Repository
	tx        TxRunner
	accounts  AccountDirectory
	blobs     blob.Store
	folder    string
	validator DocumentValidator
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	validity  time.Duration
	extension time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

type ServiceConfig struct {
	Repo            Repository
	Tx              TxRunner
	Accounts        AccountDirectory
	Blobs           blob.Store
	Folder          string
	Validator       DocumentValidator
	Notifier        notify.Notifier
	Metrics         *metrics.Metrics
	ValidityPeriod  time.Duration
	ExtensionPeriod time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      cfg.Repo,
		tx:        cfg.Tx,
		accounts:  cfg.Accounts,
		blobs:     cfg.Blobs,
		folder:    cfg.Folder,
		validator: cfg.Validator,
		notifier:  cfg.Notifier,
		metrics:   cfg.Metrics,
		validity:  cfg.ValidityPeriod,
		extension: cfg.ExtensionPeriod,
		logger:    logger,
		now:       now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Registration struct {
	Email         string
	Name          string
	Password      string
	University    string
	StudentNumber string
	DocumentSize  int64
	Document      io.Reader
}

func (s *Service) Submit(ctx context.Context, reg Registration) (*Student, error) {
	email := normalizeEmail(reg.Email)

	head := make([]byte, SniffLen)
	n, err := io.ReadFull(reg.Document, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read document: %w", err)
	}
	head = head[:n]

	docType, err := s.validator.Validate(ctx, head, reg.DocumentSize)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !taken && s.accounts != nil {
		taken, err = s.accounts.EmailExists(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("check account email: %w", err)
		}
	}
	if taken {
		return nil, core.DuplicateError("email")
	}

	hash, err := core.HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id := uuid.New().String()

	ref, err := s.blobs.Put(ctx, s.folder, id, io.MultiReader(bytes.NewReader(head), reg.Document))
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	st := &Student{
		ID:                     id,
		Email:                  email,
		Name:                   strings.TrimSpace(reg.Name),
		PasswordHash:           hash,
		University:             strings.TrimSpace(reg.University),
		StudentNumber:          strings.TrimSpace(reg.StudentNumber),
		DocumentRef:            ref,
		DocumentType:           docType,
		VerificationStatus:     StatusPending,
		ConversionScheduledFor: s.now().Add(s.validity).UTC(),
	}

	if err := s.repo.Create(ctx, st); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, core.DuplicateError("email")
		}
		return nil, err
	}

	s.metrics.Transition("registered")
	s.send(ctx, st, notify.StudentRegistered, "We received your student verification", nil)

	return st, nil
}

func (s *Service) Review(
	ctx context.Context,
	id string,
	decision Status,
	adminID, notes string,
) (*Student, error) {
	ctx, span := core.StartSpan(ctx, "student", "student.Review",
		attribute.String("student.id", id),
		attribute.String("decision", string(decision)),
	)
	var err error
	defer func() { core.EndSpan(span, err) }()

	if !StatusPending.CanTransitionTo(decision) {
		err = core.ValidationError("decision must be approved or rejected")
		return nil, err
	}

	notes = strings.TrimSpace(notes)

	var st *Student
	st, err = s.apply(ctx, "review student", id, StatusPending, func(ctx context.Context) (bool, error) {
		return s.repo.Review(ctx, id, decision, adminID, notes)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(decision))

	if decision == StatusApproved {
		s.send(ctx, st, notify.StudentApproved, "Your student status is verified", nil)
	} else {
		data := map[string]string{}
		if notes != "" {
			data["notes"] = notes
		}
		s.send(ctx, st, notify.StudentRejected, "Your student verification was not approved", data)
	}

	return st, nil
}

// Extend pushes the scheduled conversion back by one extension period.
func (s *Service) Extend(ctx context.Context, id, adminID string) (*Student, error) {
	st, err := s.apply(ctx, "extend student", id, StatusApproved, func(ctx context.Context) (bool, error) {
		return s.repo.Extend(ctx, id, s.extension)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("student verification extended",
		"student_id", id,
		"admin_id", adminID,
		"scheduled_for", st.ConversionScheduledFor,
	)
	s.metrics.Transition("extended")
	s.send(ctx, st, notify.StudentExtended, "Your student pricing was extended", map[string]string{
		"conversion_scheduled_for": st.ConversionScheduledFor.Format(time.RFC3339),
	})

	return st, nil
}

// MarkGraduated flags the record for the next conversion sweep. It does not
// convert on its own.
func (s *Service) MarkGraduated(ctx context.Context, id string) (*Student, error) {
	st, err := s.apply(ctx, "graduate student", id, StatusApproved, func(ctx context.Context) (bool, error) {
		return s.repo.MarkGraduated(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("graduated")
	s.send(ctx, st, notify.StudentGraduated, "Congratulations on graduating", nil)

	return st, nil
}

// apply runs a conditional update that is only valid while the record is
// unconverted and in from. A lost race is reported against the fresh state.
func (s *Service) apply(
	ctx context.Context,
	op, id string,
	from Status,
	update func(context.Context) (bool, error),
) (*Student, error) {
	st, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := guard(op, st, from); err != nil {
		return nil, err
	}

	changed, err := update(ctx)
	if err != nil {
		return nil, err
	}

	fresh, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !changed {
		if err := guard(op, fresh, from); err != nil {
			return nil, err
		}
		return nil, core.TransitionError(op, string(fresh.VerificationStatus), string(from))
	}

	return fresh, nil
}

func guard(op string, st *Student, from Status) error {
	if st.IsConverted {
		return core.TransitionError(op, "converted", string(from))
	}
	if st.VerificationStatus != from {
		return core.TransitionError(op, string(st.VerificationStatus), string(from))
	}
	return nil
}

// Convert turns a verified student into a regular account. The claim on the
// record, the new account and the back-link commit together or not at all.
func (s *Service) Convert(ctx context.Context, id string) (*Student, error) {
	ctx, span := core.StartSpan(ctx, "student", "student.Convert",
		attribute.String("student.id", id),
	)
	var err error
	defer func() { core.EndSpan(span, err) }()

	var st *Student
	st, err = s.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err = convertGuard(st); err != nil {
		return nil, err
	}

	err = s.tx(ctx, func(students Repository, users user.Repository) error {
		claimed, err := students.MarkConverted(ctx, id)
		if err != nil {
			return err
		}
		if !claimed {
			fresh, err := students.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := convertGuard(fresh); err != nil {
				return err
			}
			return core.TransitionError("convert student", string(fresh.VerificationStatus), "approved or graduated")
		}

		account := &user.User{
			ID:                     uuid.New().String(),
			Email:                  st.Email,
			PasswordHash:           st.PasswordHash,
			Name:                   st.Name,
			Role:                   user.RoleUser,
			ConvertedFromStudentID: &st.ID,
		}
		if err := users.Create(ctx, account); err != nil {
			return fmt.Errorf("convert student %s: %w", id, err)
		}

		return students.LinkConvertedUser(ctx, id, account.ID)
	})
	if err != nil {
		return nil, err
	}

	st, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.Transition("converted")
	s.logger.Info("student converted",
		"student_id", st.ID,
		"user_id", deref(st.ConvertedUserID),
	)
	s.send(ctx, st, notify.StudentConverted, "Your account is now a regular account", nil)

	return st, nil
}

func convertGuard(st *Student) error {
	if st.IsConverted {
		return core.TransitionError("convert student", "converted", "approved or graduated")
	}
	if !st.Convertible() {
		return core.TransitionError("convert student", string(st.VerificationStatus), "approved or graduated")
	}
	return nil
}

// IsPrivileged reports whether email belongs to an approved, unconverted
// student. Unknown emails are simply not privileged.
func (s *Service) IsPrivileged(ctx context.Context, email string) (bool, error) {
	st, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return st.IsPrivileged(), nil
}

func (s *Service) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return NewEmailIndex(s.repo).EmailRegistered(ctx, email)
}

// EmailIndex answers registration email lookups straight from the
// repository. Account sign-up uses it before the student service exists.
type EmailIndex struct {
	repo Repository
}

func NewEmailIndex(repo Repository) EmailIndex {
	return EmailIndex{repo: repo}
}

func (e EmailIndex) EmailRegistered(ctx context.Context, email string) (bool, error) {
	return e.repo.ExistsByEmail(ctx, normalizeEmail(email))
}

func (s *Service) DueForConversion(ctx context.Context, now time.Time) ([]string, error) {
	return s.repo.DueForConversion(ctx, now)
}

// MaxDocumentBytes is the largest proof-of-enrolment upload accepted.
func (s *Service) MaxDocumentBytes(ctx context.Context) (int64, error) {
	return s.validator.MaxBytes(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*Student, error) {
	return s.byID(ctx, id)
}

func (s *Service) byID(ctx context.Context, id string) (*Student, error) {
	if !core.ValidID(id) {
		return nil, fmt.Errorf("get student: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Student, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) CountByStatus(ctx context.Context) (*StatusCounts, error) {
	return s.repo.CountByStatus(ctx)
}

func (s *Service) send(
	ctx context.Context,
	st *Student,
	event notify.EventType,
	subject string,
	data map[string]string,
) {
	if data == nil {
		data = map[string]string{}
	}
	data["student_id"] = st.ID
	data["status"] = string(st.VerificationStatus)

	notify.Send(ctx, s.notifier, s.logger, notify.Event{
		Type:      event,
		Recipient: st.Email,
		Subject:   subject,
		Data:      data,
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
