// AngelaMos | 2026
// service_test.go

package student_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/carterperez-dev/studentshelf/internal/blob"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/notify"
	notifymocks "github.com/carterperez-dev/studentshelf/internal/notify/mocks"
	"github.com/carterperez-dev/studentshelf/internal/settings"
	"github.com/carterperez-dev/studentshelf/internal/student"
	"github.com/carterperez-dev/studentshelf/internal/user"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type studentStore struct {
	mu   sync.Mutex
	rows map[string]student.Student
	now  func() time.Time
}

func (s *studentStore) Create(_ context.Context, st *student.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.Email == st.Email {
			return core.ErrDuplicateKey
		}
	}
	st.CreatedAt = s.now()
	st.UpdatedAt = st.CreatedAt
	s.rows[st.ID] = *st
	return nil
}

func (s *studentStore) GetByID(_ context.Context, id string) (*student.Student, error) {
	if uuid.Validate(id) != nil {
		return nil, &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rows[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &st, nil
}

func (s *studentStore) GetByEmail(_ context.Context, email string) (*student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.rows {
		if st.Email == email {
			return &st, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *studentStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s *studentStore) List(_ context.Context, params student.ListParams) ([]student.Student, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []student.Student
	for _, st := range s.rows {
		if params.Status != "" && st.VerificationStatus != params.Status {
			continue
		}
		if params.Converted != nil && st.IsConverted != *params.Converted {
			continue
		}
		out = append(out, st)
	}
	return out, len(out), nil
}

func (s *studentStore) mutate(id string, ok func(student.Student) bool, fn func(*student.Student)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, found := s.rows[id]
	if !found || !ok(st) {
		return false
	}
	fn(&st)
	st.UpdatedAt = s.now()
	s.rows[id] = st
	return true
}

func approvedUnconverted(st student.Student) bool {
	return st.VerificationStatus == student.StatusApproved && !st.IsConverted
}

func (s *studentStore) Review(_ context.Context, id string, to student.Status, adminID, notes string) (bool, error) {
	return s.mutate(id, func(st student.Student) bool {
		return st.VerificationStatus == student.StatusPending && !st.IsConverted
	}, func(st *student.Student) {
		now := s.now()
		st.VerificationStatus = to
		st.ReviewedBy = &adminID
		st.ReviewedAt = &now
		if notes != "" {
			st.AdminNotes = &notes
		}
	}), nil
}

func (s *studentStore) Extend(_ context.Context, id string, by time.Duration) (bool, error) {
	return s.mutate(id, approvedUnconverted, func(st *student.Student) {
		st.AdminExtensionCount++
		st.ConversionScheduledFor = st.ConversionScheduledFor.Add(by)
	}), nil
}

func (s *studentStore) MarkGraduated(_ context.Context, id string) (bool, error) {
	return s.mutate(id, approvedUnconverted, func(st *student.Student) {
		now := s.now()
		st.VerificationStatus = student.StatusGraduated
		st.GraduationCompleted = true
		st.GraduatedAt = &now
	}), nil
}

func (s *studentStore) MarkConverted(_ context.Context, id string) (bool, error) {
	return s.mutate(id, func(st student.Student) bool {
		return st.Convertible()
	}, func(st *student.Student) {
		now := s.now()
		st.IsConverted = true
		st.ConvertedAt = &now
	}), nil
}

func (s *studentStore) LinkConvertedUser(_ context.Context, id, userID string) error {
	if !s.mutate(id, func(st student.Student) bool { return st.IsConverted }, func(st *student.Student) {
		st.ConvertedUserID = &userID
	}) {
		return core.ErrNotFound
	}
	return nil
}

func (s *studentStore) DueForConversion(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, st := range s.rows {
		if st.DueForConversion(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *studentStore) CountByStatus(context.Context) (*student.StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := &student.StatusCounts{ByStatus: map[student.Status]int{}}
	for _, st := range s.rows {
		out.ByStatus[st.VerificationStatus]++
		if st.IsConverted {
			out.Converted++
		}
	}
	return out, nil
}

// userStore implements the parts of user.Repository that conversion touches.
type userStore struct {
	mu    sync.Mutex
	users map[string]user.User
	fail  error
}

func (u *userStore) Create(_ context.Context, account *user.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.fail != nil {
		return u.fail
	}
	for _, existing := range u.users {
		if existing.Email == account.Email {
			return core.ErrDuplicateKey
		}
	}
	u.users[account.ID] = *account
	return nil
}

func (u *userStore) GetByID(_ context.Context, id string) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	account, ok := u.users[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &account, nil
}

func (u *userStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, account := range u.users {
		if account.Email == email {
			return &account, nil
		}
	}
	return nil, core.ErrNotFound
}

func (u *userStore) UpdateRole(context.Context, string, string) error { return nil }

func (u *userStore) List(context.Context, user.ListUsersParams) ([]user.User, int, error) {
	return nil, 0, nil
}

func (u *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := u.GetByEmail(ctx, email)
	return err == nil, nil
}

func (u *userStore) EmailExists(ctx context.Context, email string) (bool, error) {
	return u.ExistsByEmail(ctx, email)
}

type uploadLimit int

func (l uploadLimit) Int(_ context.Context, key string) (int, error) {
	if key != settings.KeyMaxUploadSizeMB {
		return 0, core.ErrConfiguration
	}
	return int(l), nil
}

type StudentServiceSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	notifier *notifymocks.MockNotifier
	students *studentStore
	users    *userStore
	blobs    *blob.MemoryStore
	clock    time.Time
	service  *student.Service
	ctx      context.Context
}

func TestStudentServiceSuite(t *testing.T) {
	suite.Run(t, new(StudentServiceSuite))
}

func (s *StudentServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.notifier = notifymocks.NewMockNotifier(s.ctrl)
	s.clock = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	now := func() time.Time { return s.clock }
	s.students = &studentStore{rows: map[string]student.Student{}, now: now}
	s.users = &userStore{users: map[string]user.User{}}
	s.blobs = blob.NewMemoryStore()
	s.ctx = context.Background()

	s.service = student.NewService(student.ServiceConfig{
		Repo:     s.students,
		Accounts: s.users,
		Tx: func(ctx context.Context, fn func(student.Repository, user.Repository) error) error {
			return fn(s.students, s.users)
		},
		Blobs:           s.blobs,
		Folder:          "student-docs",
		Validator:       student.NewDocumentValidator(uploadLimit(5)),
		Notifier:        s.notifier,
		ValidityPeriod:  365 * 24 * time.Hour,
		ExtensionPeriod: 180 * 24 * time.Hour,
		Now:             now,
	})
}

func (s *StudentServiceSuite) expectEvent(event notify.EventType) {
	s.notifier.EXPECT().
		Notify(gomock.Any(), gomock.Cond(func(e notify.Event) bool { return e.Type == event })).
		Return(nil)
}

func (s *StudentServiceSuite) register(email string) *student.Student {
	s.expectEvent(notify.StudentRegistered)
	st, err := s.service.Submit(s.ctx, student.Registration{
		Email:         email,
		Name:          "Ana Student",
		Password:      "correct-horse-battery",
		University:    "State University",
		StudentNumber: "S-1001",
		DocumentSize:  int64(len(pngHeader)),
		Document:      bytes.NewReader(pngHeader),
	})
	s.Require().NoError(err)
	return st
}

func (s *StudentServiceSuite) approve(id string) {
	s.expectEvent(notify.StudentApproved)
	_, err := s.service.Review(s.ctx, id, student.StatusApproved, "admin-1", "")
	s.Require().NoError(err)
}

func (s *StudentServiceSuite) requireTransitionError(err error) {
	s.Require().Error(err)
	s.True(errors.Is(err, core.ErrInvalidTransition), "got %v", err)
}

func (s *StudentServiceSuite) TestSubmitStoresPendingRecord() {
	st := s.register("  Ana@Campus.edu ")

	s.Equal("ana@campus.edu", st.Email)
	s.Equal(student.StatusPending, st.VerificationStatus)
	s.Equal("image/png", st.DocumentType)
	s.Equal(s.clock.Add(365*24*time.Hour), st.ConversionScheduledFor)
	s.NotEqual("correct-horse-battery", st.PasswordHash)

	rc, err := s.blobs.Open(s.ctx, st.DocumentRef)
	s.Require().NoError(err)
	defer rc.Close()
}

func (s *StudentServiceSuite) TestSubmitRejectsDuplicateEmail() {
	s.register("ana@campus.edu")

	_, err := s.service.Submit(s.ctx, student.Registration{
		Email:        "ANA@campus.edu",
		Password:     "correct-horse-battery",
		DocumentSize: int64(len(pngHeader)),
		Document:     bytes.NewReader(pngHeader),
	})

	var appErr *core.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal("DUPLICATE", appErr.Code)
}

func (s *StudentServiceSuite) TestSubmitRejectsExistingAccountEmail() {
	s.users.users["u1"] = user.User{ID: "u1", Email: "bob@example.com"}

	_, err := s.service.Submit(s.ctx, student.Registration{
		Email:        "bob@example.com",
		Password:     "correct-horse-battery",
		DocumentSize: int64(len(pngHeader)),
		Document:     bytes.NewReader(pngHeader),
	})

	var appErr *core.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal("DUPLICATE", appErr.Code)
	s.Empty(s.students.rows)
}

func (s *StudentServiceSuite) TestSubmitRejectsUnsupportedDocument() {
	doc := []byte("just some plain text, not an image")
	_, err := s.service.Submit(s.ctx, student.Registration{
		Email:        "ana@campus.edu",
		Password:     "correct-horse-battery",
		DocumentSize: int64(len(doc)),
		Document:     bytes.NewReader(doc),
	})

	var appErr *core.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal("VALIDATION_ERROR", appErr.Code)
	s.Empty(s.students.rows)
}

func (s *StudentServiceSuite) TestReviewApprovesOnce() {
	st := s.register("ana@campus.edu")
	s.approve(st.ID)

	got, err := s.service.Get(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(student.StatusApproved, got.VerificationStatus)
	s.Require().NotNil(got.ReviewedBy)
	s.Equal("admin-1", *got.ReviewedBy)

	_, err = s.service.Review(s.ctx, st.ID, student.StatusRejected, "admin-2", "late")
	s.requireTransitionError(err)
}

func (s *StudentServiceSuite) TestReviewRejectsUnknownDecision() {
	st := s.register("ana@campus.edu")

	_, err := s.service.Review(s.ctx, st.ID, student.StatusGraduated, "admin-1", "")

	var appErr *core.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Equal("VALIDATION_ERROR", appErr.Code)
}

func (s *StudentServiceSuite) TestRejectionCarriesNotes() {
	st := s.register("ana@campus.edu")

	s.notifier.EXPECT().
		Notify(gomock.Any(), gomock.Cond(func(e notify.Event) bool {
			return e.Type == notify.StudentRejected && e.Data["notes"] == "blurry scan"
		})).
		Return(nil)

	got, err := s.service.Review(s.ctx, st.ID, student.StatusRejected, "admin-1", " blurry scan ")
	s.Require().NoError(err)
	s.Equal(student.StatusRejected, got.VerificationStatus)

	privileged, err := s.service.IsPrivileged(s.ctx, "ana@campus.edu")
	s.Require().NoError(err)
	s.False(privileged)
}

func (s *StudentServiceSuite) TestExtendAddsPeriodToSchedule() {
	st := s.register("ana@campus.edu")
	s.approve(st.ID)

	s.expectEvent(notify.StudentExtended)
	got, err := s.service.Extend(s.ctx, st.ID, "admin-1")
	s.Require().NoError(err)

	s.Equal(1, got.AdminExtensionCount)
	s.Equal(st.ConversionScheduledFor.Add(180*24*time.Hour), got.ConversionScheduledFor)
}

func (s *StudentServiceSuite) TestExtendRequiresApproved() {
	st := s.register("ana@campus.edu")

	_, err := s.service.Extend(s.ctx, st.ID, "admin-1")
	s.requireTransitionError(err)
}

func (s *StudentServiceSuite) TestGraduateMakesRecordDue() {
	st := s.register("ana@campus.edu")
	s.approve(st.ID)

	s.expectEvent(notify.StudentGraduated)
	got, err := s.service.MarkGraduated(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(student.StatusGraduated, got.VerificationStatus)
	s.False(got.IsConverted)

	due, err := s.service.DueForConversion(s.ctx, s.clock)
	s.Require().NoError(err)
	s.Equal([]string{st.ID}, due)

	privileged, err := s.service.IsPrivileged(s.ctx, st.Email)
	s.Require().NoError(err)
	s.False(privileged)
}

func (s *StudentServiceSuite) TestPendingPastScheduleIsNotDue() {
	st := s.register("ana@campus.edu")

	due, err := s.service.DueForConversion(s.ctx, st.ConversionScheduledFor.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(due)
}

func (s *StudentServiceSuite) TestConvertCreatesAccountOnce() {
	st := s.register("ana@campus.edu")
	s.approve(st.ID)

	s.expectEvent(notify.StudentConverted)
	got, err := s.service.Convert(s.ctx, st.ID)
	s.Require().NoError(err)

	s.True(got.IsConverted)
	s.Require().NotNil(got.ConvertedUserID)
	s.Require().Len(s.users.users, 1)

	account := s.users.users[*got.ConvertedUserID]
	s.Equal(st.Email, account.Email)
	s.Equal(st.PasswordHash, account.PasswordHash)
	s.Equal(user.RoleUser, account.Role)
	s.Require().NotNil(account.ConvertedFromStudentID)
	s.Equal(st.ID, *account.ConvertedFromStudentID)

	_, err = s.service.Convert(s.ctx, st.ID)
	s.requireTransitionError(err)
	s.Len(s.users.users, 1)

	privileged, err := s.service.IsPrivileged(s.ctx, st.Email)
	s.Require().NoError(err)
	s.False(privileged)
}

func (s *StudentServiceSuite) TestConvertRequiresVerifiedRecord() {
	st := s.register("ana@campus.edu")

	_, err := s.service.Convert(s.ctx, st.ID)
	s.requireTransitionError(err)
	s.Empty(s.users.users)
}

func (s *StudentServiceSuite) TestConvertSurfacesAccountFailure() {
	st := s.register("ana@campus.edu")
	s.approve(st.ID)
	s.users.fail = core.ErrDuplicateKey

	_, err := s.service.Convert(s.ctx, st.ID)
	s.Require().Error(err)
	s.ErrorIs(err, core.ErrDuplicateKey)
}

func (s *StudentServiceSuite) TestIsPrivilegedForApprovedOnly() {
	privileged, err := s.service.IsPrivileged(s.ctx, "nobody@example.com")
	s.Require().NoError(err)
	s.False(privileged)

	st := s.register("ana@campus.edu")

	privileged, err = s.service.IsPrivileged(s.ctx, "ana@campus.edu")
	s.Require().NoError(err)
	s.False(privileged)

	s.approve(st.ID)

	privileged, err = s.service.IsPrivileged(s.ctx, "ANA@campus.edu")
	s.Require().NoError(err)
	s.True(privileged)
}

func (s *StudentServiceSuite) TestNotificationFailureDoesNotRollBack() {
	s.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	st, err := s.service.Submit(s.ctx, student.Registration{
		Email:        "ana@campus.edu",
		Password:     "correct-horse-battery",
		DocumentSize: int64(len(pngHeader)),
		Document:     bytes.NewReader(pngHeader),
	})
	s.Require().NoError(err)

	got, err := s.service.Get(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(student.StatusPending, got.VerificationStatus)
}

func (s *StudentServiceSuite) TestCountByStatus() {
	a := s.register("a@campus.edu")
	s.register("b@campus.edu")
	s.approve(a.ID)

	counts, err := s.service.CountByStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, counts.ByStatus[student.StatusApproved])
	s.Equal(1, counts.ByStatus[student.StatusPending])
	s.Zero(counts.Converted)
}
