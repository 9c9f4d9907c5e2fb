//go:build integration

// AngelaMos | 2026
// repository_integration_test.go

package student_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/student"
	"github.com/carterperez-dev/studentshelf/internal/testutil/containers"
	"github.com/carterperez-dev/studentshelf/internal/user"
)

type RepositorySuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	repo  student.Repository
	users user.Repository
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.pg = containers.NewPostgres(s.T())
	s.repo = student.NewRepository(s.pg.DB)
	s.users = user.NewRepository(s.pg.DB)
}

func (s *RepositorySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "students", "users"))
}

func (s *RepositorySuite) insert(status student.Status, scheduled time.Time) *student.Student {
	st := &student.Student{
		ID:                     uuid.NewString(),
		Email:                  uuid.NewString() + "@campus.edu",
		Name:                   "Student",
		PasswordHash:           "hash",
		University:             "State University",
		StudentNumber:          "S-1",
		DocumentRef:            "mem://doc",
		DocumentType:           "application/pdf",
		VerificationStatus:     status,
		ConversionScheduledFor: scheduled,
	}
	s.Require().NoError(s.repo.Create(context.Background(), st))
	return st
}

func (s *RepositorySuite) TestCreateRejectsDuplicateEmail() {
	st := s.insert(student.StatusPending, time.Now().Add(time.Hour))

	dup := *st
	dup.ID = uuid.NewString()
	err := s.repo.Create(context.Background(), &dup)
	s.ErrorIs(err, core.ErrDuplicateKey)
}

func (s *RepositorySuite) TestReviewOnlyOnce() {
	ctx := context.Background()
	st := s.insert(student.StatusPending, time.Now().Add(time.Hour))

	changed, err := s.repo.Review(ctx, st.ID, student.StatusApproved, "admin", "")
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.repo.Review(ctx, st.ID, student.StatusRejected, "admin", "late")
	s.Require().NoError(err)
	s.False(changed)

	got, err := s.repo.GetByID(ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(student.StatusApproved, got.VerificationStatus)
	s.Nil(got.AdminNotes)
	s.NotNil(got.ReviewedAt)
}

func (s *RepositorySuite) TestExtendAddsToSchedule() {
	ctx := context.Background()
	scheduled := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	st := s.insert(student.StatusApproved, scheduled)

	changed, err := s.repo.Extend(ctx, st.ID, 48*time.Hour)
	s.Require().NoError(err)
	s.True(changed)

	got, err := s.repo.GetByID(ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(1, got.AdminExtensionCount)
	s.WithinDuration(scheduled.Add(48*time.Hour), got.ConversionScheduledFor, time.Second)

	pending := s.insert(student.StatusPending, scheduled)
	changed, err = s.repo.Extend(ctx, pending.ID, time.Hour)
	s.Require().NoError(err)
	s.False(changed)
}

func (s *RepositorySuite) TestDueForConversion() {
	ctx := context.Background()
	now := time.Now()

	overdue := s.insert(student.StatusApproved, now.Add(-time.Hour))
	graduated := s.insert(student.StatusApproved, now.Add(30*24*time.Hour))
	_ = s.insert(student.StatusApproved, now.Add(time.Hour))
	_ = s.insert(student.StatusPending, now.Add(-time.Hour))
	_ = s.insert(student.StatusRejected, now.Add(-time.Hour))

	changed, err := s.repo.MarkGraduated(ctx, graduated.ID)
	s.Require().NoError(err)
	s.True(changed)

	ids, err := s.repo.DueForConversion(ctx, now)
	s.Require().NoError(err)
	s.ElementsMatch([]string{overdue.ID, graduated.ID}, ids)

	claimed, err := s.repo.MarkConverted(ctx, overdue.ID)
	s.Require().NoError(err)
	s.True(claimed)

	ids, err = s.repo.DueForConversion(ctx, now)
	s.Require().NoError(err)
	s.Equal([]string{graduated.ID}, ids)
}

func (s *RepositorySuite) TestMarkConvertedHasSingleWinner() {
	ctx := context.Background()
	st := s.insert(student.StatusApproved, time.Now().Add(-time.Hour))

	const callers = 20
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.repo.MarkConverted(ctx, st.ID)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
}

func (s *RepositorySuite) TestLinkConvertedUser() {
	ctx := context.Background()
	st := s.insert(student.StatusApproved, time.Now().Add(-time.Hour))

	account := &user.User{
		ID:                     uuid.NewString(),
		Email:                  st.Email,
		PasswordHash:           st.PasswordHash,
		Name:                   st.Name,
		Role:                   user.RoleUser,
		ConvertedFromStudentID: &st.ID,
	}
	s.Require().NoError(s.users.Create(ctx, account))

	err := s.repo.LinkConvertedUser(ctx, st.ID, account.ID)
	s.ErrorIs(err, core.ErrNotFound)

	_, err = s.repo.MarkConverted(ctx, st.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.repo.LinkConvertedUser(ctx, st.ID, account.ID))

	got, err := s.repo.GetByID(ctx, st.ID)
	s.Require().NoError(err)
	s.True(got.IsConverted)
	s.Require().NotNil(got.ConvertedUserID)
	s.Equal(account.ID, *got.ConvertedUserID)
}

func (s *RepositorySuite) TestCountByStatus() {
	ctx := context.Background()
	_ = s.insert(student.StatusPending, time.Now())
	_ = s.insert(student.StatusPending, time.Now())
	approved := s.insert(student.StatusApproved, time.Now().Add(-time.Hour))
	_, err := s.repo.MarkConverted(ctx, approved.ID)
	s.Require().NoError(err)

	counts, err := s.repo.CountByStatus(ctx)
	s.Require().NoError(err)
	s.Equal(2, counts.ByStatus[student.StatusPending])
	s.Equal(1, counts.ByStatus[student.StatusApproved])
	s.Equal(1, counts.Converted)
}
