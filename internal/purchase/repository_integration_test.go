//go:build integration

// AngelaMos | 2026
// repository_integration_test.go

package purchase_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/carterperez-dev/studentshelf/internal/catalog"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/purchase"
	"github.com/carterperez-dev/studentshelf/internal/testutil/containers"
	"github.com/carterperez-dev/studentshelf/internal/user"
)

type RepositorySuite struct {
	suite.Suite
	pg      *containers.PostgresContainer
	repo    purchase.Repository
	ebooks  catalog.Repository
	users   user.Repository
	ebookID string
}

func TestRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupSuite() {
	s.pg = containers.NewPostgres(s.T())
	s.repo = purchase.NewRepository(s.pg.DB)
	s.ebooks = catalog.NewRepository(s.pg.DB)
	s.users = user.NewRepository(s.pg.DB)
}

func (s *RepositorySuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.pg.TruncateTables(ctx, "purchases", "ebooks", "users"))

	author := &user.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		Name:         "Author",
		Role:         user.RoleUser,
	}
	s.Require().NoError(s.users.Create(ctx, author))

	ebook := &catalog.Ebook{
		ID:        uuid.NewString(),
		Title:     "Field Notes",
		AuthorID:  author.ID,
		BasePrice: decimal.RequireFromString("20.00"),
		Currency:  "USD",
		Status:    catalog.StatusPublished,
		FileRef:   "mem://ebook",
	}
	s.Require().NoError(s.ebooks.Create(ctx, ebook))
	s.ebookID = ebook.ID
}

func (s *RepositorySuite) pending(email string, final string) *purchase.Purchase {
	p := &purchase.Purchase{
		ID:             uuid.NewString(),
		OrderID:        purchase.NewOrderID(time.Now()),
		BuyerEmail:     email,
		BuyerClass:     purchase.BuyerRegular,
		EbookID:        s.ebookID,
		ListPrice:      decimal.RequireFromString("20.00"),
		Discount:       decimal.Zero,
		PlatformFee:    decimal.RequireFromString("2.00"),
		AuthorEarnings: decimal.RequireFromString(final).Sub(decimal.RequireFromString("2.00")),
		FinalPrice:     decimal.RequireFromString(final),
		Currency:       "USD",
		Credential:     uuid.NewString(),
		Status:         purchase.StatusPending,
	}
	s.Require().NoError(s.repo.Create(context.Background(), p))
	return p
}

func (s *RepositorySuite) TestCreateRejectsDuplicateOrderID() {
	p := s.pending("a@example.com", "20.00")

	dup := *p
	dup.ID = uuid.NewString()
	err := s.repo.Create(context.Background(), &dup)
	s.ErrorIs(err, core.ErrDuplicateKey)
}

func (s *RepositorySuite) TestCompleteHasSingleWinner() {
	ctx := context.Background()
	p := s.pending("a@example.com", "20.00")

	const callers = 20
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.repo.Complete(ctx, p.ID, "txn-1")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())

	failed, err := s.repo.Fail(ctx, p.ID, "late decline")
	s.Require().NoError(err)
	s.False(failed)

	got, err := s.repo.GetByOrderID(ctx, p.OrderID)
	s.Require().NoError(err)
	s.Equal(purchase.StatusCompleted, got.Status)
	s.Require().NotNil(got.ProviderTransactionID)
	s.Equal("txn-1", *got.ProviderTransactionID)
	s.True(got.FinalPrice.Equal(decimal.RequireFromString("20.00")))
}

func (s *RepositorySuite) TestCompletedCredentials() {
	ctx := context.Background()
	done := s.pending("reader@example.com", "20.00")
	_ = s.pending("reader@example.com", "20.00")
	_, err := s.repo.Complete(ctx, done.ID, "txn-2")
	s.Require().NoError(err)

	creds, err := s.repo.CompletedCredentials(ctx, s.ebookID, "reader@example.com")
	s.Require().NoError(err)
	s.Equal([]string{done.Credential}, creds)

	creds, err = s.repo.CompletedCredentials(ctx, s.ebookID, "other@example.com")
	s.Require().NoError(err)
	s.Empty(creds)
}

func (s *RepositorySuite) TestSummaryAndEbookStats() {
	ctx := context.Background()
	a := s.pending("a@example.com", "20.00")
	b := s.pending("b@example.com", "15.50")
	c := s.pending("c@example.com", "20.00")

	for _, p := range []*purchase.Purchase{a, b} {
		_, err := s.repo.Complete(ctx, p.ID, "txn-"+p.ID)
		s.Require().NoError(err)
	}
	_, err := s.repo.Fail(ctx, c.ID, "declined")
	s.Require().NoError(err)

	summary, err := s.repo.Summary(ctx)
	s.Require().NoError(err)
	s.Equal(2, summary.Counts[purchase.StatusCompleted])
	s.Equal(1, summary.Counts[purchase.StatusFailed])
	s.True(summary.Revenue.Equal(decimal.RequireFromString("35.50")), summary.Revenue.String())
	s.True(summary.PlatformEarnings.Equal(decimal.RequireFromString("4.00")))

	s.Require().NoError(s.ebooks.RecomputeStats(ctx, s.ebookID))
	s.Require().NoError(s.ebooks.RecomputeStats(ctx, s.ebookID))

	ebook, err := s.ebooks.GetByID(ctx, s.ebookID)
	s.Require().NoError(err)
	s.Equal(2, ebook.TotalSales)
	s.True(ebook.TotalRevenue.Equal(decimal.RequireFromString("35.50")))
	s.True(ebook.AuthorEarnings.Equal(decimal.RequireFromString("31.50")))
	s.True(ebook.PlatformEarnings.Equal(decimal.RequireFromString("4.00")))
}

func (s *RepositorySuite) TestListFiltersByStatus() {
	ctx := context.Background()
	a := s.pending("a@example.com", "20.00")
	_ = s.pending("b@example.com", "20.00")
	_, err := s.repo.Complete(ctx, a.ID, "txn-3")
	s.Require().NoError(err)

	rows, total, err := s.repo.List(ctx, purchase.ListParams{Status: purchase.StatusCompleted})
	s.Require().NoError(err)
	s.Equal(1, total)
	s.Require().Len(rows, 1)
	s.Equal(a.ID, rows[0].ID)
}
