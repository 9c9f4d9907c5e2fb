// AngelaMos | 2026
// service.go

package purchase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/studentshelf/internal/blob"
	"github.com/carterperez-dev/studentshelf/internal/catalog"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/credential"
	"github.com/carterperez-dev/studentshelf/internal/metrics"
	"github.com/carterperez-dev/studentshelf/internal/notify"
	"github.com/carterperez-dev/studentshelf/internal/payment"
	"github.com/carterperez-dev/studentshelf/internal/pricing"
)

// BuyerClassifier decides whether an email gets the student price.
type BuyerClassifier interface {
	IsPrivileged(ctx context.Context, email string) (bool, error)
}

type Catalog interface {
	Get(ctx context.Context, id string) (*catalog.Ebook, error)
}

type Pricer interface {
	Price(ctx context.Context, base decimal.Decimal, privileged bool) (pricing.Quote, error)
}

type Credentials interface {
	Issue(email, itemID string) string
	Verify(ctx context.Context, itemID, email, secret string) (bool, error)
}

// StatsRecomputer rebuilds an ebook's sales aggregates.
type StatsRecomputer interface {
	RecomputeStats(ctx context.Context, ebookID string) error
}

// TxRunner runs fn with repositories bound to one transaction.
type TxRunner func(ctx context.Context, fn func(repo Repository, stats StatsRecomputer) error) error

func SQLTxRunner(db *sqlx.DB) TxRunner {
	return func(ctx context.Context, fn func(Repository, StatsRecomputer) error) error {
		return core.InTx(ctx, db, func(tx *sqlx.Tx) error {
			return fn(NewRepository(tx), catalog.NewRepository(tx))
		})
	}
}

type Service struct {
	repo        Repository
	tx          TxRunner
	catalog     Catalog
	buyers      BuyerClassifier
	pricer      Pricer
	credentials Credentials
	provider    payment.Provider
	notifier    notify.Notifier
	blobs       blob.Store
	metrics     *metrics.Metrics
	publicURL   string
	logger      *slog.Logger
	now         func() time.Time
}

type ServiceConfig struct {
	Repo        Repository
	Tx          TxRunner
	Catalog     Catalog
	Buyers      BuyerClassifier
	Pricer      Pricer
	Credentials Credentials
	Provider    payment.Provider
	Notifier    notify.Notifier
	Blobs       blob.Store
	Metrics     *metrics.Metrics
	PublicURL   string
	Logger      *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	provider := cfg.Provider
	if provider == nil {
		provider = payment.OfflineProvider{}
	}
	return &Service{
		repo:        cfg.Repo,
		tx:          cfg.Tx,
		catalog:     cfg.Catalog,
		buyers:      cfg.Buyers,
		pricer:      cfg.Pricer,
		credentials: cfg.Credentials,
		provider:    provider,
		notifier:    cfg.Notifier,
		blobs:       cfg.Blobs,
		metrics:     cfg.Metrics,
		publicURL:   strings.TrimRight(cfg.PublicURL, "/"),
		logger:      logger,
		now:         time.Now,
	}
}

type Created struct {
	Purchase *Purchase
	Quote    pricing.Quote
	Checkout payment.Checkout
	Download DownloadInfo
}

func (s *Service) Create(ctx context.Context, ebookID, email string) (*Created, error) {
	ctx, span := core.StartSpan(ctx, "purchase", "purchase.Create",
		attribute.String("ebook.id", ebookID),
	)
	var err error
	defer func() { core.EndSpan(span, err) }()

	email = credential.NormalizeEmail(email)

	if !core.ValidID(ebookID) {
		err = core.ItemUnavailableError()
		return nil, err
	}

	var ebook *catalog.Ebook
	ebook, err = s.catalog.Get(ctx, ebookID)
	if errors.Is(err, core.ErrNotFound) {
		err = core.ItemUnavailableError()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if !ebook.IsPublished() {
		err = core.ItemUnavailableError()
		return nil, err
	}

	privileged := false
	if s.buyers != nil {
		privileged, err = s.buyers.IsPrivileged(ctx, email)
		if err != nil {
			err = fmt.Errorf("classify buyer: %w", err)
			return nil, err
		}
	}

	var quote pricing.Quote
	quote, err = s.pricer.Price(ctx, ebook.BasePrice, privileged)
	if err != nil {
		err = fmt.Errorf("price ebook %s: %w", ebook.ID, err)
		return nil, err
	}

	p := &Purchase{
		ID:             uuid.New().String(),
		OrderID:        NewOrderID(s.now()),
		BuyerEmail:     email,
		BuyerClass:     ClassFor(privileged),
		EbookID:        ebook.ID,
		ListPrice:      quote.Original,
		Discount:       quote.Discount,
		PlatformFee:    quote.PlatformFee,
		AuthorEarnings: quote.AuthorEarnings,
		FinalPrice:     quote.Final,
		Currency:       ebook.Currency,
		Credential:     s.credentials.Issue(email, ebook.ID),
		Status:         StatusPending,
	}

	if err = s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.metrics.PurchaseEvent("created", string(p.BuyerClass))

	out := &Created{
		Quote: quote,
		Download: DownloadInfo{
			Email:       email,
			Secret:      p.Credential,
			DownloadURL: s.downloadURL(ebook.ID, email, p.Credential),
		},
	}

	if quote.Final.IsZero() {
		out.Purchase, err = s.Confirm(ctx, p.ID, FreeTransactionID)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	var checkout *payment.Checkout
	checkout, err = s.provider.CreateCheckout(ctx, payment.CheckoutRequest{
		OrderID:  p.OrderID,
		Amount:   quote.Final,
		Currency: p.Currency,
		ItemID:   ebook.ID,
		ItemName: ebook.Title,
		Email:    email,
	})
	if err != nil {
		s.logger.Error("checkout failed",
			"order_id", p.OrderID,
			"error", err,
		)
		if _, failErr := s.Fail(ctx, p.ID, "checkout failed"); failErr != nil {
			s.logger.Error("mark purchase failed",
				"purchase_id", p.ID,
				"error", failErr,
			)
		}
		err = core.UpstreamError("payment provider unavailable")
		return nil, err
	}

	if err = s.repo.SetCheckout(ctx, p.ID, checkout.Token, checkout.RedirectURL); err != nil {
		return nil, err
	}

	out.Checkout = *checkout
	out.Purchase, err = s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *Service) downloadURL(ebookID, email, secret string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("secret", secret)
	return fmt.Sprintf("%s/v1/ebooks/%s/download?%s", s.publicURL, url.PathEscape(ebookID), q.Encode())
}

// Confirm completes a pending purchase and rebuilds the ebook aggregates in
// the same transaction. Confirming a completed purchase changes nothing.
func (s *Service) Confirm(ctx context.Context, id, transactionID string) (*Purchase, error) {
	ctx, span := core.StartSpan(ctx, "purchase", "purchase.Confirm",
		attribute.String("purchase.id", id),
	)
	var err error
	defer func() { core.EndSpan(span, err) }()

	if strings.TrimSpace(transactionID) == "" {
		err = core.ValidationError("transaction id is required")
		return nil, err
	}
	if !core.ValidID(id) {
		err = fmt.Errorf("confirm purchase: %w", core.ErrNotFound)
		return nil, err
	}

	first := false
	err = s.tx(ctx, func(repo Repository, stats StatsRecomputer) error {
		p, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		switch p.Status {
		case StatusCompleted:
			return nil
		case StatusPending:
		default:
			return core.TransitionError("confirm purchase", string(p.Status), string(StatusPending))
		}

		changed, err := repo.Complete(ctx, id, transactionID)
		if err != nil {
			return err
		}
		if !changed {
			fresh, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if fresh.Status == StatusCompleted {
				return nil
			}
			return core.TransitionError("confirm purchase", string(fresh.Status), string(StatusPending))
		}

		first = true
		return stats.RecomputeStats(ctx, p.EbookID)
	})
	if err != nil {
		return nil, err
	}

	var p *Purchase
	p, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if first {
		s.metrics.PurchaseEvent("completed", string(p.BuyerClass))
		s.logger.Info("purchase completed",
			"purchase_id", p.ID,
			"order_id", p.OrderID,
			"ebook_id", p.EbookID,
		)
		notify.Send(ctx, s.notifier, s.logger, notify.Event{
			Type:      notify.PurchaseCompleted,
			Recipient: p.BuyerEmail,
			Subject:   "Your ebook is ready to download",
			Data: map[string]string{
				"order_id":    p.OrderID,
				"ebook_id":    p.EbookID,
				"final_price": p.FinalPrice.StringFixed(2),
				"currency":    p.Currency,
			},
		})
	}

	return p, nil
}

// Fail marks a pending purchase failed. Failing a failed purchase changes
// nothing.
func (s *Service) Fail(ctx context.Context, id, reason string) (*Purchase, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case StatusFailed:
		return p, nil
	case StatusPending:
	default:
		return nil, core.TransitionError("fail purchase", string(p.Status), string(StatusPending))
	}

	changed, err := s.repo.Fail(ctx, id, reason)
	if err != nil {
		return nil, err
	}

	fresh, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !changed {
		if fresh.Status == StatusFailed {
			return fresh, nil
		}
		return nil, core.TransitionError("fail purchase", string(fresh.Status), string(StatusPending))
	}

	s.metrics.PurchaseEvent("failed", string(fresh.BuyerClass))
	notify.Send(ctx, s.notifier, s.logger, notify.Event{
		Type:      notify.PurchaseFailed,
		Recipient: fresh.BuyerEmail,
		Subject:   "Your payment did not go through",
		Data: map[string]string{
			"order_id": fresh.OrderID,
			"ebook_id": fresh.EbookID,
			"reason":   reason,
		},
	})

	return fresh, nil
}

// HandleNotification applies a gateway callback. Callbacks for unknown
// orders or for purchases already past the matching transition are
// acknowledged so the gateway stops retrying.
func (s *Service) HandleNotification(
	ctx context.Context,
	n payment.Notification,
) (payment.Outcome, error) {
	if err := s.provider.VerifyNotification(n); err != nil {
		return "", fmt.Errorf("payment notification %s: %w", n.OrderID, err)
	}

	p, err := s.repo.GetByOrderID(ctx, n.OrderID)
	if errors.Is(err, core.ErrNotFound) {
		s.logger.Warn("notification for unknown order", "order_id", n.OrderID)
		return payment.OutcomeIgnored, nil
	}
	if err != nil {
		return "", err
	}

	outcome := payment.MapStatus(n)
	switch outcome {
	case payment.OutcomePaid:
		txn := n.TransactionID
		if txn == "" {
			txn = n.OrderID
		}
		_, err = s.Confirm(ctx, p.ID, txn)
	case payment.OutcomeFailed:
		_, err = s.Fail(ctx, p.ID, "payment "+strings.ToLower(n.TransactionStatus))
	default:
		return outcome, nil
	}

	if errors.Is(err, core.ErrInvalidTransition) {
		s.logger.Warn("notification conflicts with purchase state",
			"order_id", n.OrderID,
			"transaction_status", n.TransactionStatus,
			"error", err,
		)
		return payment.OutcomeIgnored, nil
	}
	if err != nil {
		return "", err
	}

	return outcome, nil
}

type Delivery struct {
	Body     io.ReadCloser
	Filename string
}

// Download opens the ebook file when secret matches a completed purchase of
// itemID by email. Every credential mismatch yields the same AccessDenied.
func (s *Service) Download(ctx context.Context, itemID, email, secret string) (*Delivery, error) {
	ctx, span := core.StartSpan(ctx, "purchase", "purchase.Download",
		attribute.String("ebook.id", itemID),
	)
	var err error
	defer func() { core.EndSpan(span, err) }()

	var ok bool
	ok, err = s.credentials.Verify(ctx, itemID, email, secret)
	if err != nil {
		return nil, err
	}
	s.metrics.Download(ok)
	if !ok {
		err = core.AccessDeniedError()
		return nil, err
	}

	var ebook *catalog.Ebook
	ebook, err = s.catalog.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var body io.ReadCloser
	body, err = s.blobs.Open(ctx, ebook.FileRef)
	if err != nil {
		err = fmt.Errorf("open ebook %s: %w", ebook.ID, err)
		return nil, err
	}

	return &Delivery{Body: body, Filename: downloadName(ebook.Title)}, nil
}

func downloadName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, strings.TrimSpace(title))
	if name == "" {
		return "ebook"
	}
	return name
}

func (s *Service) Get(ctx context.Context, id string) (*Purchase, error) {
	if !core.ValidID(id) {
		return nil, fmt.Errorf("get purchase: %w", core.ErrNotFound)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Purchase, int, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return s.repo.Summary(ctx)
}
