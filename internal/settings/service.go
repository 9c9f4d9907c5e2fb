// AngelaMos | 2026
// service.go

package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

const InvalidationChannel = "settings:invalidate"

// Service serves settings from an in-memory snapshot. Writes drop the
// snapshot locally and broadcast on Redis so other replicas drop theirs.
type Service struct {
	repo   Repository
	rdb    *redis.Client
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot map[string]Setting
	gen      uint64
	group    singleflight.Group
}

func NewService(repo Repository, rdb *redis.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *Service) Bootstrap(ctx context.Context) error {
	inserted, err := s.repo.Bootstrap(ctx, Definitions())
	if err != nil {
		return err
	}
	if inserted > 0 {
		s.logger.Info("platform settings bootstrapped", "inserted", inserted)
	}
	s.Invalidate()
	return nil
}

func (s *Service) List(ctx context.Context) ([]Setting, error) {
	return s.repo.List(ctx)
}

// Value returns the stored value. A missing row is core.ErrNotFound.
func (s *Service) Value(ctx context.Context, key string) (string, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return "", err
	}

	setting, ok := snap[key]
	if !ok {
		return "", fmt.Errorf("setting %s: %w", key, core.ErrNotFound)
	}
	return setting.Value, nil
}

// Decimal parses key, falling back to the registered default when the
// stored value is missing or malformed.
func (s *Service) Decimal(ctx context.Context, key string) (decimal.Decimal, error) {
	raw, err := s.Value(ctx, key)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return decimal.Zero, err
	}

	if err == nil {
		if d, parseErr := decimal.NewFromString(strings.TrimSpace(raw)); parseErr == nil {
			return d, nil
		}
		s.logger.Warn("unparsable setting, using default", "key", key, "value", raw)
	}

	def, ok := Lookup(key)
	if !ok {
		return decimal.Zero, fmt.Errorf("setting %s has no default: %w", key, core.ErrConfiguration)
	}

	d, parseErr := decimal.NewFromString(def.Default)
	if parseErr != nil {
		return decimal.Zero, fmt.Errorf("setting %s default: %w", key, core.ErrConfiguration)
	}
	return d, nil
}

func (s *Service) Int(ctx context.Context, key string) (int, error) {
	raw, err := s.Value(ctx, key)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return 0, err
	}

	if err == nil {
		if n, parseErr := strconv.Atoi(strings.TrimSpace(raw)); parseErr == nil {
			return n, nil
		}
		s.logger.Warn("unparsable setting, using default", "key", key, "value", raw)
	}

	def, ok := Lookup(key)
	if !ok {
		return 0, fmt.Errorf("setting %s has no default: %w", key, core.ErrConfiguration)
	}

	n, parseErr := strconv.Atoi(def.Default)
	if parseErr != nil {
		return 0, fmt.Errorf("setting %s default: %w", key, core.ErrConfiguration)
	}
	return n, nil
}

func (s *Service) Update(
	ctx context.Context,
	key, value, adminID string,
) (*Setting, error) {
	def, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("update setting %s: %w", key, core.ErrNotFound)
	}

	value = strings.TrimSpace(value)
	if err := def.Validate(value); err != nil {
		return nil, core.ValidationError(fmt.Sprintf("%s %s", key, err.Error()))
	}

	updated, err := s.repo.Update(ctx, key, value, adminID)
	if err != nil {
		return nil, err
	}

	s.Invalidate()
	s.broadcast(ctx, key)

	s.logger.Info("platform setting updated",
		"key", key,
		"version", updated.Version,
		"admin_id", adminID,
	)

	return updated, nil
}

func (s *Service) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.gen++
	s.mu.Unlock()
}

// Listen drops the snapshot whenever any replica announces a write.
// It returns when ctx is cancelled.
func (s *Service) Listen(ctx context.Context) error {
	if s.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := s.rdb.Subscribe(ctx, InvalidationChannel)
	defer func() {
		_ = sub.Close() //nolint:errcheck // best-effort unsubscribe
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.logger.Debug("settings invalidated by peer", "key", msg.Payload)
			s.Invalidate()
		}
	}
}

func (s *Service) broadcast(ctx context.Context, key string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, InvalidationChannel, key).Err(); err != nil {
		s.logger.Warn("settings invalidation broadcast failed",
			"key", key,
			"error", err,
		)
	}
}

func (s *Service) load(ctx context.Context) (map[string]Setting, error) {
	s.mu.RLock()
	snap, gen := s.snapshot, s.gen
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := s.group.Do("snapshot", func() (any, error) {
		rows, err := s.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}

		fresh := make(map[string]Setting, len(rows))
		for _, row := range rows {
			fresh[row.Key] = row
		}

		// A write that landed mid-load already bumped gen; keep the
		// snapshot empty so the next read goes back to the database.
		s.mu.Lock()
		if s.gen == gen {
			s.snapshot = fresh
		}
		s.mu.Unlock()

		return fresh, nil
	})
	if err != nil {
		return nil, err
	}

	//nolint:forcetypeassert // only maps are stored in the group
	return v.(map[string]Setting), nil
}
