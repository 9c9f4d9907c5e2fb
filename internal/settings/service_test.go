// AngelaMos | 2026
// service_test.go

package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

type memoryRepo struct {
	mu        sync.Mutex
	rows      map[string]Setting
	listCalls int
	listErr   error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: map[string]Setting{}}
}

func (m *memoryRepo) Bootstrap(_ context.Context, defs []Definition) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, d := range defs {
		if _, ok := m.rows[d.Key]; ok {
			continue
		}
		m.rows[d.Key] = Setting{Key: d.Key, Value: d.Default, Category: d.Category, Version: 1}
		n++
	}
	return n, nil
}

func (m *memoryRepo) List(context.Context) ([]Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Setting, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, key string) (*Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &row, nil
}

func (m *memoryRepo) Update(_ context.Context, key, value, by string) (*Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[key]
	if !ok {
		return nil, core.ErrNotFound
	}
	row.Value = value
	row.Version++
	row.UpdatedBy = &by
	row.UpdatedAt = time.Now()
	m.rows[key] = row
	return &row, nil
}

func (m *memoryRepo) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[key] = Setting{Key: key, Value: value, Version: 1}
}

type SettingsServiceSuite struct {
	suite.Suite
	repo    *memoryRepo
	service *Service
	ctx     context.Context
}

func TestSettingsServiceSuite(t *testing.T) {
	suite.Run(t, new(SettingsServiceSuite))
}

func (s *SettingsServiceSuite) SetupTest() {
	s.repo = newMemoryRepo()
	s.service = NewService(s.repo, nil, nil)
	s.ctx = context.Background()
}

func (s *SettingsServiceSuite) TestBootstrapKeepsAdminValues() {
	s.repo.put(KeyPlatformFee, "12.5")

	s.Require().NoError(s.service.Bootstrap(s.ctx))

	fee, err := s.service.Decimal(s.ctx, KeyPlatformFee)
	s.Require().NoError(err)
	s.True(fee.Equal(decimal.RequireFromString("12.5")))

	discount, err := s.service.Decimal(s.ctx, KeyStudentDiscount)
	s.Require().NoError(err)
	s.True(discount.Equal(decimal.NewFromInt(20)))
}

func (s *SettingsServiceSuite) TestDefaultsWhenMissingOrMalformed() {
	s.Run("missing row falls back", func() {
		size, err := s.service.Int(s.ctx, KeyMaxUploadSizeMB)
		s.Require().NoError(err)
		s.Equal(5, size)
	})

	s.Run("malformed row falls back", func() {
		s.repo.put(KeyStudentDiscount, "twenty")
		s.service.Invalidate()

		d, err := s.service.Decimal(s.ctx, KeyStudentDiscount)
		s.Require().NoError(err)
		s.True(d.Equal(decimal.NewFromInt(20)))
	})

	s.Run("unknown key without default is a configuration error", func() {
		_, err := s.service.Decimal(s.ctx, "mystery_rate")
		s.ErrorIs(err, core.ErrConfiguration)
	})
}

func (s *SettingsServiceSuite) TestSnapshotIsCachedUntilWrite() {
	s.Require().NoError(s.service.Bootstrap(s.ctx))

	for range 5 {
		_, err := s.service.Decimal(s.ctx, KeyPlatformFee)
		s.Require().NoError(err)
	}
	s.Equal(1, s.repo.listCalls)

	updated, err := s.service.Update(s.ctx, KeyPlatformFee, "10", "admin-1")
	s.Require().NoError(err)
	s.Equal(2, updated.Version)

	fee, err := s.service.Decimal(s.ctx, KeyPlatformFee)
	s.Require().NoError(err)
	s.True(fee.Equal(decimal.NewFromInt(10)))
	s.Equal(2, s.repo.listCalls)
}

func (s *SettingsServiceSuite) TestUpdateValidation() {
	s.Require().NoError(s.service.Bootstrap(s.ctx))

	s.Run("unknown key", func() {
		_, err := s.service.Update(s.ctx, "unknown", "1", "admin")
		s.ErrorIs(err, core.ErrNotFound)
	})

	s.Run("percentage out of range", func() {
		_, err := s.service.Update(s.ctx, KeyStudentDiscount, "101", "admin")
		s.ErrorIs(err, core.ErrValidation)
	})

	s.Run("non numeric upload size", func() {
		_, err := s.service.Update(s.ctx, KeyMaxUploadSizeMB, "5.5", "admin")
		s.ErrorIs(err, core.ErrValidation)
	})
}

func (s *SettingsServiceSuite) TestLoadErrorsPropagate() {
	s.repo.listErr = errors.New("connection reset")

	_, err := s.service.Decimal(s.ctx, KeyPlatformFee)
	s.Error(err)
	s.NotErrorIs(err, core.ErrConfiguration)
}
