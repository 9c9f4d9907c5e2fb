// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/studentshelf/internal/catalog"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/purchase"
	"github.com/carterperez-dev/studentshelf/internal/student"
)

type EbookCounter interface {
	CountByStatus(ctx context.Context) (map[catalog.Status]int, error)
}

type PurchaseSummarizer interface {
	Summary(ctx context.Context) (*purchase.Summary, error)
}

type StudentCounter interface {
	CountByStatus(ctx context.Context) (*student.StatusCounts, error)
}

type Handler struct {
	ebooks     EbookCounter
	purchases  PurchaseSummarizer
	students   StudentCounter
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
}

type HandlerConfig struct {
	Ebooks     EbookCounter
	Purchases  PurchaseSummarizer
	Students   StudentCounter
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		ebooks:     cfg.Ebooks,
		purchases:  cfg.Purchases,
		students:   cfg.Students,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
	}
}

// RegisterRoutes expects to be mounted under an admin-only group.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/overview", h.GetOverview)
	r.Get("/stats", h.GetSystemStats)
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	var (
		resp OverviewResponse
		g    errgroup.Group
		ctx  = r.Context()
	)

	g.Go(func() error {
		counts, err := h.ebooks.CountByStatus(ctx)
		resp.Marketplace.Ebooks = counts
		return err
	})
	g.Go(func() error {
		summary, err := h.purchases.Summary(ctx)
		resp.Marketplace.Purchases = summary
		return err
	})
	g.Go(func() error {
		counts, err := h.students.CountByStatus(ctx)
		resp.Marketplace.Students = counts
		return err
	})

	if err := g.Wait(); err != nil {
		core.InternalServerError(w, err)
		return
	}

	resp.System = h.systemStats(ctx)
	core.OK(w, resp)
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.systemStats(r.Context()))
}

func (h *Handler) systemStats(ctx context.Context) SystemStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemStats{
		Database: DatabaseStatus{
			Healthy: healthy(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		},
		Redis: RedisStatus{
			Healthy: healthy(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     memStats.Alloc,
			NumGC:        memStats.NumGC,
		},
	}
}

func healthy(ctx context.Context, ping func(context.Context) error) bool {
	if ping == nil {
		return false
	}
	return ping(ctx) == nil
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	if stats == nil {
		return nil
	}
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}
