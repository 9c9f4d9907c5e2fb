// AngelaMos | 2026
// dto.go

package admin

import (
	"github.com/carterperez-dev/studentshelf/internal/catalog"
	"github.com/carterperez-dev/studentshelf/internal/purchase"
	"github.com/carterperez-dev/studentshelf/internal/student"
)

type OverviewResponse struct {
	Marketplace MarketplaceStatus `json:"marketplace"`
	System      SystemStats       `json:"system"`
}

type MarketplaceStatus struct {
	Ebooks    map[catalog.Status]int `json:"ebooks"`
	Purchases *purchase.Summary      `json:"purchases"`
	Students  *student.StatusCounts  `json:"students"`
}

type SystemStats struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
