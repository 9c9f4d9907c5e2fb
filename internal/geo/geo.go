// AngelaMos | 2026
// geo.go

package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/studentshelf/internal/config"
)

// UnknownCountry is reported when the caller's address cannot be placed.
const UnknownCountry = "XX"

var ErrLookupFailed = errors.New("geo lookup failed")

// Locator resolves an IP address to an ISO 3166-1 alpha-2 country code.
type Locator interface {
	Country(ctx context.Context, ip string) (string, error)
}

// IPAPIClient queries an ip-api.com compatible endpoint.
type IPAPIClient struct {
	endpoint string
	client   *http.Client
}

func NewIPAPIClient(endpoint string, timeout time.Duration) *IPAPIClient {
	return &IPAPIClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
}

func (c *IPAPIClient) Country(ctx context.Context, ip string) (string, error) {
	target := c.endpoint + "/" + url.PathEscape(ip) + "?fields=status,message,countryCode"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build geo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: decode: %w", ErrLookupFailed, err)
	}

	if body.Status != "success" || body.CountryCode == "" {
		return "", fmt.Errorf("%w: %s", ErrLookupFailed, body.Message)
	}

	return strings.ToUpper(body.CountryCode), nil
}

// CachedLocator remembers lookups in Redis.
type CachedLocator struct {
	next Locator
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedLocator(next Locator, rdb *redis.Client, ttl time.Duration) *CachedLocator {
	return &CachedLocator{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(ip string) string {
	return "geo:ip:" + ip
}

func (c *CachedLocator) Country(ctx context.Context, ip string) (string, error) {
	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, cacheKey(ip)).Result()
		if err == nil && cached != "" {
			return cached, nil
		}
	}

	country, err := c.next.Country(ctx, ip)
	if err != nil {
		return "", err
	}

	if c.rdb != nil {
		//nolint:errcheck // a cache miss next time is acceptable
		_ = c.rdb.Set(ctx, cacheKey(ip), country, c.ttl).Err()
	}

	return country, nil
}

type Location struct {
	Country           string   `json:"country"`
	AvailableProducts []string `json:"availableProducts"`
}

type Service struct {
	locator  Locator
	defaults []string
	regional map[string][]string
	logger   *slog.Logger
}

func NewService(locator Locator, cfg config.GeoConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	regional := make(map[string][]string, len(cfg.RegionalProducts))
	for country, products := range cfg.RegionalProducts {
		regional[strings.ToUpper(country)] = products
	}

	return &Service{
		locator:  locator,
		defaults: cfg.DefaultProducts,
		regional: regional,
		logger:   logger,
	}
}

// Locate never fails. Private addresses and lookup errors fall back to the
// unknown country with the default product list.
func (s *Service) Locate(ctx context.Context, ip string) Location {
	country := UnknownCountry

	if routable(ip) {
		found, err := s.locator.Country(ctx, ip)
		if err != nil {
			s.logger.Warn("geo lookup failed", "ip", ip, "error", err)
		} else {
			country = found
		}
	}

	return Location{Country: country, AvailableProducts: s.productsFor(country)}
}

func (s *Service) productsFor(country string) []string {
	products := make([]string, 0, len(s.defaults))
	products = append(products, s.defaults...)

	for _, p := range s.regional[country] {
		if !slices.Contains(products, p) {
			products = append(products, p)
		}
	}
	return products
}

func routable(ip string) bool {
	addr := net.ParseIP(ip)
	if addr == nil {
		return false
	}
	return !addr.IsLoopback() && !addr.IsPrivate() && !addr.IsUnspecified() &&
		!addr.IsLinkLocalUnicast() && !addr.IsMulticast()
}
