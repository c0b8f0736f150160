package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/dmehra2102/prod-golang-projects/carepath/internal/config"
	"github.com/go-redis/redis/v8"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Catalog prices examinations by name.
type Catalog interface {
	// Lookup returns ok=false when the catalog has no entry for the name.
	Lookup(ctx context.Context, examName string) (price decimal.Decimal, ok bool, err error)
}

// Normalize folds an exam name to its catalog key: lower case, letters and digits only.
func Normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StaticCatalog is an in-process price list keyed by normalized name.
type StaticCatalog map[string]decimal.Decimal

func NewStaticCatalog(prices map[string]decimal.Decimal) StaticCatalog {
	c := make(StaticCatalog, len(prices))
	for name, p := range prices {
		c[Normalize(name)] = p
	}
	return c
}

func (c StaticCatalog) Lookup(_ context.Context, examName string) (decimal.Decimal, bool, error) {
	p, ok := c[Normalize(examName)]
	return p, ok, nil
}

type priceResponse struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	found bool
}

// HTTPCatalog queries the remote price catalog through a circuit breaker
// and caches hits in Redis.
type HTTPCatalog struct {
	client  *resty.Client
	cache   *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[*priceResponse]
	log     *zap.Logger
}

const cachePrefix = "carepath:exam-price:"

// NewHTTPCatalog builds the client. cache may be nil.
func NewHTTPCatalog(cfg config.PricingConfig, cache *redis.Client, log *zap.Logger) *HTTPCatalog {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	breaker := gobreaker.NewCircuitBreaker[*priceResponse](gobreaker.Settings{
		Name:        "exam-price-catalog",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &HTTPCatalog{client: client, cache: cache, ttl: cfg.CacheTTL, breaker: breaker, log: log}
}

func (c *HTTPCatalog) Lookup(ctx context.Context, examName string) (decimal.Decimal, bool, error) {
	key := Normalize(examName)
	if key == "" {
		return decimal.Zero, false, nil
	}

	if c.cache != nil {
		v, err := c.cache.Get(ctx, cachePrefix+key).Result()
		switch {
		case err == nil:
			if p, perr := decimal.NewFromString(v); perr == nil {
				return p, true, nil
			}
		case !errors.Is(err, redis.Nil):
			c.log.Warn("price cache read failed", zap.String("exam", key), zap.Error(err))
		}
	}

	resp, err := c.breaker.Execute(func() (*priceResponse, error) {
		return c.fetch(ctx, key)
	})
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("looking up price for %q: %w", key, err)
	}
	if !resp.found {
		return decimal.Zero, false, nil
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cachePrefix+key, resp.Price.String(), c.ttl).Err(); err != nil {
			c.log.Warn("price cache write failed", zap.String("exam", key), zap.Error(err))
		}
	}
	return resp.Price, true, nil
}

// fetch treats 404 as a miss, not a failure, so unknown exams never trip the breaker.
func (c *HTTPCatalog) fetch(ctx context.Context, key string) (*priceResponse, error) {
	var out priceResponse
	r, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("name", key).
		SetResult(&out).
		Get("/v1/exam-prices")
	if err != nil {
		return nil, err
	}
	if r.StatusCode() == http.StatusNotFound {
		return &priceResponse{}, nil
	}
	if r.IsError() {
		return nil, fmt.Errorf("price catalog returned %d", r.StatusCode())
	}
	out.found = true
	return &out, nil
}
