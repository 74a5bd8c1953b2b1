package market

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/rustyeddy/posagg/internal/logger"
)

// RedisConfig configures RedisMarks.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "mark:"
	Timeout  time.Duration // per lookup, default 50ms
}

// RedisMarks reads marks that some other process publishes as plain string
// keys ("mark:MESZ5" -> "4512.25"). Every failure is reported as an
// unavailable mark.
type RedisMarks struct {
	client  *goredis.Client
	prefix  string
	timeout time.Duration
	log     *slog.Logger
}

// NewRedisMarks does not ping the server: a dead mark source must not stop
// the blotter from printing.
func NewRedisMarks(cfg RedisConfig, log *slog.Logger) *RedisMarks {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "mark:"
	}
	if log == nil {
		log = logger.Discard()
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		MaxRetries:   -1,
	})

	return &RedisMarks{
		client:  client,
		prefix:  prefix,
		timeout: timeout,
		log:     log,
	}
}

func (r *RedisMarks) Key(instrument string) string {
	return r.prefix + instrument
}

func (r *RedisMarks) Mark(instrument string) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	raw, err := r.client.Get(ctx, r.Key(instrument)).Result()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			r.log.Debug("redis mark unavailable",
				slog.String("instrument", instrument),
				slog.Any("error", err))
		}
		return 0, false
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		r.log.Debug("redis mark unparsable",
			slog.String("instrument", instrument),
			slog.String("value", raw))
		return 0, false
	}
	return price, true
}

// Publish writes a mark. Used by tooling and tests that feed the store.
func (r *RedisMarks) Publish(ctx context.Context, instrument string, price float64) error {
	return r.client.Set(ctx, r.Key(instrument), strconv.FormatFloat(price, 'f', -1, 64), 0).Err()
}

func (r *RedisMarks) Close() error {
	return r.client.Close()
}
