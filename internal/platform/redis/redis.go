package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dicers-bot/internal/common/logger"
)

type Options struct {
	// Addr is a single address or a comma separated list. Several addresses
	// select a cluster client, or a failover client when MasterName is set.
	Addr       string
	Password   string
	DB         int
	MasterName string
}

func (o Options) addrs() []string {
	var out []string
	for _, a := range strings.Split(o.Addr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (o Options) universal() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        o.addrs(),
		Password:     o.Password,
		DB:           o.DB,
		MasterName:   o.MasterName,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Open connects and pings so a bad address fails at startup.
func Open(ctx context.Context, opts Options) (redis.UniversalClient, error) {
	if len(opts.addrs()) == 0 {
		return nil, errors.New("empty redis addr")
	}

	client := redis.NewUniversalClient(opts.universal())
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	logger.Info().
		Strs("addrs", opts.addrs()).
		Int("db", opts.DB).
		Str("master", opts.MasterName).
		Msg("Redis connection established")
	return client, nil
}
